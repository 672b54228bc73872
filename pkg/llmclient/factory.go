package llmclient

import (
	"fmt"

	"github.com/omnikernel/kernel/pkg/config"
)

// New constructs the Provider named by cfg.Provider, grounded on
// pkg/llms/registry.go's CreateLLMFromConfig type-switch.
func New(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicProvider(cfg)
	case "openai":
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("llmclient: unsupported provider %q (supported: anthropic, openai)", cfg.Provider)
	}
}
