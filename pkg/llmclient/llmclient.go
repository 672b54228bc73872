// Package llmclient defines the provider-agnostic chat-completion contract
// the Agent Loop drives, grounded on the teacher's pkg/llms/types.go shape
// but stripped of its a2a protobuf message type — the kernel's own Message
// is the universal wire format here, not the agent-to-agent RPC payload.
package llmclient

import "context"

// Message is one turn in a conversation, universal across providers.
type Message struct {
	Role       string     `json:"role"` // "user", "assistant", "system", "tool"
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolDefinition describes a callable tool in JSON-Schema form.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	RawArgs   string                 `json:"raw_args"`
}

// StreamChunk is one piece of a streaming completion.
type StreamChunk struct {
	Type     string // "text", "tool_call", "done", "error"
	Text     string
	ToolCall *ToolCall
	Tokens   int
	Error    error
}

// Completion is the result of a non-streaming Generate call.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
	Tokens    int
}

// Provider is the contract agentloop drives each CCA step through.
type Provider interface {
	Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (Completion, error)
	GenerateStreaming(ctx context.Context, messages []Message, tools []ToolDefinition) (<-chan StreamChunk, error)
	ModelName() string
}
