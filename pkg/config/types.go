// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import "fmt"

// SkillsConfig configures the Skill Scanner and Skill Kernel.
type SkillsConfig struct {
	// Root is the directory the scanner walks for skill directories.
	Root string `yaml:"root,omitempty"`

	// Watch is parsed from the config file but not read by any component;
	// the skills root itself is not watched.
	Watch bool `yaml:"watch,omitempty"`

	// MaxConcurrentLoads bounds the parallel load_all fan-out.
	MaxConcurrentLoads int `yaml:"max_concurrent_loads,omitempty"`

	// IndexPath is the skills-index JSON file the marketplace commands
	// (`omni skill discover/suggest/jit-install/list-index`) read.
	IndexPath string `yaml:"index_path,omitempty"`
}

func (c *SkillsConfig) SetDefaults() {
	if c.Root == "" {
		c.Root = "./skills"
	}
	if c.MaxConcurrentLoads == 0 {
		c.MaxConcurrentLoads = 8
	}
	if c.IndexPath == "" {
		c.IndexPath = "./skills-index.json"
	}
}

func (c *SkillsConfig) Validate() error {
	if c.MaxConcurrentLoads < 1 {
		return fmt.Errorf("skills.max_concurrent_loads must be >= 1, got %d", c.MaxConcurrentLoads)
	}
	return nil
}

// VectorStoreConfig configures the embedded or external vector provider.
type VectorStoreConfig struct {
	// Provider selects the backend: "chromem" (embedded) or "qdrant" (external).
	Provider string `yaml:"provider,omitempty"`

	// Path is the on-disk location for the embedded provider's collections.
	Path string `yaml:"path,omitempty"`

	// Address is the gRPC endpoint for the qdrant provider.
	Address string `yaml:"address,omitempty"`

	// PerfP95Ms and PerfRatioMax are CI perf guardrails, overridable via
	// OMNI_VECTOR_PERF_P95_MS / OMNI_VECTOR_PERF_RATIO_MAX.
	PerfP95Ms    int     `yaml:"perf_p95_ms,omitempty"`
	PerfRatioMax float64 `yaml:"perf_ratio_max,omitempty"`
}

func (c *VectorStoreConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "chromem"
	}
	if c.Path == "" {
		c.Path = ".omnikernel/vectors"
	}
	if c.PerfP95Ms == 0 {
		c.PerfP95Ms = 200
	}
	if c.PerfRatioMax == 0 {
		c.PerfRatioMax = 3.0
	}
}

func (c *VectorStoreConfig) Validate() error {
	switch c.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("vector_store.provider must be 'chromem' or 'qdrant', got %q", c.Provider)
	}
	if c.Provider == "qdrant" && c.Address == "" {
		return fmt.Errorf("vector_store.address is required when provider is 'qdrant'")
	}
	return nil
}

// ConfidenceProfile names the score thresholds a fused row is bucketed by.
type ConfidenceProfile struct {
	HighThreshold   float64 `yaml:"high_threshold"`
	MediumThreshold float64 `yaml:"medium_threshold"`
	LowFloor        float64 `yaml:"low_floor"`
}

// FieldBoosting boosts specific lexical match kinds during keyword scoring.
type FieldBoosting struct {
	NameTokenBoost   float64 `yaml:"name_token_boost,omitempty"`
	ExactPhraseBoost float64 `yaml:"exact_phrase_boost,omitempty"`
}

// RouterConfig configures hybrid search fusion and the Router's caches.
type RouterConfig struct {
	ActiveProfile    string                       `yaml:"active_profile,omitempty"`
	DefaultLimit     int                          `yaml:"default_limit,omitempty"`
	DefaultThreshold float64                       `yaml:"default_threshold,omitempty"`
	Profiles         map[string]ConfidenceProfile `yaml:"profiles,omitempty"`

	SemanticWeight float64       `yaml:"semantic_weight,omitempty"`
	KeywordWeight  float64       `yaml:"keyword_weight,omitempty"`
	RRFK           int           `yaml:"rrf_k,omitempty"`
	FieldBoosting  FieldBoosting `yaml:"field_boosting,omitempty"`

	// CortexThreshold is the minimum semantic-cache similarity for a hit.
	CortexThreshold float64 `yaml:"cortex_threshold,omitempty"`
	// CortexTTL is how long a cached routing decision stays valid, in hours.
	CortexTTLHours int `yaml:"cortex_ttl_hours,omitempty"`
	// HiveMindSize bounds the exact-match LRU cache entry count.
	HiveMindSize int `yaml:"hive_mind_size,omitempty"`
}

func (c *RouterConfig) SetDefaults() {
	if c.ActiveProfile == "" {
		c.ActiveProfile = "default"
	}
	if len(c.Profiles) == 0 {
		c.Profiles = map[string]ConfidenceProfile{
			// Fused scores are weighted-RRF sums, at most about
			// (semantic_weight+keyword_weight)/(rrf_k+1), so the
			// thresholds sit on that scale.
			"default": {HighThreshold: 0.015, MediumThreshold: 0.01, LowFloor: 0.005},
		}
	}
	if c.DefaultLimit == 0 {
		c.DefaultLimit = 10
	}
	if c.SemanticWeight == 0 && c.KeywordWeight == 0 {
		c.SemanticWeight = 0.6
		c.KeywordWeight = 0.4
	}
	if c.RRFK == 0 {
		c.RRFK = 60
	}
	if c.FieldBoosting.NameTokenBoost == 0 {
		c.FieldBoosting.NameTokenBoost = 1.5
	}
	if c.FieldBoosting.ExactPhraseBoost == 0 {
		c.FieldBoosting.ExactPhraseBoost = 2.0
	}
	if c.CortexThreshold == 0 {
		c.CortexThreshold = 0.75
	}
	if c.CortexTTLHours == 0 {
		c.CortexTTLHours = 24 * 7
	}
	if c.HiveMindSize == 0 {
		c.HiveMindSize = 512
	}
}

func (c *RouterConfig) Validate() error {
	if _, ok := c.Profiles[c.ActiveProfile]; !ok {
		return fmt.Errorf("router.active_profile %q has no matching entry in router.profiles", c.ActiveProfile)
	}
	for name, p := range c.Profiles {
		if !(p.HighThreshold > p.MediumThreshold && p.MediumThreshold > p.LowFloor) {
			return fmt.Errorf("router.profiles[%s] must satisfy high > medium > low_floor", name)
		}
	}
	return nil
}

// ContextConfig configures the Context Orchestrator's token budget.
type ContextConfig struct {
	MaxTokens     int `yaml:"max_tokens,omitempty"`
	OutputReserve int `yaml:"output_reserve,omitempty"`
	RetainedTurns int `yaml:"retained_turns,omitempty"`

	// ProviderPriority is parsed and defaulted but not read: the Context
	// Orchestrator orders providers by each provider's own Priority().
	ProviderPriority []string `yaml:"provider_priority,omitempty"`
}

func (c *ContextConfig) SetDefaults() {
	if c.MaxTokens == 0 {
		c.MaxTokens = 128_000
	}
	if c.OutputReserve == 0 {
		c.OutputReserve = 4_096
	}
	if c.RetainedTurns == 0 {
		c.RetainedTurns = 10
	}
	if len(c.ProviderPriority) == 0 {
		c.ProviderPriority = []string{"system", "memory", "skills", "history"}
	}
}

func (c *ContextConfig) Validate() error {
	if c.OutputReserve >= c.MaxTokens {
		return fmt.Errorf("context.output_reserve (%d) must be less than context.max_tokens (%d)", c.OutputReserve, c.MaxTokens)
	}
	return nil
}

// LLMConfig configures the language-model client the Agent Loop completes
// against (C10's llmclient foundation).
type LLMConfig struct {
	Provider    string  `yaml:"provider,omitempty"` // "anthropic" or "openai"
	Model       string  `yaml:"model,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Host        string  `yaml:"host,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	TimeoutSecs int     `yaml:"timeout_secs,omitempty"`
	MaxRetries  int     `yaml:"max_retries,omitempty"`
	RetryDelay  int     `yaml:"retry_delay_secs,omitempty"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "anthropic"
	}
	if c.Model == "" {
		c.Model = "claude-sonnet-4-20250514"
	}
	if c.Host == "" {
		switch c.Provider {
		case "openai":
			c.Host = "https://api.openai.com"
		default:
			c.Host = "https://api.anthropic.com"
		}
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Temperature == 0 {
		c.Temperature = 1.0
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 120
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 2
	}
}

func (c *LLMConfig) Validate() error {
	switch c.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("llm.provider must be 'anthropic' or 'openai', got %q", c.Provider)
	}
	// APIKey is intentionally not validated here: it is commonly supplied via
	// env var expansion after Load(), and llmclient.New enforces it at
	// provider construction time where an empty key is actually fatal.
	return nil
}

// AgentConfig configures the Agent Loop / CCA state machine
// (start -> (context_build -> llm_call -> dispatch_tools? -> observe)* -> finish).
type AgentConfig struct {
	Model                string `yaml:"model,omitempty"`
	RetainedTurns        int    `yaml:"retained_turns,omitempty"`
	MaxToolCalls         int    `yaml:"max_tool_calls,omitempty"`
	MaxConsecutiveErrors int    `yaml:"max_consecutive_errors,omitempty"`
	MaxToolSchemas       int    `yaml:"max_tool_schemas,omitempty"`
	// SuppressAtomicTools defaults to true; a *bool (not bool) so
	// SetDefaults can tell "unset" from an explicit "false" in YAML.
	SuppressAtomicTools *bool `yaml:"suppress_atomic_tools,omitempty"`
	AutoSummarize       bool  `yaml:"auto_summarize,omitempty"`
	// legacy/internal aliases kept for the prior HistoryPruneAfter knob
	HistoryPruneAfter int `yaml:"history_prune_after,omitempty"`
}

func (c *AgentConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = "gpt-4o"
	}
	if c.RetainedTurns == 0 {
		c.RetainedTurns = 10
	}
	if c.MaxToolCalls == 0 {
		c.MaxToolCalls = 20
	}
	if c.MaxConsecutiveErrors == 0 {
		c.MaxConsecutiveErrors = 3
	}
	if c.MaxToolSchemas == 0 {
		c.MaxToolSchemas = 20
	}
	if c.SuppressAtomicTools == nil {
		t := true
		c.SuppressAtomicTools = &t
	}
	if c.HistoryPruneAfter == 0 {
		c.HistoryPruneAfter = 40
	}
}

// SuppressAtomicToolsEnabled reports the effective value, treating an
// unset pointer (SetDefaults not yet called) as the spec default of true.
func (c *AgentConfig) SuppressAtomicToolsEnabled() bool {
	return c.SuppressAtomicTools == nil || *c.SuppressAtomicTools
}

func (c *AgentConfig) Validate() error {
	if c.MaxToolCalls < 1 {
		return fmt.Errorf("agent.max_tool_calls must be >= 1, got %d", c.MaxToolCalls)
	}
	if c.MaxConsecutiveErrors < 0 {
		return fmt.Errorf("agent.max_consecutive_errors must be >= 0, got %d", c.MaxConsecutiveErrors)
	}
	if c.RetainedTurns < 1 {
		return fmt.Errorf("agent.retained_turns must be >= 1, got %d", c.RetainedTurns)
	}
	if c.MaxToolSchemas < 1 {
		return fmt.Errorf("agent.max_tool_schemas must be >= 1, got %d", c.MaxToolSchemas)
	}
	return nil
}

// MemoryConfig configures the Episodic Memory manager.
type MemoryConfig struct {
	Collection  string `yaml:"collection,omitempty"`
	RecallLimit int    `yaml:"recall_limit,omitempty"`
}

func (c *MemoryConfig) SetDefaults() {
	if c.Collection == "" {
		c.Collection = "interaction_log"
	}
	if c.RecallLimit == 0 {
		c.RecallLimit = 5
	}
}

func (c *MemoryConfig) Validate() error {
	if c.RecallLimit < 1 {
		return fmt.Errorf("memory.recall_limit must be >= 1, got %d", c.RecallLimit)
	}
	return nil
}

// EvolutionConfig configures trace collection, crystallization thresholds,
// and the Immune System gate. Defaults match the original's EvolutionConfig
// dataclass (test_evolution_manager.py's test_default_config).
type EvolutionConfig struct {
	MinTraceCount    int     `yaml:"min_trace_count,omitempty"`
	MinSuccessRate   float64 `yaml:"min_success_rate,omitempty"`
	MaxTraceAgeHours int     `yaml:"max_trace_age_hours,omitempty"`
	CheckIntervalSec int     `yaml:"check_interval_seconds,omitempty"`
	BatchSize        int     `yaml:"batch_size,omitempty"`
	AutoCrystallize  bool    `yaml:"auto_crystallize,omitempty"`
	DryRun           bool    `yaml:"dry_run,omitempty"`
	QuarantineDir    string  `yaml:"quarantine_dir,omitempty"`
	// ImmuneSystemEnabled defaults to true; a *bool so SetDefaults can
	// tell "unset" from an explicit "false" (same reasoning as
	// AgentConfig.SuppressAtomicTools).
	ImmuneSystemEnabled *bool `yaml:"immune_system_enabled,omitempty"`
}

func (c *EvolutionConfig) SetDefaults() {
	if c.MinTraceCount == 0 {
		c.MinTraceCount = 3
	}
	if c.MinSuccessRate == 0 {
		c.MinSuccessRate = 0.8
	}
	if c.MaxTraceAgeHours == 0 {
		c.MaxTraceAgeHours = 24
	}
	if c.CheckIntervalSec == 0 {
		c.CheckIntervalSec = 300
	}
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.QuarantineDir == "" {
		c.QuarantineDir = ".omnikernel/quarantine"
	}
	if c.ImmuneSystemEnabled == nil {
		t := true
		c.ImmuneSystemEnabled = &t
	}
}

// ImmuneSystemIsEnabled reports the effective value, treating an unset
// pointer as the default of true.
func (c *EvolutionConfig) ImmuneSystemIsEnabled() bool {
	return c.ImmuneSystemEnabled == nil || *c.ImmuneSystemEnabled
}

func (c *EvolutionConfig) Validate() error {
	if c.MinSuccessRate < 0 || c.MinSuccessRate > 1 {
		return fmt.Errorf("evolution.min_success_rate must be within [0,1], got %f", c.MinSuccessRate)
	}
	if c.MinTraceCount < 1 {
		return fmt.Errorf("evolution.min_trace_count must be >= 1, got %d", c.MinTraceCount)
	}
	return nil
}

// HomeostasisConfig configures Git-branch transaction isolation.
type HomeostasisConfig struct {
	RepoPath     string `yaml:"repo_path,omitempty"`
	BranchPrefix string `yaml:"branch_prefix,omitempty"`
	BaseBranch   string `yaml:"base_branch,omitempty"`
	AutoCommit   bool   `yaml:"auto_commit,omitempty"`
	// AutoMergeOnSuccess defaults to true; a *bool so SetDefaults can tell
	// "unset" from an explicit "false".
	AutoMergeOnSuccess *bool `yaml:"auto_merge_on_success,omitempty"`
	// AutoRollbackOnFailure defaults to true; same reasoning.
	AutoRollbackOnFailure *bool `yaml:"auto_rollback_on_failure,omitempty"`
}

func (c *HomeostasisConfig) SetDefaults() {
	if c.RepoPath == "" {
		c.RepoPath = "."
	}
	if c.BranchPrefix == "" {
		c.BranchPrefix = "omni-task"
	}
	if c.BaseBranch == "" {
		c.BaseBranch = "main"
	}
	if c.AutoMergeOnSuccess == nil {
		t := true
		c.AutoMergeOnSuccess = &t
	}
	if c.AutoRollbackOnFailure == nil {
		t := true
		c.AutoRollbackOnFailure = &t
	}
}

// AutoMergeOnSuccessEnabled reports the effective value, treating an
// unset pointer as the default of true.
func (c *HomeostasisConfig) AutoMergeOnSuccessEnabled() bool {
	return c.AutoMergeOnSuccess == nil || *c.AutoMergeOnSuccess
}

// AutoRollbackOnFailureEnabled reports the effective value, treating an
// unset pointer as the default of true.
func (c *HomeostasisConfig) AutoRollbackOnFailureEnabled() bool {
	return c.AutoRollbackOnFailure == nil || *c.AutoRollbackOnFailure
}

func (c *HomeostasisConfig) Validate() error {
	return nil
}

// ServerConfig configures the optional introspection endpoint.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Address string `yaml:"address,omitempty"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = "127.0.0.1:8090"
	}
}

func (c *ServerConfig) Validate() error {
	return nil
}

// ObservabilityConfig configures tracing and metrics export.
type ObservabilityConfig struct {
	TracingEnabled bool   `yaml:"tracing_enabled,omitempty"`
	OTLPEndpoint   string `yaml:"otlp_endpoint,omitempty"`
	MetricsEnabled bool   `yaml:"metrics_enabled,omitempty"`
	MetricsAddress string `yaml:"metrics_address,omitempty"`
	ServiceName    string `yaml:"service_name,omitempty"`
}

func (c *ObservabilityConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "omnikernel"
	}
	if c.MetricsAddress == "" {
		c.MetricsAddress = "127.0.0.1:9090"
	}
}

func (c *ObservabilityConfig) Validate() error {
	return nil
}
