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

// Package config provides the kernel's root configuration: a YAML document
// with env-var interpolation, loaded at startup (see pkg/config/provider for
// the file-watch mechanism that reports changes to the config file). The kernel is config-first: every subsystem (scanner, vector
// store, router, context orchestrator, agent loop, memory, evolution,
// homeostasis) reads its settings from a dedicated section of Config rather
// than from package-level flags.
//
// Example config:
//
//	skills:
//	  root: ./skills
//	  watch: true
//
//	vector_store:
//	  provider: chromem
//	  path: .omnikernel/vectors
//
//	router:
//	  active_profile: default
//	  profiles:
//	    default:
//	      high_threshold: 0.015
//	      medium_threshold: 0.01
//	      low_floor: 0.005
//
//	context:
//	  max_tokens: 128000
//	  output_reserve: 4096
package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/omnikernel/kernel/pkg/config/provider"
)

// Config is the root configuration structure for the kernel.
type Config struct {
	// Skills configures the Skill Scanner and Skill Kernel (C1, C3).
	Skills SkillsConfig `yaml:"skills,omitempty"`

	// VectorStore configures the embedded/external vector provider (C5).
	VectorStore VectorStoreConfig `yaml:"vector_store,omitempty"`

	// Router configures hybrid search fusion weights and confidence
	// profiles (C6, C8).
	Router RouterConfig `yaml:"router,omitempty"`

	// Context configures the Context Orchestrator's token budget and
	// provider priority order (C9).
	Context ContextConfig `yaml:"context,omitempty"`

	// LLM configures the language-model client the Agent Loop completes
	// against (C10).
	LLM LLMConfig `yaml:"llm,omitempty"`

	// Agent configures the Agent Loop (C10).
	Agent AgentConfig `yaml:"agent,omitempty"`

	// Memory configures the Episodic Memory manager (C11).
	Memory MemoryConfig `yaml:"memory,omitempty"`

	// Evolution configures trace collection, crystallization thresholds,
	// and the Immune System gate (C12).
	Evolution EvolutionConfig `yaml:"evolution,omitempty"`

	// Homeostasis configures Git-branch transaction isolation (C13).
	Homeostasis HomeostasisConfig `yaml:"homeostasis,omitempty"`

	// Server configures the optional introspection endpoint.
	Server ServerConfig `yaml:"server,omitempty"`

	// Logger configures logging behavior.
	Logger LoggerConfig `yaml:"logger,omitempty"`

	// Observability configures tracing and metrics export (C14).
	Observability ObservabilityConfig `yaml:"observability,omitempty"`
}

// Defaultable is implemented by every config section so Load can apply
// defaults uniformly after unmarshaling.
type Defaultable interface {
	SetDefaults()
}

// Validatable is implemented by every config section so Load can validate
// uniformly after defaults are applied.
type Validatable interface {
	Validate() error
}

// SetDefaults applies default values across every section.
func (c *Config) SetDefaults() {
	for _, d := range c.sections() {
		d.SetDefaults()
	}
}

// Validate validates every section, returning the first error encountered.
func (c *Config) Validate() error {
	for _, v := range c.sections() {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type section interface {
	Defaultable
	Validatable
}

func (c *Config) sections() []section {
	return []section{
		&c.Skills,
		&c.VectorStore,
		&c.Router,
		&c.Context,
		&c.LLM,
		&c.Agent,
		&c.Memory,
		&c.Evolution,
		&c.Homeostasis,
		&c.Server,
		&c.Logger,
		&c.Observability,
	}
}

// Load reads, env-expands, unmarshals, defaults, and validates a config
// file at path. This is the one-shot load used at startup; Watch (below)
// layers hot-reload on top of it.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := expandEnvVars(string(raw))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.SetDefaults()
	applyPerfOverrides(&cfg.VectorStore)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Watch wraps a provider.Provider (normally a *provider.FileProvider
// pointed at the config file), loads and validates Config once, and returns
// it together with the provider's Close func. After that, every change the
// source reports re-loads and re-validates Config and passes the outcome to
// onReload: the new Config with a nil error, or a nil Config and the load
// or validation error. If the watch cannot be started, the initial Config
// is still returned along with that error.
func Watch(p provider.Provider, onReload func(*Config, error)) (*Config, func() error, error) {
	ctx := context.Background()

	data, err := p.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, nil, err
	}

	ch, err := p.Watch(ctx)
	if err != nil {
		return cfg, p.Close, err
	}

	go func() {
		for range ch {
			data, err := p.Load(ctx)
			if err != nil {
				onReload(nil, err)
				continue
			}
			reloaded, err := parse(data)
			onReload(reloaded, err)
		}
	}()

	return cfg, p.Close, nil
}

func parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.SetDefaults()
	applyPerfOverrides(&cfg.VectorStore)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
