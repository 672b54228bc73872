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

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "omnikernel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: test\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./skills", cfg.Skills.Root)
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
	assert.Equal(t, "default", cfg.Router.ActiveProfile)
	assert.Equal(t, 128_000, cfg.Context.MaxTokens)
	assert.Equal(t, 3, cfg.Agent.MaxConsecutiveErrors)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("OMNI_TEST_ROOT", "/tmp/skills-root")

	dir := t.TempDir()
	path := filepath.Join(dir, "omnikernel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("skills:\n  root: ${OMNI_TEST_ROOT}\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/skills-root", cfg.Skills.Root)
}

func TestLoadEnvVarWithDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "omnikernel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("skills:\n  root: ${OMNI_UNSET_VAR:-./fallback}\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./fallback", cfg.Skills.Root)
}

func TestRouterValidateRejectsUnknownActiveProfile(t *testing.T) {
	cfg := &Config{
		Router: RouterConfig{
			ActiveProfile: "missing",
			Profiles: map[string]ConfidenceProfile{
				"default": {HighThreshold: 0.75, MediumThreshold: 0.5, LowFloor: 0.25},
			},
		},
	}
	err := cfg.Router.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestRouterValidateRejectsOutOfOrderThresholds(t *testing.T) {
	cfg := &RouterConfig{
		ActiveProfile: "default",
		Profiles: map[string]ConfidenceProfile{
			"default": {HighThreshold: 0.4, MediumThreshold: 0.5, LowFloor: 0.25},
		},
	}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestContextValidateRejectsReserveExceedingBudget(t *testing.T) {
	cfg := &ContextConfig{MaxTokens: 1000, OutputReserve: 1000}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestVectorStoreValidateRequiresAddressForQdrant(t *testing.T) {
	cfg := &VectorStoreConfig{Provider: "qdrant"}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestResolvePathPrefersExplicit(t *testing.T) {
	assert.Equal(t, "custom.yaml", ResolvePath("custom.yaml"))
}

func TestResolvePathUsesPrjConfigHome(t *testing.T) {
	t.Setenv("PRJ_CONFIG_HOME", "/etc/omnikernel")
	assert.Equal(t, "/etc/omnikernel/omnikernel.yaml", ResolvePath(""))
}

func TestApplyPerfOverridesFromEnv(t *testing.T) {
	t.Setenv("OMNI_VECTOR_PERF_P95_MS", "500")
	t.Setenv("OMNI_VECTOR_PERF_RATIO_MAX", "2.5")

	cfg := &VectorStoreConfig{}
	applyPerfOverrides(cfg)

	assert.Equal(t, 500, cfg.PerfP95Ms)
	assert.InDelta(t, 2.5, cfg.PerfRatioMax, 0.0001)
}
