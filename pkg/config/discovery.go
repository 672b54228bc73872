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
	"strconv"
)

const defaultConfigFileName = "omnikernel.yaml"

// ResolvePath returns the config file path to load: explicit (if non-empty),
// otherwise PRJ_CONFIG_HOME/omnikernel.yaml, otherwise ./omnikernel.yaml.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if home := os.Getenv("PRJ_CONFIG_HOME"); home != "" {
		return filepath.Join(home, defaultConfigFileName)
	}
	return defaultConfigFileName
}

// applyPerfOverrides lets CI pin vector store perf guardrails without
// editing the checked-in config file.
func applyPerfOverrides(c *VectorStoreConfig) {
	if v := os.Getenv("OMNI_VECTOR_PERF_P95_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PerfP95Ms = n
		}
	}
	if v := os.Getenv("OMNI_VECTOR_PERF_RATIO_MAX"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.PerfRatioMax = f
		}
	}
}
