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

// Package utils provides small filesystem and path helpers shared across the kernel.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// StateDirName is the directory the kernel uses for on-disk state: vector
// collections, quarantine skills, checkpoints, and semantic cache persistence.
const StateDirName = ".omnikernel"

// EnsureStateDir ensures the kernel's state directory exists under basePath.
// If basePath is empty or ".", it creates ./.omnikernel in the current directory.
//
// No code in the module calls it; the vector store, quarantine directory and
// persistence store take their directories from their own configuration.
func EnsureStateDir(basePath string) (string, error) {
	var dir string
	if basePath == "" || basePath == "." {
		dir = StateDirName
	} else {
		dir = filepath.Join(basePath, StateDirName)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create state directory at '%s': %w", dir, err)
	}

	return dir, nil
}
