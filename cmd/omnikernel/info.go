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

package main

import (
	"context"
	"fmt"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/kernel"
)

// InfoCmd shows loaded skills and commands without wiring the full engine
// (no LLM/vector-store credentials required).
type InfoCmd struct{}

func (c *InfoCmd) Run(cli *CLI) error {
	path := config.ResolvePath(cli.Config)
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	k := kernel.New(cfg.Skills.Root, cfg.Skills.MaxConcurrentLoads)
	results, stats := k.LoadAll(context.Background())

	fmt.Printf("Skills root: %s\n", cfg.Skills.Root)
	fmt.Printf("Loaded: %d  Failed: %d\n\n", stats.Loaded, stats.Failed)

	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		fmt.Printf("  - %s: %s\n", r.SkillName, status)
	}

	core := k.GetCoreCommands()
	dynamic := k.GetDynamicCommands()
	fmt.Printf("\nCore commands (%d):\n", len(core))
	for _, cmd := range core {
		fmt.Printf("  - %s: %s\n", cmd.QualifiedName(), cmd.Description)
	}
	fmt.Printf("\nDynamic commands (%d, gated behind skill activation):\n", len(dynamic))
	for _, cmd := range dynamic {
		fmt.Printf("  - %s: %s\n", cmd.QualifiedName(), cmd.Description)
	}

	return nil
}
