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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/skillsindex"
)

// SkillCmd groups the external-skill marketplace subcommands.
type SkillCmd struct {
	Discover   SkillDiscoverCmd   `cmd:"" help:"List index entries matching a query."`
	Suggest    SkillSuggestCmd    `cmd:"" help:"Suggest the single best-matching skill for a task."`
	JitInstall SkillJitInstallCmd `cmd:"" name:"jit-install" help:"Clone a skill from the index into quarantine."`
	ListIndex  SkillListIndexCmd  `cmd:"" name:"list-index" help:"Print every entry in the skills index."`
}

func loadIndex(configPath string) (*skillsindex.Index, *config.Config, error) {
	path := config.ResolvePath(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	idx, err := skillsindex.Load(cfg.Skills.IndexPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load skills index: %w", err)
	}
	return idx, cfg, nil
}

func printEntries(entries []skillsindex.Entry, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Println("(no matches)")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-20s %-30s %s\n", e.ID, e.Name, e.URL)
		if e.Description != "" {
			fmt.Printf("  %s\n", e.Description)
		}
		if len(e.Keywords) > 0 {
			fmt.Printf("  keywords: %s\n", strings.Join(e.Keywords, ", "))
		}
	}
	return nil
}

// SkillDiscoverCmd implements `omni skill discover [query] [--limit N]`.
type SkillDiscoverCmd struct {
	Query string `arg:"" optional:"" name:"query" help:"Free-text query; omit to list every entry."`
	Limit int    `help:"Maximum number of results (0 = unbounded)." default:"10"`
	JSON  bool   `help:"Print as JSON instead of a human-readable list."`
}

func (c *SkillDiscoverCmd) Run(cli *CLI) error {
	idx, _, err := loadIndex(cli.Config)
	if err != nil {
		return err
	}
	return printEntries(idx.Discover(c.Query, c.Limit), c.JSON)
}

// SkillSuggestCmd implements `omni skill suggest <task>`.
type SkillSuggestCmd struct {
	Task string `arg:"" name:"task" help:"Task description to match against the index."`
	JSON bool   `help:"Print as JSON instead of a human-readable summary."`
}

func (c *SkillSuggestCmd) Run(cli *CLI) error {
	if strings.TrimSpace(c.Task) == "" {
		return newUsageError("task must not be empty")
	}
	idx, _, err := loadIndex(cli.Config)
	if err != nil {
		return err
	}
	entry, ok := idx.Suggest(c.Task)
	if !ok {
		fmt.Println("(no suggestion)")
		return nil
	}
	return printEntries([]skillsindex.Entry{entry}, c.JSON)
}

// SkillJitInstallCmd implements `omni skill jit-install <id>`: clones the
// entry's repository into the quarantine directory, where it awaits
// Immune System promotion before the scanner will ever load it.
type SkillJitInstallCmd struct {
	ID string `arg:"" name:"id" help:"Skill id from the index."`
}

func (c *SkillJitInstallCmd) Run(cli *CLI) error {
	idx, cfg, err := loadIndex(cli.Config)
	if err != nil {
		return err
	}
	entry, ok := idx.Find(c.ID)
	if !ok {
		return newUsageError("no skill with id %q in the index", c.ID)
	}

	dest, err := skillsindex.Install(context.Background(), entry, cfg.Evolution.QuarantineDir)
	if err != nil {
		return fmt.Errorf("jit-install %s: %w", c.ID, err)
	}
	fmt.Printf("Installed %s into %s (quarantined, pending Immune System promotion)\n", entry.ID, dest)
	return nil
}

// SkillListIndexCmd implements `omni skill list-index`.
type SkillListIndexCmd struct {
	JSON bool `help:"Print as JSON instead of a human-readable list."`
}

func (c *SkillListIndexCmd) Run(cli *CLI) error {
	idx, _, err := loadIndex(cli.Config)
	if err != nil {
		return err
	}
	return printEntries(idx.Skills, c.JSON)
}
