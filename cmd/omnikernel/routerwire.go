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
	"github.com/omnikernel/kernel/pkg/manifest"
	"github.com/omnikernel/kernel/pkg/router"
	"github.com/omnikernel/kernel/pkg/scanner"
	"github.com/omnikernel/kernel/pkg/vectorstore"
)

// wireStore loads the config, opens the vector store, and scans the
// skills root for its tool index — the part of the engine shared by
// every command that needs the store or the tool list but not the full
// agent loop.
func wireStore(configPath string) (vectorstore.Provider, *config.Config, []manifest.ToolRecord, error) {
	path := config.ResolvePath(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	store, err := vectorstore.New(cfg.VectorStore.Provider, cfg.VectorStore.Path, cfg.VectorStore.Address)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("vector store: %w", err)
	}

	skills, _ := scanner.Scan(cfg.Skills.Root)
	var tools []manifest.ToolRecord
	for _, s := range skills {
		tools = append(tools, s.Commands...)
	}
	return store, cfg, tools, nil
}

// wireRouter loads the config and builds just the vector store, tool
// index, and Router — the slice of the engine the `route` commands need.
// It deliberately skips the LLM client, kernel server, and agent loop so
// these commands never require LLM credentials to run.
func wireRouter(ctx context.Context, configPath string) (*router.Router, *config.Config, error) {
	store, cfg, tools, err := wireStore(configPath)
	if err != nil {
		return nil, nil, err
	}

	rout, err := router.New(cfg.Router, store, vectorstore.HashEmbed, tools)
	if err != nil {
		return nil, nil, fmt.Errorf("router: %w", err)
	}
	if err := rout.IndexTools(ctx); err != nil {
		return nil, nil, fmt.Errorf("index tools: %w", err)
	}
	return rout, cfg, nil
}
