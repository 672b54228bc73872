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
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/omnikernel/kernel/internal/engine"
	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/config/provider"
)

// ServeCmd wires the engine and blocks serving the introspection endpoint
// (if enabled) and, with --watch, watches the config file and rescans the
// skills root through Engine.Reload whenever that file changes.
type ServeCmd struct {
	Port  int  `help:"Override the introspection server port (host stays 127.0.0.1)."`
	Watch bool `help:"Watch the config file and rescan the skills root when it changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	path := config.ResolvePath(cli.Config)
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("loaded configuration", "path", path)

	if c.Port != 0 {
		cfg.Server.Address = fmt.Sprintf("127.0.0.1:%d", c.Port)
	}

	eng, err := engine.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("wire engine: %w", err)
	}
	defer eng.Shutdown(context.Background())

	if c.Watch {
		fp, err := provider.NewFileProvider(path)
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		defer fp.Close()

		ch, err := fp.Watch(ctx)
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		go func() {
			for range ch {
				slog.Info("config changed, reloading skills")
				if err := eng.Reload(ctx); err != nil {
					slog.Error("reload failed", "error", err)
				}
			}
		}()
	}

	core := eng.Kernel().GetCoreCommands()
	fmt.Printf("\nomnikernel ready\n")
	fmt.Printf("   Core commands: %d\n", len(core))
	if cfg.Server.Enabled {
		fmt.Printf("   Introspection: http://%s\n", cfg.Server.Address)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if !cfg.Server.Enabled {
		<-ctx.Done()
		return nil
	}
	return eng.Server().Start(ctx)
}
