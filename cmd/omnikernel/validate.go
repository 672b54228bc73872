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
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/omnikernel/kernel/pkg/config"
)

// ValidateCmd validates a configuration file.
type ValidateCmd struct {
	ConfigPath  string `arg:"" name:"config" help:"Configuration file path." placeholder:"PATH"`
	Format      string `short:"f" help:"Output format: compact, verbose, json." default:"compact" enum:"compact,verbose,json"`
	PrintConfig bool   `short:"p" name:"print-config" help:"Print the expanded configuration (defaults applied, env vars resolved)."`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return printLoadError(c.Format, c.ConfigPath, err)
	}

	if c.PrintConfig {
		return printExpandedConfig(c.Format, c.ConfigPath, cfg)
	}

	printValidateSuccess(c.Format, c.ConfigPath)
	return nil
}

func printLoadError(format, file string, err error) error {
	switch format {
	case "json":
		printValidateJSON(false, file, err.Error())
	case "verbose":
		fmt.Fprintf(os.Stderr, "Configuration Load Error\n========================\n\n")
		fmt.Fprintf(os.Stderr, "File:  %s\n", file)
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
	default:
		fmt.Fprintf(os.Stderr, "%s: %s\n", file, err.Error())
	}
	return fmt.Errorf("config validation failed")
}

func printValidateSuccess(format, file string) {
	switch format {
	case "json":
		printValidateJSON(true, file, "")
	case "verbose":
		fmt.Fprintf(os.Stdout, "Configuration Validation Successful\n===================================\n\n")
		fmt.Fprintf(os.Stdout, "File:   %s\n", file)
		fmt.Fprintf(os.Stdout, "Status: OK\n")
	default:
		fmt.Fprintf(os.Stdout, "%s: valid\n", file)
	}
}

func printExpandedConfig(format, file string, cfg *config.Config) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config as JSON: %w", err)
		}
	default:
		fmt.Fprintf(os.Stdout, "# Expanded configuration from: %s\n", file)
		fmt.Fprintf(os.Stdout, "# (defaults applied, env vars resolved)\n\n")
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config as YAML: %w", err)
		}
		encoder.Close()
	}
	return nil
}

type validateJSONOutput struct {
	Valid bool   `json:"valid"`
	File  string `json:"file"`
	Error string `json:"error,omitempty"`
}

func printValidateJSON(valid bool, file, errMsg string) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(validateJSONOutput{Valid: valid, File: file, Error: errMsg})
}
