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

	"github.com/omnikernel/kernel/pkg/manifest"
	"github.com/omnikernel/kernel/pkg/vectorstore"
)

// toolSearchCollection mirrors pkg/router's private collection name; the
// Provider interface has no way to enumerate a collection, so this command
// re-derives each known tool's embedding and reads its own row back
// instead of requiring a new store method.
const toolSearchCollection = "tool_search"

// DbCmd groups vector-store audit subcommands.
type DbCmd struct {
	ValidateSchema DbValidateSchemaCmd `cmd:"" name:"validate-schema" help:"Audit the tool_search collection for contract violations."`
}

// DbValidateSchemaCmd implements `omni db validate-schema`: it re-embeds
// every tool the scanner currently finds and reads back its tool_search
// row, rejecting any row that fails manifest.ValidatePayload (in
// particular, any row still carrying the forbidden legacy "keywords"
// field instead of "routing_keywords").
type DbValidateSchemaCmd struct {
	JSON bool `help:"Print a JSON report instead of a human-readable summary."`
}

type schemaViolation struct {
	ToolName string `json:"tool_name"`
	Error    string `json:"error"`
}

type validateSchemaReport struct {
	Schema     string            `json:"schema"`
	Checked    int               `json:"checked"`
	Violations []schemaViolation `json:"violations"`
}

func (c *DbValidateSchemaCmd) Run(cli *CLI) error {
	ctx := context.Background()
	store, _, tools, err := wireStore(cli.Config)
	if err != nil {
		return err
	}

	report := validateSchemaReport{
		Schema:     manifest.SchemaVectorToolSearchV1,
		Violations: []schemaViolation{},
	}

	for _, t := range tools {
		vec := vectorstore.HashEmbed(t.Description)
		results, err := store.Search(ctx, toolSearchCollection, vec, 1)
		if err != nil {
			report.Violations = append(report.Violations, schemaViolation{ToolName: t.ToolName, Error: err.Error()})
			continue
		}
		if len(results) == 0 {
			report.Violations = append(report.Violations, schemaViolation{ToolName: t.ToolName, Error: "no tool_search row found"})
			continue
		}
		report.Checked++
		if err := manifest.ValidatePayload(manifest.SchemaVectorToolSearchV1, results[0].Metadata); err != nil {
			report.Violations = append(report.Violations, schemaViolation{ToolName: t.ToolName, Error: err.Error()})
		}
	}

	if c.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	} else {
		fmt.Printf("Checked %d rows against %s\n", report.Checked, report.Schema)
		if len(report.Violations) == 0 {
			fmt.Println("No violations found.")
		} else {
			fmt.Printf("%d violation(s):\n", len(report.Violations))
			for _, v := range report.Violations {
				fmt.Printf("  - %s: %s\n", v.ToolName, v.Error)
			}
		}
	}

	if len(report.Violations) > 0 {
		return fmt.Errorf("tool_search schema audit found %d violation(s)", len(report.Violations))
	}
	return nil
}
