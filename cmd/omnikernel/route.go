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

	"github.com/invopop/jsonschema"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/manifest"
	"github.com/omnikernel/kernel/pkg/router"
	"github.com/omnikernel/kernel/pkg/vectorstore"
)

// RouteCmd groups the router introspection subcommands.
type RouteCmd struct {
	Test   RouteTestCmd   `cmd:"" help:"Run a query through the router and print the fused result."`
	Stats  RouteStatsCmd  `cmd:"" help:"Print the active fusion weights and confidence profile."`
	Schema RouteSchemaCmd `cmd:"" help:"Generate JSON Schema for the router configuration."`
}

// RouteTestCmd runs one query through the full Hive-Mind/Cortex/fusion
// pipeline and reports the result, per `omni route test`.
type RouteTestCmd struct {
	Query             string `arg:"" name:"query" help:"Query text to route." placeholder:"QUERY"`
	Local             bool   `help:"Warn when the result came from the Hive-Mind or Cortex cache (the caches are not bypassed)."`
	JSON              bool   `help:"Print the omni.router.route_test.v1 payload instead of a table."`
	ConfidenceProfile string `name:"confidence-profile" help:"Override router.active_profile for this run."`
	Debug             bool   `help:"Print raw and final scores per candidate."`
}

func (c *RouteTestCmd) Run(cli *CLI) error {
	if strings.TrimSpace(c.Query) == "" {
		return newUsageError("query must not be empty")
	}

	ctx := context.Background()
	store, cfg, tools, err := wireStore(cli.Config)
	if err != nil {
		return err
	}

	if c.ConfidenceProfile != "" {
		if _, ok := cfg.Router.Profiles[c.ConfidenceProfile]; !ok {
			return newUsageError("unknown confidence profile %q", c.ConfidenceProfile)
		}
		cfg.Router.ActiveProfile = c.ConfidenceProfile
	}
	activeProfile := cfg.Router.ActiveProfile

	rout, err := router.New(cfg.Router, store, vectorstore.HashEmbed, tools)
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}
	if err := rout.IndexTools(ctx); err != nil {
		return fmt.Errorf("index tools: %w", err)
	}

	result, err := rout.Route(ctx, c.Query)
	if err != nil {
		return fmt.Errorf("route: %w", err)
	}
	if c.Local && result.FromCache {
		// Router.Route has no cache bypass, so --local does not force a
		// fresh fusion pass; it reports the cached hit and flags it rather
		// than silently returning stale candidates.
		fmt.Fprintln(os.Stderr, "warning: --local requested but result came from cache")
	}

	results := make([]manifest.ToolRouterResult, len(result.Candidates))
	for i, f := range result.Candidates {
		results[i] = manifest.ToolRouterResult{
			ToolName:     f.ToolName,
			SkillName:    f.SkillName,
			Category:     f.Category,
			VectorScore:  f.VectorScore,
			KeywordScore: f.KeywordScore,
			GraphScore:   f.GraphScore,
			FinalScore:   f.FinalScore,
			Confidence:   f.Confidence,
		}
	}

	if c.JSON {
		payload := manifest.RouteTestPayload{
			Schema:            manifest.SchemaRouterRouteTestV1,
			Query:             c.Query,
			Count:             len(results),
			Results:           results,
			ConfidenceProfile: activeProfile,
			Stats: map[string]any{
				"from_cache": result.FromCache,
			},
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}

	fmt.Printf("Query: %s\n", c.Query)
	fmt.Printf("Confidence profile: %s  From cache: %v\n\n", activeProfile, result.FromCache)
	if len(result.SelectedTools) == 0 {
		fmt.Println("(no tools matched)")
		return nil
	}
	for i, r := range results {
		if c.Debug {
			fmt.Printf("%2d. %-30s raw=(v=%.3f k=%.3f g=%.3f) | final=%.3f | %s\n",
				i+1, r.ToolName, r.VectorScore, r.KeywordScore, r.GraphScore, r.FinalScore, r.Confidence)
		} else {
			fmt.Printf("%2d. %-30s final=%.3f  %s\n", i+1, r.ToolName, r.FinalScore, r.Confidence)
		}
	}
	fmt.Printf("\nMission brief: %s\n", result.MissionBrief)
	return nil
}

// RouteStatsCmd prints the fusion weights, RRF constant, field boosts, and
// active confidence profile the Router is currently configured with.
type RouteStatsCmd struct {
	JSON bool `help:"Print as JSON instead of a human-readable table."`
}

func (c *RouteStatsCmd) Run(cli *CLI) error {
	_, cfg, err := wireRouter(context.Background(), cli.Config)
	if err != nil {
		return err
	}
	rc := cfg.Router

	if c.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rc)
	}

	fmt.Printf("Active profile:   %s\n", rc.ActiveProfile)
	fmt.Printf("Default limit:    %d\n", rc.DefaultLimit)
	fmt.Printf("Semantic weight:  %.3f\n", rc.SemanticWeight)
	fmt.Printf("Keyword weight:   %.3f\n", rc.KeywordWeight)
	fmt.Printf("RRF k:            %d\n", rc.RRFK)
	fmt.Printf("Name token boost: %.3f\n", rc.FieldBoosting.NameTokenBoost)
	fmt.Printf("Exact phrase boost: %.3f\n", rc.FieldBoosting.ExactPhraseBoost)
	fmt.Printf("Cortex threshold: %.3f  TTL: %dh\n", rc.CortexThreshold, rc.CortexTTLHours)
	fmt.Printf("Hive-Mind size:   %d\n\n", rc.HiveMindSize)

	fmt.Println("Profiles:")
	for name, p := range rc.Profiles {
		marker := "  "
		if name == rc.ActiveProfile {
			marker = "* "
		}
		fmt.Printf("%s%-12s high=%.2f medium=%.2f low_floor=%.2f\n", marker, name, p.HighThreshold, p.MediumThreshold, p.LowFloor)
	}
	return nil
}

// RouteSchemaCmd emits the JSON Schema for RouterConfig, distinct from the
// root `schema` command which reflects the whole Config.
type RouteSchemaCmd struct {
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

func (c *RouteSchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:           true,
	}
	schema := reflector.Reflect(&config.RouterConfig{})
	schema.ID = "https://omnikernel.dev/schemas/router.json"
	schema.Title = "RouterSearchConfig"
	schema.Description = "Hybrid search fusion weights and confidence profiles for the router."
	schema.Version = "http://json-schema.org/draft-07/schema#"

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}
