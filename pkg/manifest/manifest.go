// Package manifest defines the strict, fail-closed schema for skill
// manifests, tool records, and the wire payloads the vector store and
// router exchange. Every payload carries a schema string; a reader that
// doesn't recognize it rejects the payload rather than guessing.
package manifest

import (
	"fmt"

	"github.com/omnikernel/kernel/pkg/kernelerr"
)

const (
	SchemaVectorSearchV1     = "omni.vector.search.v1"
	SchemaVectorHybridV1     = "omni.vector.hybrid.v1"
	SchemaVectorToolSearchV1 = "omni.vector.tool_search.v1"
	SchemaRouterRouteTestV1  = "omni.router.route_test.v1"
)

// ExecutionMode describes how the kernel dispatches a command.
type ExecutionMode string

const (
	ExecutionModeLocal  ExecutionMode = "local"
	ExecutionModeScript ExecutionMode = "script"
)

// Confidence is the bucket a router assigns to a scored row.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// SkillManifest is the parsed front-matter of a SKILL.md file.
type SkillManifest struct {
	Name            string   `yaml:"name" json:"name"`
	Version         string   `yaml:"version" json:"version"`
	Description     string   `yaml:"description" json:"description"`
	RoutingKeywords []string `yaml:"routing_keywords,omitempty" json:"routing_keywords,omitempty"`
	Intents         []string `yaml:"intents,omitempty" json:"intents,omitempty"`
	ToolsModule     string   `yaml:"tools_module,omitempty" json:"tools_module,omitempty"`
	GuideFile       string   `yaml:"guide_file,omitempty" json:"guide_file,omitempty"`
}

// Validate enforces the required-keys invariant from the skill data model:
// name, version, and description must all be present.
func (m *SkillManifest) Validate() error {
	if m == nil {
		return kernelerr.New(kernelerr.KindManifestInvalid, "manifest", "Validate", "manifest is nil")
	}
	var missing []string
	if m.Name == "" {
		missing = append(missing, "name")
	}
	if m.Version == "" {
		missing = append(missing, "version")
	}
	if m.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return kernelerr.New(kernelerr.KindManifestInvalid, "manifest", "Validate",
			fmt.Sprintf("missing required keys: %v", missing))
	}
	return nil
}

// ToolRecord is emitted by the Scanner and consumed by the Router and Kernel.
type ToolRecord struct {
	ToolName        string        `json:"tool_name"`
	SkillName       string        `json:"skill_name"`
	FunctionName    string        `json:"function_name"`
	FilePath        string        `json:"file_path"`
	Description     string        `json:"description"`
	RoutingKeywords []string      `json:"routing_keywords,omitempty"`
	Intents         []string      `json:"intents,omitempty"`
	Category        string        `json:"category,omitempty"`
	InputSchema     map[string]any `json:"input_schema,omitempty"`
	FileHash        string        `json:"file_hash"`
	ExecutionMode   ExecutionMode `json:"execution_mode"`
}

// Key returns the (tool_name, file_hash) pair the Scanner diffs on.
func (t ToolRecord) Key() string { return t.ToolName + "@" + t.FileHash }

// VectorPayload is the `omni.vector.search.v1` wire contract.
type VectorPayload struct {
	Schema   string         `json:"schema"`
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Distance float64        `json:"distance"`
	Score    *float64       `json:"score,omitempty"`
}

// HybridPayload is the `omni.vector.hybrid.v1` wire contract.
type HybridPayload struct {
	Schema       string         `json:"schema"`
	ID           string         `json:"id"`
	Content      string         `json:"content"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Distance     float64        `json:"distance"`
	VectorScore  *float64       `json:"vector_score,omitempty"`
	KeywordScore *float64       `json:"keyword_score,omitempty"`
	Score        float64        `json:"score"`
	Source       string         `json:"source"`
}

// ToolSearchPayload is the `omni.vector.tool_search.v1` canonical row.
type ToolSearchPayload struct {
	Schema          string         `json:"schema"`
	ID              string         `json:"id"`
	Content         string         `json:"content"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Distance        float64        `json:"distance"`
	Score           *float64       `json:"score,omitempty"`
	InputSchema     map[string]any `json:"input_schema,omitempty"`
	SkillName       string         `json:"skill_name"`
	ToolName        string         `json:"tool_name"`
	RoutingKeywords []string       `json:"routing_keywords,omitempty"`
	Intents         []string       `json:"intents,omitempty"`
	Category        string         `json:"category,omitempty"`
	Confidence      Confidence     `json:"confidence"`
	FinalScore      float64        `json:"final_score"`
}

// ToolRouterResult is one scored row of a route-test run: the fused
// candidate plus the raw per-signal scores a debug caller needs to see why
// it ranked where it did.
type ToolRouterResult struct {
	ToolName     string     `json:"tool_name"`
	SkillName    string     `json:"skill_name"`
	Category     string     `json:"category,omitempty"`
	VectorScore  float64    `json:"vector_score"`
	KeywordScore float64    `json:"keyword_score"`
	GraphScore   float64    `json:"graph_score"`
	FinalScore   float64    `json:"final_score"`
	Confidence   Confidence `json:"confidence"`
}

// RouteTestPayload is the `omni.router.route_test.v1` wire contract emitted
// by `omni route test --json`.
type RouteTestPayload struct {
	Schema            string             `json:"schema"`
	Query             string             `json:"query"`
	Count             int                `json:"count"`
	Results           []ToolRouterResult `json:"results"`
	ConfidenceProfile string             `json:"confidence_profile"`
	Stats             map[string]any     `json:"stats,omitempty"`
}

// forbiddenField is the legacy field name disallowed on vector/hybrid rows;
// routing_keywords is only valid within tool_search payloads.
const forbiddenField = "keywords"

// ValidatePayload rejects unknown schema strings and the forbidden legacy
// `keywords` field (fail-closed, per the manifest invariants). The
// forbidden-field check applies to tool_search rows too: "routing_keywords"
// is the only legal field name there, never "keywords" (see
// `omni db validate-schema` in cmd/omnikernel).
func ValidatePayload(schema string, raw map[string]any) error {
	switch schema {
	case SchemaVectorSearchV1, SchemaVectorHybridV1, SchemaVectorToolSearchV1:
		if _, ok := raw[forbiddenField]; ok {
			return kernelerr.New(kernelerr.KindSchemaRejected, "manifest", "ValidatePayload",
				fmt.Sprintf("field %q is forbidden on schema %q; use routing_keywords within tool_search", forbiddenField, schema))
		}
		return nil
	case SchemaRouterRouteTestV1:
		return nil
	default:
		return kernelerr.New(kernelerr.KindSchemaRejected, "manifest", "ValidatePayload",
			fmt.Sprintf("unrecognized schema %q", schema))
	}
}
