package manifest

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ParseFrontMatter decodes SKILL.md front-matter with unknown fields
// rejected (fail-closed), then validates the required keys.
func ParseFrontMatter(raw []byte) (*SkillManifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var m SkillManifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing front-matter: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// toolSearchSchemaDoc is the JSON-Schema every tool_search InputSchema is
// checked against: an object schema with string-keyed properties.
const toolSearchSchemaDoc = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "type": {"const": "object"},
    "properties": {"type": "object"},
    "required": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["type", "properties"]
}`

var toolSearchSchema = mustCompile(toolSearchSchemaDoc)

func mustCompile(doc string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("input_schema.json", bytes.NewReader([]byte(doc))); err != nil {
		panic(err)
	}
	s, err := c.Compile("input_schema.json")
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateInputSchema checks that an input_schema (such as one the scanner
// synthesizes) is shaped like a JSON-Schema object schema.
func ValidateInputSchema(schema map[string]any) error {
	if schema == nil {
		return nil
	}
	return toolSearchSchema.Validate(schema)
}
