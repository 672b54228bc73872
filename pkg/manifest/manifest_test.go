package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontMatterRejectsEmpty(t *testing.T) {
	_, err := ParseFrontMatter([]byte("---\n---\n"))
	require.Error(t, err)
}

func TestParseFrontMatterRejectsMissingKeys(t *testing.T) {
	_, err := ParseFrontMatter([]byte("name: git\n"))
	require.Error(t, err)
}

func TestParseFrontMatterRejectsUnknownFields(t *testing.T) {
	raw := []byte("name: git\nversion: \"1\"\ndescription: \"git ops\"\nbogus_field: true\n")
	_, err := ParseFrontMatter(raw)
	require.Error(t, err)
}

func TestParseFrontMatterValid(t *testing.T) {
	raw := []byte("name: git\nversion: \"1\"\ndescription: \"git ops\"\nrouting_keywords: [commit, push]\n")
	m, err := ParseFrontMatter(raw)
	require.NoError(t, err)
	assert.Equal(t, "git", m.Name)
	assert.ElementsMatch(t, []string{"commit", "push"}, m.RoutingKeywords)
}

func TestValidatePayloadRejectsForbiddenKeywordsField(t *testing.T) {
	err := ValidatePayload(SchemaVectorSearchV1, map[string]any{"keywords": []string{"x"}})
	require.Error(t, err)
}

func TestValidatePayloadRejectsForbiddenKeywordsFieldOnToolSearch(t *testing.T) {
	err := ValidatePayload(SchemaVectorToolSearchV1, map[string]any{"keywords": []string{"x"}})
	require.Error(t, err)
}

func TestValidatePayloadAcceptsRoutingKeywordsOnToolSearch(t *testing.T) {
	err := ValidatePayload(SchemaVectorToolSearchV1, map[string]any{"routing_keywords": []string{"x"}})
	require.NoError(t, err)
}

func TestValidatePayloadRejectsUnknownSchema(t *testing.T) {
	err := ValidatePayload("omni.vector.mystery.v9", map[string]any{})
	require.Error(t, err)
}

func TestValidateInputSchemaRequiresObjectType(t *testing.T) {
	err := ValidateInputSchema(map[string]any{"type": "string", "properties": map[string]any{}})
	require.Error(t, err)
}

func TestValidateInputSchemaAcceptsValid(t *testing.T) {
	err := ValidateInputSchema(map[string]any{
		"type":       "object",
		"properties": map[string]any{"path": map[string]any{"type": "string"}},
	})
	require.NoError(t, err)
}
