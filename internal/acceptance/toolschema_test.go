package acceptance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnikernel/kernel/pkg/agentloop"
	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/harness"
	"github.com/omnikernel/kernel/pkg/kernel"
	"github.com/omnikernel/kernel/pkg/llmclient"
)

const toolSchemaManifest = "---\nname: ops\nversion: \"1\"\ndescription: mixed core and dynamic commands\n---\n"

const toolSchemaScript = `package scripts

//skill_command:name=status,category=core,description="core status check"
func Status() string {
	return "ok"
}

//skill_command:name=discover,category=core,description="discover skills"
func Discover() string {
	return "[]"
}

//skill_command:name=ship,category=deploy,description="ship to production"
func Ship() string {
	return "shipped"
}
`

func coreSchemas(cmds []*kernel.Command) []agentloop.CommandSchema {
	out := make([]agentloop.CommandSchema, len(cmds))
	for i, c := range cmds {
		name := c.QualifiedName()
		if c.Name == "discover" {
			name = "skill.discover"
		}
		out[i] = agentloop.CommandSchema{Name: name, Description: c.Description, Schema: c.Schema}
	}
	return out
}

// The adaptive tool schema list offered to the LLM always puts
// skill.discover first, truncates to max_tool_schemas, and never contains
// a dynamic (skill-activation-gated) command: GetCoreCommands excludes
// them at the source, so they can never reach the catalog in the first
// place.
func TestAdaptiveToolSchemasFilterDynamicCommands(t *testing.T) {
	root := t.TempDir()
	harness.WriteSkill(t, root, "ops", toolSchemaManifest, toolSchemaScript)

	stub := func(ctx context.Context, args map[string]any) (string, error) { return "ok", nil }
	kernel.RegisterCommand("ops.status", stub)
	kernel.RegisterCommand("ops.discover", stub)
	kernel.RegisterCommand("ops.ship", stub)

	k := kernel.New(root, 1)
	_, stats := k.LoadAll(context.Background())
	require.Equal(t, 1, stats.Loaded)

	core := k.GetCoreCommands()
	dynamic := k.GetDynamicCommands()
	require.Len(t, core, 2, "status and discover are core")
	require.Len(t, dynamic, 1, "ship is dynamic")
	assert.Equal(t, "ship", dynamic[0].Name)

	cfg := config.AgentConfig{}
	cfg.SetDefaults()
	cfg.MaxToolSchemas = 1

	catalog := harness.FakeCatalog{Commands: coreSchemas(core)}
	executor := &harness.FakeExecutor{Output: "ok"}
	provider := &harness.StubProvider{Steps: []harness.ScriptedStep{
		{Completion: llmclient.Completion{Text: "done"}},
	}}

	loop := agentloop.New(cfg, provider, nil, executor, catalog, nil, "system prompt")
	_, err := loop.Run(context.Background(), "session-1", "what can I do?")
	require.NoError(t, err)

	require.Len(t, provider.SeenTools, 1)
	offered := provider.SeenTools[0]
	require.Len(t, offered, 1, "truncated to max_tool_schemas")
	assert.Equal(t, "skill.discover", offered[0].Name, "skill.discover must survive truncation")

	for _, d := range offered {
		assert.NotEqual(t, "ops.ship", d.Name, "a dynamic command must never be offered")
	}
}
