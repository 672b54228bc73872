package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/harness"
	"github.com/omnikernel/kernel/pkg/kernel"
)

func stubCommand(ctx context.Context, args map[string]any) (string, error) { return "ok", nil }

const engineTestManifest = "---\nname: ops\nversion: \"1\"\ndescription: operational commands\n---\n"
const engineTestScript = `package scripts

//skill_command:name=status,category=core,description="status check"
func Status() string {
	return "ok"
}
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	skillsRoot := t.TempDir()
	harness.WriteSkill(t, skillsRoot, "ops", engineTestManifest, engineTestScript)
	kernel.RegisterCommand("ops.status", stubCommand)

	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Skills.Root = skillsRoot
	cfg.VectorStore.Provider = "chromem"
	cfg.VectorStore.Path = t.TempDir()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.APIKey = "test-key"
	cfg.Homeostasis.RepoPath = t.TempDir()
	cfg.Server.Address = "127.0.0.1:0"
	return cfg
}

func TestNewWiresEverySubsystem(t *testing.T) {
	e, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)

	require.NotNil(t, e.Kernel())
	require.NotNil(t, e.Router())
	require.NotNil(t, e.Loop())
	require.NotNil(t, e.Evolution())
	require.NotNil(t, e.Homeostasis())
	require.NotNil(t, e.Observability())
	require.NotNil(t, e.Server())

	core := e.Kernel().GetCoreCommands()
	require.Len(t, core, 1)
	assert.Equal(t, "status", core[0].Name)
}

func TestRouterIndexedAtStartupFindsCoreTool(t *testing.T) {
	e, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)

	result, err := e.Router().Route(context.Background(), "check status")
	require.NoError(t, err)
	assert.Contains(t, result.SelectedTools, "ops.status")
}

func TestReloadRefreshesRouterIndexAfterNewSkill(t *testing.T) {
	cfg := testConfig(t)
	e, err := New(context.Background(), cfg)
	require.NoError(t, err)

	harness.WriteSkill(t, cfg.Skills.Root, "deploy", "---\nname: deploy\nversion: \"1\"\ndescription: deployment commands\n---\n", `package scripts

//skill_command:name=ship,category=core,description="ship to production"
func Ship() string {
	return "shipped"
}
`)
	kernel.RegisterCommand("deploy.ship", stubCommand)

	require.NoError(t, e.Reload(context.Background()))

	core := e.Kernel().GetCoreCommands()
	names := make([]string, len(core))
	for i, c := range core {
		names[i] = c.SkillName + "." + c.Name
	}
	assert.Contains(t, names, "deploy.ship")

	result, err := e.Router().Route(context.Background(), "ship to production")
	require.NoError(t, err)
	assert.Contains(t, result.SelectedTools, "deploy.ship")
}

func TestShutdownIsSafeWithoutObservabilityEnabled(t *testing.T) {
	e, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	assert.NoError(t, e.Shutdown(context.Background()))
}
