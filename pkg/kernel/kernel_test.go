package kernel

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, root, name, manifestBody, scriptBody string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(manifestBody), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "tools.go"), []byte(scriptBody), 0o644))
	return dir
}

const gitManifest = "---\nname: git\nversion: \"1\"\ndescription: git operations\n---\n"

const gitScript = `package scripts

//skill_command:name=status,category=core,description="return git status"
func Status() string {
	return "clean"
}
`

func TestLoadAllHotReloadPreservesHealthySkills(t *testing.T) {
	RegisterCommand("git.status", func(ctx context.Context, args map[string]any) (string, error) {
		return "clean", nil
	})

	root := t.TempDir()
	writeSkill(t, root, "git", gitManifest, gitScript)

	toxicManifest := "---\nname: toxic_syntax\nversion: \"1\"\ndescription: broken\n---\n"
	toxicScript := "package scripts\n\nfunc broken( {\n"
	writeSkill(t, root, "toxic_syntax", toxicManifest, toxicScript)

	k := New(root, 4)
	results, stats := k.LoadAll(context.Background())

	assert.Equal(t, 1, stats.Loaded)
	assert.Equal(t, 1, stats.Failed)

	var sawGitOK, sawToxicFail bool
	for _, r := range results {
		if r.SkillName == "git" && r.Err == nil {
			sawGitOK = true
		}
		if r.SkillName == "toxic_syntax" && r.Err != nil {
			sawToxicFail = true
		}
	}
	assert.True(t, sawGitOK)
	assert.True(t, sawToxicFail)

	out, err := k.ExecuteTool(context.Background(), "git", "status", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "clean", out)
}

func TestGetSkillTransparentlyHotReloadsOnMtimeChange(t *testing.T) {
	RegisterCommand("reloadtest.status", func(ctx context.Context, args map[string]any) (string, error) {
		return "v1", nil
	})

	root := t.TempDir()
	manifestBody := "---\nname: reloadtest\nversion: \"1\"\ndescription: x\n---\n"
	script := `package scripts

//skill_command:name=status,category=core,description="d"
func Status() string { return "v1" }
`
	writeSkill(t, root, "reloadtest", manifestBody, script)

	k := New(root, 4)
	_, _ = k.LoadAll(context.Background())

	out, err := k.ExecuteTool(context.Background(), "reloadtest", "status", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "v1", out)

	// Simulate a later edit: newer mtime on scripts/, new registered callable.
	time.Sleep(10 * time.Millisecond)
	RegisterCommand("reloadtest.status2", func(ctx context.Context, args map[string]any) (string, error) {
		return "v2", nil
	})
	script2 := `package scripts

//skill_command:name=status2,category=core,description="d2"
func Status2() string { return "v2" }
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "reloadtest", "scripts", "tools.go"), []byte(script2), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(root, "reloadtest", "scripts", "tools.go"), future, future))

	skill, err := k.GetSkill("reloadtest")
	require.NoError(t, err)
	_, hasOld := skill.Commands["status"]
	_, hasNew := skill.Commands["status2"]
	assert.False(t, hasOld)
	assert.True(t, hasNew)
}

func TestGetCoreAndDynamicCommandsPartition(t *testing.T) {
	RegisterCommand("partition.core_cmd", func(ctx context.Context, args map[string]any) (string, error) {
		return "ok", nil
	})
	RegisterCommand("partition.dyn_cmd", func(ctx context.Context, args map[string]any) (string, error) {
		return "ok", nil
	})

	root := t.TempDir()
	manifestBody := "---\nname: partition\nversion: \"1\"\ndescription: x\n---\n"
	script := `package scripts

//skill_command:name=core_cmd,category=core,description="c"
func CoreCmd() string { return "ok" }

//skill_command:name=dyn_cmd,category=dynamic,description="d"
func DynCmd() string { return "ok" }
`
	writeSkill(t, root, "partition", manifestBody, script)

	k := New(root, 4)
	_, _ = k.LoadAll(context.Background())

	core := k.GetCoreCommands()
	dyn := k.GetDynamicCommands()
	require.Len(t, core, 1)
	require.Len(t, dyn, 1)
	assert.Equal(t, "core_cmd", core[0].Name)
	assert.Equal(t, "dyn_cmd", dyn[0].Name)
}

func TestExecuteToolHelpReturnsContextBundle(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "git", gitManifest, gitScript)

	k := New(root, 4)
	_, _ = k.LoadAll(context.Background())

	out, err := k.ExecuteTool(context.Background(), "git", "help", nil, "")
	require.NoError(t, err)
	assert.Contains(t, out, "git")
}
