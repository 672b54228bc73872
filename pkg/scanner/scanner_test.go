package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnikernel/kernel/pkg/manifest"
)

func writeSkill(t *testing.T, root, name, manifestBody, scriptBody string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(manifestBody), 0o644))
	if scriptBody != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "tools.go"), []byte(scriptBody), 0o644))
	}
}

const gitManifest = "---\nname: git\nversion: \"1\"\ndescription: git operations\nrouting_keywords: [commit, push]\n---\n"

const gitScript = `package scripts

//skill_command:name=status,category=query,description="return git status"
func Status() string {
	return "clean"
}
`

func TestScanLoadsHealthySkillAndIsolatesToxicNeighbour(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "git", gitManifest, gitScript)

	toxicManifest := "---\nname: toxic_syntax\nversion: \"1\"\ndescription: broken\n---\n"
	toxicScript := "package scripts\n\nfunc broken( {\n"
	writeSkill(t, root, "toxic_syntax", toxicManifest, toxicScript)

	skills, errs := Scan(root)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].SkillDir, "toxic_syntax")

	require.Len(t, skills, 1)
	assert.Equal(t, "git", skills[0].Name)
	require.Len(t, skills[0].Commands, 1)
	assert.Equal(t, "git.status", skills[0].Commands[0].ToolName)
	assert.Equal(t, "return git status", skills[0].Commands[0].Description)
	assert.ElementsMatch(t, []string{"commit", "push"}, skills[0].Manifest.RoutingKeywords)
}

func TestScanEmptyFrontMatterIsManifestInvalid(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "empty", "---\n---\n", gitScript)

	_, errs := Scan(root)
	require.Len(t, errs, 1)
}

func TestScanIsDeterministic(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "git", gitManifest, gitScript)

	first, errs1 := Scan(root)
	second, errs2 := Scan(root)
	require.Empty(t, errs1)
	require.Empty(t, errs2)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Commands, second[0].Commands)
}

func TestDiffRecordsIdempotentOnUnchangedScan(t *testing.T) {
	records := []manifest.ToolRecord{
		{ToolName: "git.status", FileHash: "abc"},
	}
	d := DiffRecords(records, records)
	assert.Empty(t, d.Added)
	assert.Empty(t, d.Updated)
	assert.Empty(t, d.Deleted)
	assert.Equal(t, records, d.Unchanged)
}

func TestDiffRecordsDetectsAddedUpdatedDeleted(t *testing.T) {
	old := []manifest.ToolRecord{
		{ToolName: "git.status", FileHash: "abc"},
		{ToolName: "git.push", FileHash: "xyz"},
	}
	next := []manifest.ToolRecord{
		{ToolName: "git.status", FileHash: "def"}, // updated
		{ToolName: "git.pull", FileHash: "new"},   // added
	}
	d := DiffRecords(next, old)
	require.Len(t, d.Updated, 1)
	assert.Equal(t, "git.status", d.Updated[0].ToolName)
	require.Len(t, d.Added, 1)
	assert.Equal(t, "git.pull", d.Added[0].ToolName)
	require.Len(t, d.Deleted, 1)
	assert.Equal(t, "git.push", d.Deleted[0].ToolName)
}

func TestSynthesizeSchemaFromFunctionSignature(t *testing.T) {
	root := t.TempDir()
	script := `package scripts

//skill_command:name=commit,category=action,description="commit changes"
func Commit(message string, amend bool, depth int) string {
	return "ok"
}
`
	writeSkill(t, root, "git", gitManifest, script)
	skills, errs := Scan(root)
	require.Empty(t, errs)
	require.Len(t, skills, 1)
	require.Len(t, skills[0].Commands, 1)

	schema := skills[0].Commands[0].InputSchema
	props := schema["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, props["message"])
	assert.Equal(t, map[string]any{"type": "boolean"}, props["amend"])
	assert.Equal(t, map[string]any{"type": "integer"}, props["depth"])
}
