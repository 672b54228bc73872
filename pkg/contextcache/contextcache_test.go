package contextcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnikernel/kernel/pkg/manifest"
)

func TestBuildAssemblesCommandsAndGuide(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide.md"), []byte("how to use git"), 0o644))

	m := &manifest.SkillManifest{Name: "git", Version: "1", Description: "git ops"}
	commands := []manifest.ToolRecord{{ToolName: "git.status", Description: "show status"}}

	bundle, err := Build(dir, m, commands)
	require.NoError(t, err)
	assert.False(t, bundle.FellBack)
	assert.Contains(t, bundle.Content, "git.status")
	assert.Contains(t, bundle.Content, "how to use git")
}

func TestBuildWithoutGuideOrCommandsStillProducesBundle(t *testing.T) {
	// No guide.md and no commands still produces a minimal bundle, not an error.
	dir := t.TempDir()
	m := &manifest.SkillManifest{Name: "git", Version: "1", Description: "git ops"}

	bundle, err := Build(dir, m, nil)
	require.NoError(t, err)
	assert.Contains(t, bundle.Content, "git")
}
