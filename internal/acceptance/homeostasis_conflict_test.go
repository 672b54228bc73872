package acceptance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/homeostasis"
)

func writeGoFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// Two tasks that both touch a Database type, one of which drops its
// Timeout attribute, conflict at critical severity and are not
// auto-resolvable.
func TestHomeostasisConflictSeverity(t *testing.T) {
	cfg := config.HomeostasisConfig{RepoPath: t.TempDir()}
	cfg.SetDefaults()
	mgr, err := homeostasis.NewManager(cfg)
	require.NoError(t, err)

	txA, err := mgr.Begin("task-a")
	require.NoError(t, err)
	txB, err := mgr.Begin("task-b")
	require.NoError(t, err)

	dir := t.TempDir()
	fileA := writeGoFile(t, dir, "a.go", `package db

type Database struct {
	Connection string
	Timeout    int
}
`)
	fileB := writeGoFile(t, dir, "b.go", `package db

type Database struct {
	Connection string
}
`)
	require.NoError(t, mgr.RecordChanges(txA.TaskID, []string{fileA}))
	require.NoError(t, mgr.RecordChanges(txB.TaskID, []string{fileB}))

	// Both tasks touched the same logical file in the real scenario this
	// mirrors; alias txB's recorded symbols onto fileA's path so the
	// detector compares them as the same file.
	txB.Changes.Files[fileA] = txB.Changes.Files[fileB]
	delete(txB.Changes.Files, fileB)

	report, err := mgr.ConflictCheck([]string{txA.TaskID, txB.TaskID})
	require.NoError(t, err)

	assert.Equal(t, homeostasis.SeverityCritical, report.MaxSeverity)
	assert.False(t, report.AutoResolvable, "a critical conflict is never auto-resolvable")
	require.NotEmpty(t, report.Conflicts)
	assert.Equal(t, homeostasis.ConflictClassAttributesRemoved, report.Conflicts[0].Type)
}
