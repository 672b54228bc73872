package skillsindex

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"

	"github.com/omnikernel/kernel/pkg/kernelerr"
)

// Install clones entry's GitHub repository into quarantineDir/entry.ID —
// candidate skills land in quarantine, not the live skills root, so the
// Immune System gate (pkg/immune) must admit them before the scanner ever
// picks them up. Returns the path the skill was cloned into.
func Install(ctx context.Context, entry Entry, quarantineDir string) (string, error) {
	dest := filepath.Join(quarantineDir, entry.ID)
	if _, err := os.Stat(dest); err == nil {
		return "", kernelerr.New(kernelerr.KindManifestInvalid, "skillsindex", "Install", dest+" already exists")
	}

	if err := os.MkdirAll(quarantineDir, 0o755); err != nil {
		return "", kernelerr.Wrap(kernelerr.KindManifestInvalid, "skillsindex", "Install", quarantineDir, err)
	}

	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:   entry.URL,
		Depth: 1,
	})
	if err != nil {
		return "", kernelerr.Wrap(kernelerr.KindManifestInvalid, "skillsindex", "Install", entry.URL, err)
	}
	return dest, nil
}
