package scanner

import "github.com/omnikernel/kernel/pkg/manifest"

// Diff is the `{added, updated, deleted, unchanged}` result incremental-sync
// consumers use, keyed by (tool_name, file_hash) pairs.
type Diff struct {
	Added     []manifest.ToolRecord
	Updated   []manifest.ToolRecord
	Deleted   []manifest.ToolRecord
	Unchanged []manifest.ToolRecord
}

// DiffRecords compares two ToolRecord sets by tool_name + file_hash.
// Scanning the same tree twice is deterministic, so DiffRecords(x, x) is
// always {added:nil, updated:nil, deleted:nil, unchanged:x}.
func DiffRecords(newRecords, oldRecords []manifest.ToolRecord) Diff {
	oldByName := make(map[string]manifest.ToolRecord, len(oldRecords))
	for _, r := range oldRecords {
		oldByName[r.ToolName] = r
	}
	newByName := make(map[string]manifest.ToolRecord, len(newRecords))

	var d Diff
	for _, r := range newRecords {
		newByName[r.ToolName] = r
		old, existed := oldByName[r.ToolName]
		switch {
		case !existed:
			d.Added = append(d.Added, r)
		case old.FileHash != r.FileHash:
			d.Updated = append(d.Updated, r)
		default:
			d.Unchanged = append(d.Unchanged, r)
		}
	}
	for name, r := range oldByName {
		if _, stillPresent := newByName[name]; !stillPresent {
			d.Deleted = append(d.Deleted, r)
		}
	}
	return d
}
