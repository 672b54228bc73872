// Package persistence implements a content-addressed key/value store for
// workflow state and chunked sessions. Grounded on the teacher's
// checkpoint persistence style (JSON-serialize a struct, key it, write
// it, read it back) adapted from a session-service-backed table store —
// which does not exist in this module — to a plain content-addressed
// file store, since the kernel has no session.Service equivalent to
// lean on.
package persistence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/omnikernel/kernel/pkg/kernelerr"
)

// WorkflowStateStore is a content-addressed key/value store scoped to one
// workflow type: save/load/delete(workflow_id). Content is stored once
// per unique hash; an index file maps workflow_id to the content hash
// currently associated with it, so re-saving identical state does not
// rewrite its content blob (the index file is still rewritten).
type WorkflowStateStore struct {
	workflowType string
	dir          string

	mu    sync.Mutex
	index map[string]string // workflow_id -> content hash
}

// NewWorkflowStateStore opens (creating if absent) the on-disk store for
// one workflow type under baseDir/<workflow_type>/.
func NewWorkflowStateStore(baseDir, workflowType string) (*WorkflowStateStore, error) {
	dir := filepath.Join(baseDir, workflowType)
	if err := os.MkdirAll(filepath.Join(dir, "blobs"), 0o755); err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindPersistenceCorrupt, "persistence", "NewWorkflowStateStore", dir, err)
	}

	store := &WorkflowStateStore{workflowType: workflowType, dir: dir, index: make(map[string]string)}
	if err := store.loadIndex(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *WorkflowStateStore) indexPath() string { return filepath.Join(s.dir, "index.json") }
func (s *WorkflowStateStore) blobPath(hash string) string {
	return filepath.Join(s.dir, "blobs", hash+".json")
}

func (s *WorkflowStateStore) loadIndex() error {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return kernelerr.Wrap(kernelerr.KindPersistenceCorrupt, "persistence", "loadIndex", s.indexPath(), err)
	}
	if err := json.Unmarshal(data, &s.index); err != nil {
		return kernelerr.Wrap(kernelerr.KindPersistenceCorrupt, "persistence", "loadIndex", s.indexPath(), err)
	}
	return nil
}

func (s *WorkflowStateStore) saveIndex() error {
	data, err := json.Marshal(s.index)
	if err != nil {
		return kernelerr.Wrap(kernelerr.KindPersistenceCorrupt, "persistence", "saveIndex", s.indexPath(), err)
	}
	if err := os.WriteFile(s.indexPath(), data, 0o644); err != nil {
		return kernelerr.Wrap(kernelerr.KindPersistenceCorrupt, "persistence", "saveIndex", s.indexPath(), err)
	}
	return nil
}

// Save serializes state to JSON, writes it under its content hash
// (skipping the write if that blob already exists), and points
// workflowID at it.
func (s *WorkflowStateStore) Save(workflowID string, state any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return kernelerr.Wrap(kernelerr.KindPersistenceCorrupt, "persistence", "Save", workflowID, err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.blobPath(hash)); os.IsNotExist(err) {
		if err := os.WriteFile(s.blobPath(hash), data, 0o644); err != nil {
			return kernelerr.Wrap(kernelerr.KindPersistenceCorrupt, "persistence", "Save", workflowID, err)
		}
	}

	s.index[workflowID] = hash
	return s.saveIndex()
}

// Load looks up workflowID's current content hash and unmarshals its blob
// into out.
func (s *WorkflowStateStore) Load(workflowID string, out any) error {
	s.mu.Lock()
	hash, ok := s.index[workflowID]
	s.mu.Unlock()
	if !ok {
		return kernelerr.New(kernelerr.KindWorkflowStateMissing, "persistence", "Load", "no state for workflow "+workflowID)
	}

	data, err := os.ReadFile(s.blobPath(hash))
	if err != nil {
		return kernelerr.Wrap(kernelerr.KindPersistenceCorrupt, "persistence", "Load", workflowID, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return kernelerr.Wrap(kernelerr.KindPersistenceCorrupt, "persistence", "Load", workflowID, err)
	}
	return nil
}

// Delete removes workflowID from the index. The underlying content blob
// is left in place: other workflow ids may share it by hash.
func (s *WorkflowStateStore) Delete(workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[workflowID]; !ok {
		return kernelerr.New(kernelerr.KindWorkflowStateMissing, "persistence", "Delete", "no state for workflow "+workflowID)
	}
	delete(s.index, workflowID)
	return s.saveIndex()
}
