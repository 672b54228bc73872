package persistence

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/omnikernel/kernel/pkg/kernelerr"
)

const defaultBatchSize = 28000

// ChunkedSession is a large item set persisted once and served back in
// fixed-size batches, per spec.md §4.15.
type ChunkedSession struct {
	ID        string   `json:"id"`
	BatchSize int      `json:"batch_size"`
	Items     []string `json:"items"`
}

// StartPayload is the action=start response: session metadata without
// item content.
type StartPayload struct {
	SessionID  string `json:"session_id"`
	TotalItems int    `json:"total_items"`
	BatchSize  int    `json:"batch_size"`
	BatchCount int    `json:"batch_count"`
}

// BatchPayload is the action=batch(n) response: one page of items.
type BatchPayload struct {
	SessionID  string   `json:"session_id"`
	BatchIndex int      `json:"batch_index"`
	Items      []string `json:"items"`
}

// ChunkedSessionStore creates, persists, and serves ChunkedSessions.
type ChunkedSessionStore struct {
	store     *WorkflowStateStore
	batchSize int
}

// NewChunkedSessionStore opens a chunked-session store under baseDir.
// batchSize <= 0 uses the spec default of 28000.
func NewChunkedSessionStore(baseDir string, batchSize int) (*ChunkedSessionStore, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	store, err := NewWorkflowStateStore(baseDir, "chunked_session")
	if err != nil {
		return nil, err
	}
	return &ChunkedSessionStore{store: store, batchSize: batchSize}, nil
}

// Create persists items as a new ChunkedSession and returns its id.
func (c *ChunkedSessionStore) Create(items []string) (string, error) {
	id := uuid.NewString()
	session := ChunkedSession{ID: id, BatchSize: c.batchSize, Items: items}
	if err := c.store.Save(id, session); err != nil {
		return "", err
	}
	return id, nil
}

func (c *ChunkedSessionStore) load(sessionID string) (ChunkedSession, error) {
	var session ChunkedSession
	if err := c.store.Load(sessionID, &session); err != nil {
		return ChunkedSession{}, err
	}
	return session, nil
}

// Start returns sessionID's metadata for the action=start payload.
func (c *ChunkedSessionStore) Start(sessionID string) (StartPayload, error) {
	session, err := c.load(sessionID)
	if err != nil {
		return StartPayload{}, err
	}
	return StartPayload{
		SessionID:  session.ID,
		TotalItems: len(session.Items),
		BatchSize:  session.BatchSize,
		BatchCount: batchCount(len(session.Items), session.BatchSize),
	}, nil
}

// Batch returns the n-th page (0-indexed) of sessionID's items for the
// action=batch(n) payload. An unknown session or an out-of-range index
// returns a structured *kernelerr.Error.
func (c *ChunkedSessionStore) Batch(sessionID string, n int) (BatchPayload, error) {
	session, err := c.load(sessionID)
	if err != nil {
		return BatchPayload{}, err
	}

	total := batchCount(len(session.Items), session.BatchSize)
	if n < 0 || n >= total {
		return BatchPayload{}, kernelerr.New(kernelerr.KindWorkflowStateMissing, "persistence", "Batch",
			fmt.Sprintf("batch index %d out of range [0,%d) for session %s", n, total, sessionID))
	}

	start := n * session.BatchSize
	end := start + session.BatchSize
	if end > len(session.Items) {
		end = len(session.Items)
	}
	return BatchPayload{SessionID: sessionID, BatchIndex: n, Items: session.Items[start:end]}, nil
}

func batchCount(totalItems, batchSize int) int {
	if totalItems == 0 {
		return 0
	}
	return (totalItems + batchSize - 1) / batchSize
}
