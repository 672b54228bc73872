package memory

import (
	"context"

	"github.com/omnikernel/kernel/pkg/kernelerr"
	"github.com/omnikernel/kernel/pkg/vectorstore"
)

// Embedder turns text into a vector. A function type so a real embedding
// model can replace vectorstore.HashEmbed without Manager changing.
type Embedder func(text string) []float32

// Manager is episodic memory's storage and retrieval layer: one vector
// store collection, one record per completed task. Grounded on
// manager.py's MemoryManager (add_experience/recall/get_recent/count).
type Manager struct {
	store      vectorstore.Provider
	embed      Embedder
	collection string
}

// NewManager constructs a Manager. A nil store is never passed in
// production (callers fall back to vectorstore.NilProvider instead); store
// is not checked here, so a nil store panics on the first store call.
func NewManager(store vectorstore.Provider, embed Embedder, collection string) *Manager {
	if embed == nil {
		embed = vectorstore.HashEmbed
	}
	if collection == "" {
		collection = "interaction_log"
	}
	return &Manager{store: store, embed: embed, collection: collection}
}

// AddExperience records one completed task as an InteractionLog and
// returns its ID.
func (m *Manager) AddExperience(ctx context.Context, userQuery string, toolCalls []string, outcome, errorMsg, reflection, sessionID string) (string, error) {
	log := NewInteractionLog(userQuery, sessionID, toolCalls, outcome, errorMsg, reflection)

	vector := m.embed(log.embedText())
	if err := m.store.Upsert(ctx, m.collection, log.ID, vector, log.toMetadata()); err != nil {
		return "", kernelerr.Wrap(kernelerr.KindMemoryUnavailable, "memory", "AddExperience", "upsert failed", err)
	}
	return log.ID, nil
}

// Recall retrieves past experiences relevant to query, optionally filtered
// to one outcome. Fetches 2x limit before dedup/filter, matching
// recall()'s "get more for filtering" overfetch.
func (m *Manager) Recall(ctx context.Context, query string, limit int, outcomeFilter string) ([]InteractionLog, error) {
	if limit <= 0 {
		limit = 3
	}
	vector := m.embed(query)

	results, err := m.store.Search(ctx, m.collection, vector, limit*2)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindMemoryUnavailable, "memory", "Recall", "search failed", err)
	}

	seen := make(map[string]bool, len(results))
	logs := make([]InteractionLog, 0, limit)
	for _, r := range results {
		if len(logs) >= limit {
			break
		}
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true

		outcome, _ := r.Metadata["outcome"].(string)
		if outcomeFilter != "" && outcome != outcomeFilter {
			continue
		}

		timestamp, _ := r.Metadata["timestamp"].(string)
		logs = append(logs, interactionLogFromMetadata(r.ID, outcome, r.Content, timestamp, r.Metadata))
	}
	return logs, nil
}

// GetRecent returns the most recent memories regardless of query
// relevance, matching get_recent()'s empty-query search.
func (m *Manager) GetRecent(ctx context.Context, limit int) ([]InteractionLog, error) {
	if limit <= 0 {
		limit = 5
	}
	results, err := m.store.Search(ctx, m.collection, m.embed(""), limit)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindMemoryUnavailable, "memory", "GetRecent", "search failed", err)
	}

	logs := make([]InteractionLog, 0, len(results))
	for _, r := range results {
		outcome, _ := r.Metadata["outcome"].(string)
		timestamp, _ := r.Metadata["timestamp"].(string)
		logs = append(logs, interactionLogFromMetadata(r.ID, outcome, r.Content, timestamp, r.Metadata))
	}
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
