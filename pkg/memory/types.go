// Package memory implements episodic memory: one structured record per
// completed task (query, tools used, outcome, a synthesized reflection),
// embedded and stored in the vector store for later semantic recall.
// Grounded on original_source's agent/core/memory package (types.py,
// manager.py, interceptor.py); the teacher's pkg/memory implements a
// different thing entirely (conversational-history buffering/summarization
// keyed by agent_id+session_id) and is not reused here — see DESIGN.md.
package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InteractionLog is one episode: a query, what was done about it, and
// what was learned. The core retrieval unit for episodic recall.
type InteractionLog struct {
	ID        string
	Timestamp string

	UserQuery string
	SessionID string

	ToolCalls []string

	Outcome  string // "success" or "failure"
	ErrorMsg string

	Reflection string
}

// NewInteractionLog stamps an ID and timestamp the way types.py's
// InteractionLog default_factory fields do.
func NewInteractionLog(userQuery, sessionID string, toolCalls []string, outcome, errorMsg, reflection string) InteractionLog {
	return InteractionLog{
		ID:         uuid.New().String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		UserQuery:  userQuery,
		SessionID:  sessionID,
		ToolCalls:  toolCalls,
		Outcome:    outcome,
		ErrorMsg:   errorMsg,
		Reflection: reflection,
	}
}

// embedText builds the text that gets embedded for similarity search:
// query and reflection concatenated so "similar problem" and "solution"
// both match, matching to_vector_record()'s format: Query and Reflection
// lines, plus an Error line when ErrorMsg is set.
func (l InteractionLog) embedText() string {
	parts := []string{
		fmt.Sprintf("Query: %s", l.UserQuery),
		fmt.Sprintf("Reflection: %s", l.Reflection),
	}
	if l.ErrorMsg != "" {
		parts = append(parts, fmt.Sprintf("Error: %s", l.ErrorMsg))
	}
	return strings.Join(parts, "\n")
}

// toMetadata flattens the log into the map stored alongside the vector,
// used both to reconstruct the full record on recall and to filter by
// outcome without re-parsing the embedded text.
func (l InteractionLog) toMetadata() map[string]any {
	return map[string]any{
		"id":         l.ID,
		"timestamp":  l.Timestamp,
		"user_query": l.UserQuery,
		"session_id": l.SessionID,
		"tool_calls": l.ToolCalls,
		"outcome":    l.Outcome,
		"error_msg":  l.ErrorMsg,
		"reflection": l.Reflection,
	}
}

// Summary renders a short one-line form for logging, matching
// to_summary()'s "[status] query -> reflection" shape.
func (l InteractionLog) Summary() string {
	status := "✗"
	if l.Outcome == "success" {
		status = "✓"
	}
	return fmt.Sprintf("[%s] %s -> %s", status, truncate(l.UserQuery, 50), truncate(l.Reflection, 50))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// interactionLogFromMetadata reconstructs a log from a vector store result's
// metadata map, falling back to the id/outcome/content already on the
// result when the stored record is structured differently than expected.
func interactionLogFromMetadata(id, outcome, content, timestamp string, metadata map[string]any) InteractionLog {
	userQuery, _ := metadata["user_query"].(string)
	if userQuery == "" {
		// Fallback: the record predates structured metadata, or came from
		// an external write. Reconstruct what we can from the embedded text.
		return InteractionLog{
			ID:         id,
			Timestamp:  timestamp,
			UserQuery:  "Retrieved from memory",
			Outcome:    orDefault(outcome, "unknown"),
			Reflection: orDefault(truncate(content, 500), "No content"),
		}
	}

	log := InteractionLog{
		ID:         id,
		Timestamp:  timestamp,
		UserQuery:  userQuery,
		Outcome:    outcome,
	}
	if sid, ok := metadata["session_id"].(string); ok {
		log.SessionID = sid
	}
	if em, ok := metadata["error_msg"].(string); ok {
		log.ErrorMsg = em
	}
	if refl, ok := metadata["reflection"].(string); ok {
		log.Reflection = refl
	}
	log.ToolCalls = toStringSlice(metadata["tool_calls"])
	return log
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
