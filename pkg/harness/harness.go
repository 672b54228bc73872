// Package harness collects the fixture and test-double builders shared
// across package-level tests and the end-to-end acceptance suite: writing
// a skill to disk, a scripted LLM provider, and a fixed-similarity vector
// store. Grounded on pkg/kernel/kernel_test.go's writeSkill helper,
// generalized from a single-test-file local function into a reusable
// public one.
package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omnikernel/kernel/pkg/llmclient"
	"github.com/omnikernel/kernel/pkg/vectorstore"
)

// WriteSkill materializes a skill directory under root: SKILL.md plus
// scripts/tools.go, and returns the directory path.
func WriteSkill(t *testing.T, root, name, manifestBody, scriptBody string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(manifestBody), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "tools.go"), []byte(scriptBody), 0o644))
	return dir
}

// ScriptedStep is one canned response a StubProvider hands back in order.
type ScriptedStep struct {
	Completion llmclient.Completion
	Err        error
}

// StubProvider is a scripted llmclient.Provider: it returns Steps in
// order (repeating the last one once exhausted) and records every tools
// slice it was called with, so a caller can assert on adaptive tool
// schema behavior without reaching into agentloop's unexported internals.
type StubProvider struct {
	Steps        []ScriptedStep
	calls        int
	SeenTools    [][]llmclient.ToolDefinition
	SeenMessages [][]llmclient.Message
}

func (p *StubProvider) Generate(_ context.Context, messages []llmclient.Message, tools []llmclient.ToolDefinition) (llmclient.Completion, error) {
	p.SeenTools = append(p.SeenTools, tools)
	p.SeenMessages = append(p.SeenMessages, messages)

	step := p.nextStep()
	return step.Completion, step.Err
}

func (p *StubProvider) GenerateStreaming(context.Context, []llmclient.Message, []llmclient.ToolDefinition) (<-chan llmclient.StreamChunk, error) {
	ch := make(chan llmclient.StreamChunk)
	close(ch)
	return ch, nil
}

func (p *StubProvider) ModelName() string { return "stub" }

func (p *StubProvider) nextStep() ScriptedStep {
	if len(p.Steps) == 0 {
		return ScriptedStep{}
	}
	idx := p.calls
	if idx >= len(p.Steps) {
		idx = len(p.Steps) - 1
	}
	p.calls++
	return p.Steps[idx]
}

// FixedScoreStore is a vectorstore.Provider stub whose Search always
// reports the same similarity score for whatever was last Upserted into a
// given collection, regardless of the query vector — it simulates a
// semantic cortex that recognizes a paraphrase of a query it has already
// seen, the way an embedding model would, without needing one.
type FixedScoreStore struct {
	Score   float32
	upserts map[string][]stored
}

type stored struct {
	id       string
	metadata map[string]any
}

// NewFixedScoreStore constructs a store reporting the given similarity
// score for every hit.
func NewFixedScoreStore(score float32) *FixedScoreStore {
	return &FixedScoreStore{Score: score, upserts: make(map[string][]stored)}
}

func (s *FixedScoreStore) Name() string { return "fixed-score-stub" }

func (s *FixedScoreStore) Upsert(_ context.Context, collection, id string, _ []float32, metadata map[string]any) error {
	s.upserts[collection] = append(s.upserts[collection], stored{id: id, metadata: metadata})
	return nil
}

func (s *FixedScoreStore) Search(_ context.Context, collection string, _ []float32, topK int) ([]vectorstore.Result, error) {
	entries := s.upserts[collection]
	if len(entries) == 0 {
		return nil, nil
	}
	last := entries[len(entries)-1]
	if topK <= 0 {
		topK = 1
	}
	return []vectorstore.Result{{ID: last.id, Score: s.Score, Metadata: last.metadata}}, nil
}

func (s *FixedScoreStore) SearchWithFilter(ctx context.Context, collection string, vector []float32, topK int, _ map[string]any) ([]vectorstore.Result, error) {
	return s.Search(ctx, collection, vector, topK)
}

func (s *FixedScoreStore) Delete(_ context.Context, collection, id string) error {
	entries := s.upserts[collection]
	for i, e := range entries {
		if e.id == id {
			s.upserts[collection] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *FixedScoreStore) DeleteByFilter(_ context.Context, collection string, _ map[string]any) error {
	delete(s.upserts, collection)
	return nil
}

func (s *FixedScoreStore) CreateCollection(context.Context, string, int) error { return nil }
func (s *FixedScoreStore) DeleteCollection(ctx context.Context, collection string) error {
	delete(s.upserts, collection)
	return nil
}
func (s *FixedScoreStore) Close() error { return nil }

var (
	_ vectorstore.Provider = (*FixedScoreStore)(nil)
	_ llmclient.Provider   = (*StubProvider)(nil)
)
