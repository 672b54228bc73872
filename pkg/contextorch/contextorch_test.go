package contextorch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name     string
	priority int
	tokens   int
	content  string
	err      error
}

func (s stubProvider) Name() string  { return s.name }
func (s stubProvider) Priority() int { return s.priority }
func (s stubProvider) Provide(context.Context, State, int) (*Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Result{Content: s.content, TokenCount: s.tokens, Name: s.name, Priority: s.priority}, nil
}

func TestBuildContextOrdersByPriority(t *testing.T) {
	o := New([]Provider{
		stubProvider{name: "tools", priority: 20, tokens: 2, content: "tools-content"},
		stubProvider{name: "persona", priority: 0, tokens: 2, content: "persona-content"},
	}, 1000, 0)

	content, skipped, err := o.BuildContext(context.Background(), State{})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Less(t, indexOf(content, "persona-content"), indexOf(content, "tools-content"))
}

func TestBuildContextSkipsOversizedResultWhollyNotTruncated(t *testing.T) {
	o := New([]Provider{
		stubProvider{name: "small", priority: 0, tokens: 5, content: "fits"},
		stubProvider{name: "huge", priority: 10, tokens: 1000, content: "does-not-fit"},
	}, 10, 0)

	content, skipped, err := o.BuildContext(context.Background(), State{})
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, "huge", skipped[0].Name)
	assert.NotContains(t, content, "does-not-fit")
	assert.Contains(t, content, "fits")
}

func TestBuildContextProviderErrorIsAbsentNotFatal(t *testing.T) {
	o := New([]Provider{
		stubProvider{name: "broken", priority: 0, err: errors.New("boom")},
		stubProvider{name: "ok", priority: 1, tokens: 1, content: "ok-content"},
	}, 1000, 0)

	content, _, err := o.BuildContext(context.Background(), State{})
	require.NoError(t, err)
	assert.Contains(t, content, "ok-content")
}

func TestSystemPersonaProviderUsesKnownRole(t *testing.T) {
	p := SystemPersonaProvider{Role: "developer"}
	res, err := p.Provide(context.Background(), State{}, 1000)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "expert developer")
}

func TestAvailableToolsProviderTruncatesToFifteenSkillsAndFiveTools(t *testing.T) {
	entries := make([]ToolIndexEntry, 20)
	for i := range entries {
		entries[i] = ToolIndexEntry{SkillName: "skill", ToolNames: []string{"a", "b", "c", "d", "e", "f"}}
	}
	p := AvailableToolsProvider{Index: func() []ToolIndexEntry { return entries }}
	res, err := p.Provide(context.Background(), State{}, 1000)
	require.NoError(t, err)
	assert.Equal(t, 15, countOccurrences(res.Content, "skill:"))
	assert.NotContains(t, res.Content, "f")
}

func TestEpisodicMemoryProviderSkipsOnSmallBudget(t *testing.T) {
	called := false
	p := EpisodicMemoryProvider{Recall: func(ctx context.Context, q string, k int) ([]Recollection, error) {
		called = true
		return nil, nil
	}}
	res, err := p.Provide(context.Background(), State{"current_task": "x"}, 100)
	require.NoError(t, err)
	assert.False(t, called)
	assert.Empty(t, res.Content)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
			i += len(needle) - 1
		}
	}
	return count
}
