package duocore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnikernel/kernel/pkg/vectorstore"
)

func TestParseWikiLinksExtractsStems(t *testing.T) {
	links := ParseWikiLinks("see [[git-workflow]] and [[design notes|notes]] for context")
	assert.Equal(t, []string{"git-workflow", "design notes"}, links)
}

func TestNoteGraphNeighboursIncludesBacklinks(t *testing.T) {
	g := NewNoteGraph()
	g.Upsert(Note{Stem: "a", Links: []string{"b"}})
	g.Upsert(Note{Stem: "b"})

	assert.ElementsMatch(t, []string{"b"}, g.Neighbours("a"))
	assert.ElementsMatch(t, []string{"a"}, g.Neighbours("b"))
}

func TestNoteGraphNilIsNeverFatal(t *testing.T) {
	var g *NoteGraph
	assert.Empty(t, g.Neighbours("anything"))
	assert.Equal(t, Stats{}, g.Stats())
}

func TestProximityBoostReordersLinkedHits(t *testing.T) {
	g := NewNoteGraph()
	g.Upsert(Note{Stem: "a", Links: []string{"b"}})
	g.Upsert(Note{Stem: "b"})
	g.Upsert(Note{Stem: "c"})

	hits := []RankedHit{
		{Stem: "c", Score: 0.5},
		{Stem: "a", Score: 0.48},
		{Stem: "b", Score: 0.47},
	}
	boosted := ProximityBoost(g, hits)
	// a and b are mutually linked and both present in the list, so both
	// get boosted; c (unlinked, alone) does not.
	var aScore, cScore float64
	for _, h := range boosted {
		if h.Stem == "a" {
			aScore = h.Score
		}
		if h.Stem == "c" {
			cScore = h.Score
		}
	}
	assert.Equal(t, 0.48+ZKLinkProximityBoost, aScore)
	assert.Equal(t, 0.5, cScore)
}

func TestProximityBoostNilGraphReturnsUnchanged(t *testing.T) {
	hits := []RankedHit{{Stem: "a", Score: 1}}
	assert.Equal(t, hits, ProximityBoost(nil, hits))
}

func TestVectorSearchForGraphShapesRows(t *testing.T) {
	p, err := vectorstore.NewChromemProvider(vectorstore.ChromemConfig{})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	vec := vectorstore.HashEmbed("design notes")
	require.NoError(t, p.Upsert(ctx, "notes", "design-notes", vec, map[string]any{"content": "design notes"}))

	rows, err := VectorSearchForGraph(ctx, p, "notes", "design notes", vectorstore.HashEmbed, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "design-notes", rows[0].FilenameStem)
	assert.Equal(t, "vector", rows[0].Source)
}

func TestRegisterSkillSyncIsIdempotent(t *testing.T) {
	kg := NewKnowledgeGraph()
	entry := SkillIndexEntry{SkillName: "git", ToolNames: []string{"git.commit", "git.status"}, RoutingKeywords: []string{"version control"}}

	RegisterSkillSync(kg, entry)
	first := kg.EntityCount()
	RegisterSkillSync(kg, entry)
	second := kg.EntityCount()

	assert.Equal(t, first, second)
	assert.Greater(t, first, 0)
}

func TestEnrichToolRelationshipsConnectsSharedEntityTools(t *testing.T) {
	kg := NewKnowledgeGraph()
	RegisterSkillSync(kg, SkillIndexEntry{SkillName: "git", ToolNames: []string{"git.commit", "git.push"}})

	edges := kg.EdgesFrom("tool:git.commit")
	var toPush bool
	for _, e := range edges {
		if e.To == "tool:git.push" && e.Kind == EdgeRelatedTo {
			toPush = true
		}
	}
	assert.True(t, toPush, "tools sharing the 'git' name-part should be related")
}

func TestComputeFusionWeightsBalancedOnEmptyQuery(t *testing.T) {
	w := ComputeFusionWeights("")
	assert.Equal(t, 1.0, w.VectorWeight)
	assert.Equal(t, 1.0, w.KeywordWeight)
	assert.Empty(t, w.IntentAction)
}

func TestComputeFusionWeightsClassifiesCommitIntent(t *testing.T) {
	w := ComputeFusionWeights("please commit these changes")
	assert.Equal(t, "commit", w.IntentAction)
	assert.Equal(t, "git", w.IntentTarget)
	assert.Greater(t, w.KeywordWeight, w.VectorWeight)
}
