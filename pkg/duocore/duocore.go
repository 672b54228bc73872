// Package duocore fuses two knowledge cores for retrieval: a note-link
// graph of markdown notes, and a typed knowledge graph of entities
// (skill/tool/keyword) and edges (CONTAINS/RELATED_TO). Grounded on the
// LinkGraph policy wrapper in the knowledge skill's search scripts and the
// entity-indexing idea in the Rust dependency indexer; no graph database
// exists anywhere in the retrieved corpus, so both cores are in-process
// adjacency maps, the shape every example repo uses for data this size.
package duocore

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/omnikernel/kernel/pkg/vectorstore"
)

// ZKLinkProximityBoost is the small additive constant bridge B1 adds to a
// hit's score when it is linked to/from another hit in the ranked list.
const ZKLinkProximityBoost = 0.05

// EntityKind is the typed entity kind in the Knowledge Graph.
type EntityKind string

const (
	EntitySkill   EntityKind = "skill"
	EntityTool    EntityKind = "tool"
	EntityKeyword EntityKind = "keyword"
)

// EdgeKind is the typed relation between two entities.
type EdgeKind string

const (
	EdgeContains  EdgeKind = "CONTAINS"
	EdgeRelatedTo EdgeKind = "RELATED_TO"
)

// Note is one markdown note in the note-link graph: a stem (filename
// without extension), its outbound wiki-links, and its tags.
type Note struct {
	Stem  string
	Links []string
	Tags  []string
}

// RankedHit is one row of a ranking bridge B1 reorders.
type RankedHit struct {
	Stem  string
	Score float64
}

var wikiLinkPattern = regexp.MustCompile(`\[\[([^\]|#]+)`)

// ParseWikiLinks extracts `[[target]]` / `[[target|label]]` stems from raw
// markdown note content.
func ParseWikiLinks(content string) []string {
	matches := wikiLinkPattern.FindAllStringSubmatch(content, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		links = append(links, strings.TrimSpace(m[1]))
	}
	return links
}

// NoteGraph is Core 1: a directory of markdown notes linked by wiki-style
// references, indexed by stem for O(1) neighbour lookup.
type NoteGraph struct {
	mu    sync.RWMutex
	notes map[string]Note
	// backlinks[target] = stems of notes linking to target.
	backlinks map[string][]string
}

// NewNoteGraph constructs an empty note graph.
func NewNoteGraph() *NoteGraph {
	return &NoteGraph{notes: map[string]Note{}, backlinks: map[string][]string{}}
}

// Upsert adds or replaces a note and rebuilds its backlink entries.
func (g *NoteGraph) Upsert(n Note) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.notes[n.Stem] = n
	for _, target := range n.Links {
		g.backlinks[target] = appendUnique(g.backlinks[target], n.Stem)
	}
}

// Neighbours returns the stems linked to or from the given stem. Returns
// an empty slice (never an error) if the backend holds nothing for the
// stem, or if the graph itself is nil — per §4.7 B1, a missing note-graph
// backend must never be fatal to the caller's ranking.
func (g *NoteGraph) Neighbours(stem string) []string {
	if g == nil {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := map[string]bool{}
	var out []string
	if n, ok := g.notes[stem]; ok {
		for _, l := range n.Links {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	for _, s := range g.backlinks[stem] {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Stats mirrors the Python layer's graph_stats response: total note count,
// orphaned (no links either direction) notes, and edge/node counts.
type Stats struct {
	TotalNotes    int
	Orphans       int
	LinksInGraph  int
	NodesInGraph  int
}

// Stats computes the current graph statistics. Safe to call on a nil
// receiver (returns the zero value), matching B1's never-fatal contract.
func (g *NoteGraph) Stats() Stats {
	if g == nil {
		return Stats{}
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	var s Stats
	s.TotalNotes = len(g.notes)
	linked := map[string]bool{}
	for stem, n := range g.notes {
		s.LinksInGraph += len(n.Links)
		if len(n.Links) > 0 {
			linked[stem] = true
		}
		for _, l := range n.Links {
			linked[l] = true
		}
	}
	for stem := range g.backlinks {
		linked[stem] = true
	}
	s.NodesInGraph = len(linked)
	for stem := range g.notes {
		if !linked[stem] || (len(g.notes[stem].Links) == 0 && len(g.backlinks[stem]) == 0) {
			s.Orphans++
		}
	}
	return s
}

// ProximityBoost is bridge B1: given a ranked hit list and the graph,
// boost any hit that is linked to/from another hit in the same list by
// ZKLinkProximityBoost, then re-sort descending. A nil or empty graph
// returns the input unchanged — never fatal.
func ProximityBoost(graph *NoteGraph, hits []RankedHit) []RankedHit {
	if graph == nil || len(hits) == 0 {
		return hits
	}
	inList := make(map[string]bool, len(hits))
	for _, h := range hits {
		inList[h.Stem] = true
	}

	boosted := make([]RankedHit, len(hits))
	copy(boosted, hits)
	for i, h := range boosted {
		for _, n := range graph.Neighbours(h.Stem) {
			if inList[n] {
				boosted[i].Score += ZKLinkProximityBoost
				break
			}
		}
	}

	sort.SliceStable(boosted, func(i, j int) bool { return boosted[i].Score > boosted[j].Score })
	return boosted
}

// GraphRow is bridge B2's output shape: a vector hit reshaped for the note
// graph's consumption.
type GraphRow struct {
	ID           string
	FilenameStem string
	Score        float64
	Source       string
}

// VectorSearchForGraph is bridge B2: the note graph's handle onto the
// Vector Store for semantically-similar notes.
func VectorSearchForGraph(ctx context.Context, store vectorstore.Provider, collection, query string, embed func(string) []float32, topK int) ([]GraphRow, error) {
	vec := embed(query)
	results, err := store.Search(ctx, collection, vec, topK)
	if err != nil {
		return nil, err
	}
	rows := make([]GraphRow, len(results))
	for i, r := range results {
		rows[i] = GraphRow{ID: r.ID, FilenameStem: r.ID, Score: float64(r.Score), Source: "vector"}
	}
	return rows, nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
