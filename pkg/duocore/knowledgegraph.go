package duocore

import (
	"strings"
	"sync"
)

// Entity is a typed node in the Knowledge Graph.
type Entity struct {
	ID   string
	Kind EntityKind
	Name string
}

// Edge is a typed, weighted relation between two entities.
type Edge struct {
	From   string
	To     string
	Kind   EdgeKind
	Weight float64
}

// KnowledgeGraph is Core 1's typed sibling: entities (skill/tool/keyword)
// and edges (CONTAINS/RELATED_TO) between them.
type KnowledgeGraph struct {
	mu       sync.Mutex
	entities map[string]Entity
	// edges[from] keyed by "to" for idempotent weight lookups/updates.
	edges map[string]map[string]*Edge
}

// NewKnowledgeGraph constructs an empty knowledge graph.
func NewKnowledgeGraph() *KnowledgeGraph {
	return &KnowledgeGraph{entities: map[string]Entity{}, edges: map[string]map[string]*Edge{}}
}

// RegisterEntity adds an entity if absent. Idempotent: registering the
// same id twice is a no-op.
func (g *KnowledgeGraph) RegisterEntity(e Entity) (added bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.entities[e.ID]; ok {
		return false
	}
	g.entities[e.ID] = e
	return true
}

// AddEdge adds a directed edge, or raises its weight if a lower-weight
// edge already exists between the pair. Never lowers an existing edge's
// weight, per B3's "respecting existing higher edge weights" rule.
func (g *KnowledgeGraph) AddEdge(e Edge) (added bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.edges[e.From] == nil {
		g.edges[e.From] = map[string]*Edge{}
	}
	existing, ok := g.edges[e.From][e.To]
	if !ok {
		edge := e
		g.edges[e.From][e.To] = &edge
		return true
	}
	if e.Weight > existing.Weight {
		existing.Weight = e.Weight
		existing.Kind = e.Kind
	}
	return false
}

// EntityCount reports the number of registered entities.
func (g *KnowledgeGraph) EntityCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entities)
}

// EdgesFrom returns the outbound edges of an entity.
func (g *KnowledgeGraph) EdgesFrom(id string) []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Edge, 0, len(g.edges[id]))
	for _, e := range g.edges[id] {
		out = append(out, *e)
	}
	return out
}

// EntitiesByKind returns all entities of one kind, registration order not
// preserved (map iteration).
func (g *KnowledgeGraph) EntitiesByKind(kind EntityKind) []Entity {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Entity
	for _, e := range g.entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// nameParts lowercases and splits a dotted/underscored identifier into its
// component words, the unit bridge B3 shares entities over.
func nameParts(name string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '.' || r == '_' || r == '-':
			return ' '
		default:
			return r
		}
	}, strings.ToLower(name))
	var parts []string
	for _, p := range strings.Fields(cleaned) {
		if len(p) > 1 {
			parts = append(parts, p)
		}
	}
	return parts
}

// EnrichToolRelationships is bridge B3: for a tool id, find entities
// sharing a name-part with it, and add a RELATED_TO edge to every other
// tool that also shares at least one of those entities.
func EnrichToolRelationships(g *KnowledgeGraph, toolID string) {
	parts := nameParts(strings.TrimPrefix(toolID, "tool:"))
	if len(parts) == 0 {
		return
	}
	sharedWith := map[string]int{}
	for _, part := range parts {
		keywordID := "keyword:" + part
		for _, tool := range g.EntitiesByKind(EntityTool) {
			if tool.ID == toolID {
				continue
			}
			for _, e := range g.EdgesFrom(tool.ID) {
				if e.To == keywordID {
					sharedWith[tool.ID]++
				}
			}
		}
	}
	for otherTool, count := range sharedWith {
		if count >= 1 {
			weight := 0.1 * float64(count)
			g.AddEdge(Edge{From: toolID, To: otherTool, Kind: EdgeRelatedTo, Weight: weight})
			g.AddEdge(Edge{From: otherTool, To: toolID, Kind: EdgeRelatedTo, Weight: weight})
		}
	}
}

// SkillIndexEntry is the minimal shape B4 needs from a scanned skill to
// register its entities/edges.
type SkillIndexEntry struct {
	SkillName       string
	ToolNames       []string
	RoutingKeywords []string
}

// RegisterSkillSync is bridge B4: on every skill-index sync, register
// tools/skills/keywords as entities and CONTAINS/RELATED_TO edges between
// them. Idempotent — resyncing the same entry adds zero new entities.
func RegisterSkillSync(g *KnowledgeGraph, entry SkillIndexEntry) {
	skillID := "skill:" + entry.SkillName
	g.RegisterEntity(Entity{ID: skillID, Kind: EntitySkill, Name: entry.SkillName})

	for _, tool := range entry.ToolNames {
		toolID := "tool:" + tool
		g.RegisterEntity(Entity{ID: toolID, Kind: EntityTool, Name: tool})
		g.AddEdge(Edge{From: skillID, To: toolID, Kind: EdgeContains, Weight: 1.0})

		for _, part := range nameParts(tool) {
			keywordID := "keyword:" + part
			g.RegisterEntity(Entity{ID: keywordID, Kind: EntityKeyword, Name: part})
			g.AddEdge(Edge{From: toolID, To: keywordID, Kind: EdgeRelatedTo, Weight: 0.5})
		}
		EnrichToolRelationships(g, toolID)
	}

	for _, kw := range entry.RoutingKeywords {
		keywordID := "keyword:" + strings.ToLower(kw)
		g.RegisterEntity(Entity{ID: keywordID, Kind: EntityKeyword, Name: strings.ToLower(kw)})
		g.AddEdge(Edge{From: skillID, To: keywordID, Kind: EdgeRelatedTo, Weight: 0.5})
	}
}
