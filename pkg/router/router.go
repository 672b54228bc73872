// Package router implements the route(query) -> RoutingResult pipeline:
// an exact-match LRU ("Hive-Mind"), a semantic cache over prior routing
// decisions ("Cortex"), hybrid search over the tool index, confidence
// bucketing, and mission-brief synthesis/validation. Grounded on spec.md
// §4.8 directly — no single original_source file owns this pipeline, it
// composes pkg/hybridsearch, pkg/duocore, and pkg/vectorstore.
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/duocore"
	"github.com/omnikernel/kernel/pkg/hybridsearch"
	"github.com/omnikernel/kernel/pkg/kernelerr"
	"github.com/omnikernel/kernel/pkg/manifest"
	"github.com/omnikernel/kernel/pkg/vectorstore"
)

const (
	toolSearchCollection = "tool_search"
	cortexCollection     = "routing_experience"
)

// RoutingResult is the pipeline's output, per §3's data model.
type RoutingResult struct {
	SelectedTools []string
	MissionBrief  string
	Reasoning     string
	Confidence    manifest.Confidence
	FromCache     bool
	Timestamp     time.Time

	// Candidates carries the full fused, scored candidate list behind
	// SelectedTools, truncated to the same limit. Populated by a live
	// searchAndFuse pass and kept when that result is later served from the
	// Hive-Mind; nil on Cortex hits (and on Hive-Mind entries stored from a
	// Cortex hit) and on the empty-query short-circuit.
	Candidates []hybridsearch.Fused
}

// Embedder produces the fixed-dimension embedding the vector store and
// Cortex cache key on.
type Embedder func(text string) []float32

// Router composes the fusion pipeline; construct with New.
type Router struct {
	cfg      config.RouterConfig
	store    vectorstore.Provider
	embed    Embedder
	tools    []manifest.ToolRecord
	hiveMind *lru.Cache[string, RoutingResult]
	clock    func() time.Time
}

// New constructs a Router over a fixed tool index. store may be nil: the
// pipeline then degrades to pure keyword ranking and marks every non-empty
// result low-confidence, as it also does when a tool-search call fails.
// vectorstore.NilProvider{} is not treated as degraded; its empty results
// just leave the vector ranking empty.
func New(cfg config.RouterConfig, store vectorstore.Provider, embed Embedder, tools []manifest.ToolRecord) (*Router, error) {
	cache, err := lru.New[string, RoutingResult](cfg.HiveMindSize)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindConfigInvalid, "router", "New", "failed to construct hive-mind cache", err)
	}
	return &Router{cfg: cfg, store: store, embed: embed, tools: tools, hiveMind: cache, clock: time.Now}, nil
}

// SetTools replaces the tool index the Router searches over (called after
// a skill reload cycle).
func (r *Router) SetTools(tools []manifest.ToolRecord) { r.tools = tools }

// Config returns the RouterConfig the Router was constructed with, for
// introspection. The `omni route` commands read the loaded config directly
// and do not call it.
func (r *Router) Config() config.RouterConfig { return r.cfg }

// IndexTools upserts every tool's embedding into the semantic tool index,
// keyed by tool name so searchAndFuse's vector leg can find it later. Call
// once after construction and again after every SetTools.
func (r *Router) IndexTools(ctx context.Context) error {
	for _, t := range r.tools {
		vec := r.embed(t.Description)
		if err := r.store.Upsert(ctx, toolSearchCollection, t.ToolName, vec, map[string]any{
			"skill_name": t.SkillName,
		}); err != nil {
			return kernelerr.Wrap(kernelerr.KindConfigInvalid, "router", "IndexTools", t.ToolName, err)
		}
	}
	return nil
}

// normalizeQuery is the Hive-Mind cache key: lowercase, trimmed,
// whitespace-collapsed.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Route runs the full pipeline for one query.
func (r *Router) Route(ctx context.Context, query string) (RoutingResult, error) {
	key := normalizeQuery(query)
	if key == "" {
		return RoutingResult{Timestamp: r.clock()}, nil
	}

	if cached, ok := r.hiveMind.Get(key); ok {
		cached.FromCache = true
		return cached, nil
	}

	if cortexHit, ok := r.cortexLookup(ctx, query); ok {
		cortexHit.FromCache = true
		r.hiveMind.Add(key, cortexHit)
		return cortexHit, nil
	}

	result, err := r.searchAndFuse(ctx, query)
	if err != nil {
		return RoutingResult{}, err
	}
	result.Timestamp = r.clock()
	result.FromCache = false

	r.hiveMind.Add(key, result)
	if err := r.cortexLearn(ctx, query, result); err != nil {
		return result, err
	}
	return result, nil
}

func (r *Router) searchAndFuse(ctx context.Context, query string) (RoutingResult, error) {
	var vectorResults []vectorstore.Result
	degraded := r.store == nil
	if !degraded {
		results, err := r.store.Search(ctx, toolSearchCollection, r.embed(query), r.limit())
		if err != nil {
			degraded = true
		} else {
			vectorResults = results
		}
	}

	weights := duocore.ComputeFusionWeights(query)
	scaledCfg := r.cfg
	scaledCfg.SemanticWeight *= weights.VectorWeight
	scaledCfg.KeywordWeight *= weights.KeywordWeight
	if degraded {
		scaledCfg.SemanticWeight = 0
	}

	candidates := hybridsearch.BuildToolCandidates(query, r.tools, vectorResults, r.cfg.FieldBoosting)
	fused := hybridsearch.Fuse(candidates, scaledCfg, 0)

	limit := r.limit()
	if len(fused) > limit {
		fused = fused[:limit]
	}

	selected := make([]string, len(fused))
	reasoningParts := make([]string, 0, len(fused))
	var topConfidence manifest.Confidence
	for i, f := range fused {
		selected[i] = f.ToolName
		reasoningParts = append(reasoningParts, fmt.Sprintf("%s (score=%.3f)", f.ToolName, f.FinalScore))
		if i == 0 {
			topConfidence = f.Confidence
		}
	}
	if degraded && len(fused) > 0 {
		topConfidence = manifest.ConfidenceLow
	}

	result := RoutingResult{
		SelectedTools: selected,
		Confidence:    topConfidence,
		Reasoning:     "fused candidates: " + strings.Join(reasoningParts, ", "),
		Candidates:    fused,
	}
	result.MissionBrief = BuildMissionBrief(weights, selected)
	if err := ValidateMissionBrief(result.MissionBrief); err != nil {
		return result, err
	}
	return result, nil
}

func (r *Router) limit() int {
	if r.cfg.DefaultLimit <= 0 {
		return 10
	}
	return r.cfg.DefaultLimit
}
