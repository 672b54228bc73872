package router

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/omnikernel/kernel/pkg/manifest"
)

// cortexLookup embeds the query and searches the semantic cache
// collection; a hit above CortexThreshold and within TTL is decoded back
// into a RoutingResult.
func (r *Router) cortexLookup(ctx context.Context, query string) (RoutingResult, bool) {
	if r.store == nil {
		return RoutingResult{}, false
	}
	results, err := r.store.Search(ctx, cortexCollection, r.embed(query), 1)
	if err != nil || len(results) == 0 {
		return RoutingResult{}, false
	}
	top := results[0]
	if float64(top.Score) < r.cfg.CortexThreshold {
		return RoutingResult{}, false
	}

	cached, ok := decodeRoutingResult(top.Metadata)
	if !ok {
		return RoutingResult{}, false
	}
	ttl := time.Duration(r.cfg.CortexTTLHours) * time.Hour
	if ttl > 0 && r.clock().Sub(cached.Timestamp) > ttl {
		return RoutingResult{}, false
	}
	return cached, true
}

// cortexLearn writes (query, result) to the semantic cache collection so
// future paraphrases can hit it.
func (r *Router) cortexLearn(ctx context.Context, query string, result RoutingResult) error {
	if r.store == nil {
		return nil
	}
	id := "route:" + normalizeQuery(query)
	return r.store.Upsert(ctx, cortexCollection, id, r.embed(query), encodeRoutingResult(result))
}

func encodeRoutingResult(r RoutingResult) map[string]any {
	return map[string]any{
		"selected_tools": strings.Join(r.SelectedTools, ","),
		"mission_brief":  r.MissionBrief,
		"reasoning":      r.Reasoning,
		"confidence":     string(r.Confidence),
		"timestamp":      strconv.FormatInt(r.Timestamp.Unix(), 10),
	}
}

func decodeRoutingResult(metadata map[string]any) (RoutingResult, bool) {
	toolsRaw, _ := metadata["selected_tools"].(string)
	var tools []string
	if toolsRaw != "" {
		tools = strings.Split(toolsRaw, ",")
	}
	tsRaw, _ := metadata["timestamp"].(string)
	unix, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return RoutingResult{}, false
	}

	brief, _ := metadata["mission_brief"].(string)
	reasoning, _ := metadata["reasoning"].(string)
	confidence, _ := metadata["confidence"].(string)

	return RoutingResult{
		SelectedTools: tools,
		MissionBrief:  brief,
		Reasoning:     reasoning,
		Confidence:    manifest.Confidence(confidence),
		Timestamp:     time.Unix(unix, 0),
	}, true
}
