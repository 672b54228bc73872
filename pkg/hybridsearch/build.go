package hybridsearch

import (
	"sort"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/manifest"
	"github.com/omnikernel/kernel/pkg/vectorstore"
)

// BuildToolCandidates ranks a tool index by keyword score and merges in a
// vector search's rankings (keyed by tool name via Result.ID), producing
// the Candidate list Fuse expects. Tools absent from the vector results
// simply carry VectorRank 0 and contribute nothing from that signal.
func BuildToolCandidates(query string, tools []manifest.ToolRecord, vectorResults []vectorstore.Result, boost config.FieldBoosting) []Candidate {
	vectorRank := make(map[string]int, len(vectorResults))
	vectorScore := make(map[string]float64, len(vectorResults))
	for i, r := range vectorResults {
		vectorRank[r.ID] = i + 1
		vectorScore[r.ID] = float64(r.Score)
	}

	candidates := make([]Candidate, len(tools))
	for i, t := range tools {
		kwScore := ScoreKeyword(query, Fields{
			Name:            t.ToolName,
			Description:     t.Description,
			RoutingKeywords: t.RoutingKeywords,
			Intents:         t.Intents,
		}, boost)

		candidates[i] = Candidate{
			ToolName:        t.ToolName,
			SkillName:       t.SkillName,
			Content:         t.Description,
			InputSchema:     t.InputSchema,
			RoutingKeywords: t.RoutingKeywords,
			Intents:         t.Intents,
			Category:        t.Category,
			KeywordScore:    kwScore,
			VectorRank:      vectorRank[t.ToolName],
			VectorScore:     vectorScore[t.ToolName],
		}
	}

	// Keyword rank is derived from the scored order, descending, ties
	// broken by tool name so ranks are stable across calls.
	ranked := make([]int, len(candidates))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		ca, cb := candidates[ranked[a]], candidates[ranked[b]]
		if ca.KeywordScore != cb.KeywordScore {
			return ca.KeywordScore > cb.KeywordScore
		}
		return ca.ToolName < cb.ToolName
	})
	for rank, idx := range ranked {
		if candidates[idx].KeywordScore > 0 {
			candidates[idx].KeywordRank = rank + 1
		}
	}

	return candidates
}
