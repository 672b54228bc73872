// Package hybridsearch fuses vector, keyword, and graph rankings for a
// single query into one scored, confidence-bucketed list. Grounded on the
// LinkGraph-first retrieval policy in the knowledge skill's hybrid/keyword
// search scripts: every ranking a candidate appears in is fused by weighted
// reciprocal rank. There is no fallback to a single ranking when the others
// are thin.
package hybridsearch

import (
	"sort"
	"strings"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/manifest"
)

// Mode selects which rankings feed the fusion. link_graph is supplied by
// the dual-core fusion package; hybridsearch only knows its score.
type Mode string

const (
	ModeHybrid    Mode = "hybrid"
	ModeKeyword   Mode = "keyword"
	ModeLinkGraph Mode = "link_graph"
	ModeVector    Mode = "vector"
)

// Candidate is one fusable row: a tool (or note) with per-signal raw
// scores. Not every signal need be populated; a zero value means "this
// candidate did not appear in that ranking".
type Candidate struct {
	ToolName        string
	SkillName       string
	Content         string
	Metadata        map[string]any
	InputSchema     map[string]any
	RoutingKeywords []string
	Intents         []string
	Category        string

	VectorRank  int // 1-based; 0 means absent from the vector ranking
	KeywordRank int
	GraphRank   int

	VectorScore  float64
	KeywordScore float64
	GraphScore   float64
}

// Fused is a Candidate plus its combined score and confidence bucket.
type Fused struct {
	Candidate
	FinalScore float64
	Confidence manifest.Confidence
}

// Fields is the lexical document fed to the keyword scorer: the values the
// query is matched against, per §4.6 ("name, description, routing_keywords,
// intents").
type Fields struct {
	Name            string
	Description     string
	RoutingKeywords []string
	Intents         []string
}

// ScoreKeyword computes a fielded lexical score for one document against a
// query. Exact phrase match on the name field yields the maximum score.
// There is no BM25 implementation anywhere in the reference corpus, so this
// is a deliberately simple boosted-token-overlap scorer rather than a
// statistical ranking function.
func ScoreKeyword(query string, f Fields, boost config.FieldBoosting) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	name := strings.ToLower(f.Name)
	if name != "" && name == q {
		return boost.ExactPhraseBoost
	}

	queryTokens := tokenize(q)
	if len(queryTokens) == 0 {
		return 0
	}

	var score float64
	nameTokens := tokenSet(tokenize(name))
	descTokens := tokenSet(tokenize(strings.ToLower(f.Description)))
	kwTokens := tokenSet(tokenize(strings.ToLower(strings.Join(f.RoutingKeywords, " "))))
	intentTokens := tokenSet(tokenize(strings.ToLower(strings.Join(f.Intents, " "))))

	for _, tok := range queryTokens {
		if nameTokens[tok] {
			score += boost.NameTokenBoost
		}
		if descTokens[tok] {
			score += 1.0
		}
		if kwTokens[tok] {
			score += 1.0
		}
		if intentTokens[tok] {
			score += 1.0
		}
	}
	// Normalize by query length so longer queries don't trivially outscore
	// shorter, more targeted ones.
	return score / float64(len(queryTokens))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// rrfContribution is one ranking's reciprocal-rank contribution: w / (k + r).
func rrfContribution(weight float64, rrfK, rank int) float64 {
	if rank <= 0 {
		return 0
	}
	return weight / (float64(rrfK) + float64(rank))
}

// Fuse combines the three rankings already embedded in each candidate's
// rank/score fields into one weighted-RRF final score, buckets confidence
// via the active profile, drops rows under low_floor, and orders the
// survivors per §4.6's tie-break rule: final score desc, then lexical
// score desc, then vector score desc, then tool_name asc.
func Fuse(candidates []Candidate, cfg config.RouterConfig, graphWeight float64) []Fused {
	profile := cfg.Profiles[cfg.ActiveProfile]

	fused := make([]Fused, 0, len(candidates))
	for _, c := range candidates {
		score := rrfContribution(cfg.SemanticWeight, cfg.RRFK, c.VectorRank) +
			rrfContribution(cfg.KeywordWeight, cfg.RRFK, c.KeywordRank) +
			rrfContribution(graphWeight, cfg.RRFK, c.GraphRank)

		conf := bucket(score, profile)
		if conf == "" {
			continue
		}
		fused = append(fused, Fused{Candidate: c, FinalScore: score, Confidence: conf})
	}

	sort.SliceStable(fused, func(i, j int) bool {
		a, b := fused[i], fused[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if a.KeywordScore != b.KeywordScore {
			return a.KeywordScore > b.KeywordScore
		}
		if a.VectorScore != b.VectorScore {
			return a.VectorScore > b.VectorScore
		}
		return a.ToolName < b.ToolName
	})
	return fused
}

// bucket maps a fused score into a confidence bucket, or "" if it falls
// below the profile's low_floor (the caller should drop such rows).
func bucket(score float64, profile config.ConfidenceProfile) manifest.Confidence {
	switch {
	case score >= profile.HighThreshold:
		return manifest.ConfidenceHigh
	case score >= profile.MediumThreshold:
		return manifest.ConfidenceMedium
	case score >= profile.LowFloor:
		return manifest.ConfidenceLow
	default:
		return ""
	}
}

// ToToolSearchPayload stamps a fused row with the canonical tool-search
// wire schema.
func ToToolSearchPayload(f Fused) manifest.ToolSearchPayload {
	score := f.FinalScore
	return manifest.ToolSearchPayload{
		Schema:          manifest.SchemaVectorToolSearchV1,
		ID:              f.ToolName,
		Content:         f.Content,
		Metadata:        f.Metadata,
		Score:           &score,
		InputSchema:     f.InputSchema,
		SkillName:       f.SkillName,
		ToolName:        f.ToolName,
		RoutingKeywords: f.RoutingKeywords,
		Intents:         f.Intents,
		Category:        f.Category,
		Confidence:      f.Confidence,
		FinalScore:      f.FinalScore,
	}
}
