package duocore

import (
	"regexp"
	"strings"
)

// FusionWeights is the output of compute_fusion_weights: per-query scale
// factors the Router applies on top of its static config weights, plus
// the classified intent (if any).
type FusionWeights struct {
	ZKProximityScale float64
	KGRerankScale    float64
	VectorWeight     float64
	KeywordWeight    float64
	IntentAction     string
	IntentTarget     string
	IntentKeywords   []string
}

// balancedWeights is returned for an absent or empty query.
func balancedWeights() FusionWeights {
	return FusionWeights{ZKProximityScale: 1.0, KGRerankScale: 1.0, VectorWeight: 1.0, KeywordWeight: 1.0}
}

// intentRule is one entry of the lightweight regex+lexicon intent
// classifier: action/target pairs with the keywords that trigger them and
// the weight scaling that action implies.
type intentRule struct {
	pattern       *regexp.Regexp
	action        string
	target        string
	keywords      []string
	vectorScale   float64
	keywordScale  float64
	proximityScale float64
	kgScale       float64
}

var intentRules = []intentRule{
	{
		pattern:        regexp.MustCompile(`\b(commit|push|branch|merge|rebase|stash)\b`),
		action:         "commit",
		target:         "git",
		keywords:       []string{"commit", "push", "branch", "merge", "rebase", "stash"},
		vectorScale:    0.8,
		keywordScale:   1.3,
		proximityScale: 0.8,
		kgScale:        1.0,
	},
	{
		pattern:        regexp.MustCompile(`\b(search|find|look up|lookup)\b.*\b(note|notes|knowledge|doc|docs)\b`),
		action:         "search",
		target:         "knowledge",
		keywords:       []string{"search", "knowledge", "notes"},
		vectorScale:    1.2,
		keywordScale:   0.9,
		proximityScale: 1.4,
		kgScale:        1.3,
	},
	{
		pattern:        regexp.MustCompile(`\b(find|locate|grep)\b.*\b(function|symbol|code|file)\b`),
		action:         "find",
		target:         "code",
		keywords:       []string{"find", "code", "symbol"},
		vectorScale:    0.9,
		keywordScale:   1.4,
		proximityScale: 0.7,
		kgScale:        0.9,
	},
	{
		pattern:        regexp.MustCompile(`\b(research|investigate|explore|analyze)\b`),
		action:         "research",
		target:         "any",
		keywords:       []string{"research", "investigate", "explore"},
		vectorScale:    1.3,
		keywordScale:   0.8,
		proximityScale: 1.2,
		kgScale:        1.2,
	},
}

// ComputeFusionWeights is the lightweight intent classifier of §4.7: regex
// + keyword lexicon identifies (action, target) and scales the static
// fusion weights accordingly. An absent or empty query yields balanced
// (all 1.0) weights.
func ComputeFusionWeights(query string) FusionWeights {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return balancedWeights()
	}
	for _, rule := range intentRules {
		if rule.pattern.MatchString(q) {
			return FusionWeights{
				ZKProximityScale: rule.proximityScale,
				KGRerankScale:    rule.kgScale,
				VectorWeight:     rule.vectorScale,
				KeywordWeight:    rule.keywordScale,
				IntentAction:     rule.action,
				IntentTarget:     rule.target,
				IntentKeywords:   rule.keywords,
			}
		}
	}
	return balancedWeights()
}
