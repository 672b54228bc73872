// Package contextorch assembles the LLM-visible context string from an
// ordered set of typed providers: parallel fetch under a shared token
// budget, sequential priority-ordered assembly with per-item truncation
// never occurring mid-content. Grounded on
// original_source/.../core/context/{orchestrator,providers}.py's
// "parallel fetch, sequential assembly" cognitive pipeline.
package contextorch

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/omnikernel/kernel/pkg/utils"
)

// Result is one provider's output, per §3's ContextResult: content, its
// token cost, a name for logging, and a priority (0 highest).
type Result struct {
	Content    string
	TokenCount int
	Name       string
	Priority   int
}

// Provider is a typed context source. Implementations must be pure with
// respect to State — the Orchestrator dispatches all providers
// concurrently against the same starting budget.
type Provider interface {
	Provide(ctx context.Context, state State, budget int) (*Result, error)
	Name() string
	Priority() int
}

// State is the task-scoped input every provider reads from. Kept as a
// loosely-typed map (mirroring the Python layer's LangGraph state dict)
// since providers each care about different slices of it.
type State map[string]any

const (
	DefaultMaxTokens     = 128_000
	DefaultOutputReserve = 4_096
)

// Orchestrator runs the standard provider pipeline.
type Orchestrator struct {
	providers    []Provider
	maxInputTokens int
}

// New constructs an Orchestrator over a fixed provider set.
func New(providers []Provider, maxTokens, outputReserve int) *Orchestrator {
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
		if outputReserve == 0 {
			outputReserve = DefaultOutputReserve
		}
	}
	sorted := make([]Provider, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })
	return &Orchestrator{providers: sorted, maxInputTokens: maxTokens - outputReserve}
}

// Skipped is a provider name and the reason its content was left out,
// returned alongside the assembled string so callers can log it.
type Skipped struct {
	Name   string
	Reason string
}

// BuildContext dispatches every provider in parallel against the same
// starting budget, then assembles their results sequentially in priority
// order, including a result iff its token cost still fits the shrinking
// budget. A too-large result is skipped whole, never truncated mid-content.
func (o *Orchestrator) BuildContext(ctx context.Context, state State) (string, []Skipped, error) {
	results := make([]*Result, len(o.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range o.providers {
		i, p := i, p
		g.Go(func() error {
			res, err := p.Provide(gctx, state, o.maxInputTokens)
			if err != nil {
				// A single provider's failure never aborts assembly; it's
				// simply absent from the final context.
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, err
	}

	type named struct {
		Result
		provider Provider
	}
	var collected []named
	for i, r := range results {
		if r == nil || r.TokenCount == 0 {
			continue
		}
		collected = append(collected, named{Result: *r, provider: o.providers[i]})
	}
	sort.SliceStable(collected, func(i, j int) bool { return collected[i].Priority < collected[j].Priority })

	remaining := o.maxInputTokens
	var parts []string
	var skippedList []Skipped
	for _, c := range collected {
		if c.TokenCount <= remaining {
			parts = append(parts, c.Content)
			remaining -= c.TokenCount
		} else {
			skippedList = append(skippedList, Skipped{Name: c.Name, Reason: "budget exhausted"})
		}
	}
	return strings.Join(parts, "\n\n"), skippedList, nil
}

// EstimateTokens is the shared rough-estimate helper providers use to fill
// in Result.TokenCount when an exact tiktoken encoding isn't warranted.
func EstimateTokens(counter *utils.TokenCounter, content string) int {
	if counter == nil {
		return len(strings.Fields(content))
	}
	return counter.Count(content)
}
