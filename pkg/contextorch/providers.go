package contextorch

import (
	"context"
	"fmt"
	"strings"
)

// SystemPersonaProvider is the immutable identity layer, priority 0.
// Grounded on providers.py's SystemPersonaProvider.DEFAULT_PERSONAS.
type SystemPersonaProvider struct {
	Role string
}

var defaultPersonas = map[string]string{
	"architect":  "<role>You are a master software architect.</role>",
	"developer":  "<role>You are an expert developer.</role>",
	"researcher": "<role>You are a thorough researcher.</role>",
}

func (p SystemPersonaProvider) Name() string  { return "persona" }
func (p SystemPersonaProvider) Priority() int { return 0 }

func (p SystemPersonaProvider) Provide(_ context.Context, _ State, _ int) (*Result, error) {
	content, ok := defaultPersonas[p.Role]
	if !ok {
		content = fmt.Sprintf("<role>You are %s.</role>", p.Role)
	}
	return &Result{Content: content, TokenCount: len(strings.Fields(content)), Name: p.Name(), Priority: p.Priority()}, nil
}

// RoutingGuidanceProvider supplies the Omni Loop's meta-cognition
// protocol: how to interpret a mission brief and when to re-route.
// Priority 5, ahead of tool/skill context per §4.9.
type RoutingGuidanceProvider struct{}

const routingGuidanceText = `<routing_protocol>
You receive a mission brief describing a goal, not a procedure. Select
tools by capability, not by assumed file layout. If no tool clears the
confidence bar, ask for clarification rather than guessing a path.
</routing_protocol>`

func (p RoutingGuidanceProvider) Name() string  { return "routing_guidance" }
func (p RoutingGuidanceProvider) Priority() int { return 5 }

func (p RoutingGuidanceProvider) Provide(_ context.Context, _ State, _ int) (*Result, error) {
	return &Result{
		Content:    routingGuidanceText,
		TokenCount: len(strings.Fields(routingGuidanceText)),
		Name:       p.Name(),
		Priority:   p.Priority(),
	}, nil
}

// SkillContextHydrator is the narrow capability ActiveSkillProvider needs
// from the Kernel: the current context-cache bundle for a skill name.
type SkillContextHydrator interface {
	HydrateSkillContext(name string) (string, error)
}

// ActiveSkillProvider hydrates the currently active skill's context-cache
// bundle, priority 10. Grounded on providers.py's ActiveSkillProvider.
type ActiveSkillProvider struct {
	Hydrator SkillContextHydrator
}

func (p ActiveSkillProvider) Name() string  { return "active_skill" }
func (p ActiveSkillProvider) Priority() int { return 10 }

func (p ActiveSkillProvider) Provide(_ context.Context, state State, _ int) (*Result, error) {
	active, _ := state["active_skill"].(string)
	if active == "" || p.Hydrator == nil {
		return &Result{Name: p.Name(), Priority: p.Priority()}, nil
	}
	content, err := p.Hydrator.HydrateSkillContext(active)
	if err != nil || content == "" {
		return &Result{Name: p.Name(), Priority: p.Priority()}, nil
	}
	wrapped := fmt.Sprintf("<active_protocol>\n%s\n</active_protocol>", content)
	return &Result{Content: wrapped, TokenCount: len(strings.Fields(wrapped)), Name: p.Name(), Priority: p.Priority()}, nil
}

// ToolIndexEntry is one row AvailableToolsProvider summarizes.
type ToolIndexEntry struct {
	SkillName   string
	Description string
	ToolNames   []string // already filtered to core (non-dynamic) commands
}

// AvailableToolsProvider lists up to 15 skills with up to 5 core tool
// names each, priority 20. Grounded on providers.py's
// AvailableToolsProvider — the filtered-commands policy (§4.9: "must
// never re-introduce dynamic commands") is enforced by the caller
// supplying only core ToolNames in each entry.
type AvailableToolsProvider struct {
	Index func() []ToolIndexEntry
}

func (p AvailableToolsProvider) Name() string  { return "tools" }
func (p AvailableToolsProvider) Priority() int { return 20 }

func (p AvailableToolsProvider) Provide(_ context.Context, _ State, _ int) (*Result, error) {
	if p.Index == nil {
		return &Result{Name: p.Name(), Priority: p.Priority()}, nil
	}
	entries := p.Index()
	if len(entries) == 0 {
		return &Result{Name: p.Name(), Priority: p.Priority()}, nil
	}
	if len(entries) > 15 {
		entries = entries[:15]
	}

	var b strings.Builder
	b.WriteString("<available_tools>\n")
	for _, e := range entries {
		desc := e.Description
		if len(desc) > 80 {
			desc = desc[:80]
		}
		tools := e.ToolNames
		if len(tools) > 5 {
			tools = tools[:5]
		}
		fmt.Fprintf(&b, "  - %s: %s\n", e.SkillName, desc)
		if len(tools) > 0 {
			fmt.Fprintf(&b, "    Tools: %s\n", strings.Join(tools, ", "))
		}
	}
	b.WriteString("</available_tools>")

	content := b.String()
	return &Result{Content: content, TokenCount: len(strings.Fields(content)), Name: p.Name(), Priority: p.Priority()}, nil
}

// Recollection is one recalled memory row EpisodicMemoryProvider renders.
type Recollection struct {
	Query      string
	Reflection string
	Error      string
}

// EpisodicMemoryProvider recalls the top-K InteractionLogs relevant to the
// current task, priority 40. Grounded on providers.py's
// EpisodicMemoryProvider (budget<500 short-circuit, query from
// state["current_task"] or the last message).
type EpisodicMemoryProvider struct {
	TopK   int
	Recall func(ctx context.Context, query string, topK int) ([]Recollection, error)
}

func (p EpisodicMemoryProvider) Name() string  { return "rag" }
func (p EpisodicMemoryProvider) Priority() int { return 40 }

func (p EpisodicMemoryProvider) Provide(ctx context.Context, state State, budget int) (*Result, error) {
	if budget < 500 || p.Recall == nil {
		return &Result{Name: p.Name(), Priority: p.Priority()}, nil
	}
	query, _ := state["current_task"].(string)
	if query == "" {
		return &Result{Name: p.Name(), Priority: p.Priority()}, nil
	}
	topK := p.TopK
	if topK == 0 {
		topK = 3
	}
	rows, err := p.Recall(ctx, query, topK)
	if err != nil || len(rows) == 0 {
		return &Result{Name: p.Name(), Priority: p.Priority()}, nil
	}

	var b strings.Builder
	b.WriteString("<episodic_memory>\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "  - Query: %s\n    Reflection: %s\n", r.Query, r.Reflection)
		if r.Error != "" {
			fmt.Fprintf(&b, "    Error: %s\n", r.Error)
		}
	}
	b.WriteString("</episodic_memory>")

	content := b.String()
	return &Result{Content: content, TokenCount: len(strings.Fields(content)), Name: p.Name(), Priority: p.Priority()}, nil
}
