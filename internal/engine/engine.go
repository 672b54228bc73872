// Package engine is the kernel's composition root: it wires the Skill
// Kernel, Hybrid Router, Context Orchestrator, Agent Loop, Episodic
// Memory, Evolution Manager, Homeostasis Manager, observability, and the
// introspection server from one config.Config, the way the teacher's
// cmd/hector/main.go wires pkg/runtime.Runtime from one config.Config —
// generalized here into a reusable type instead of living inline in main,
// since this kernel's main is a thin Kong CLI rather than an A2A server
// with per-agent executors.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/omnikernel/kernel/pkg/agentloop"
	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/contextorch"
	"github.com/omnikernel/kernel/pkg/evolution"
	"github.com/omnikernel/kernel/pkg/homeostasis"
	"github.com/omnikernel/kernel/pkg/immune"
	"github.com/omnikernel/kernel/pkg/kernel"
	"github.com/omnikernel/kernel/pkg/kernelerr"
	"github.com/omnikernel/kernel/pkg/llmclient"
	"github.com/omnikernel/kernel/pkg/manifest"
	"github.com/omnikernel/kernel/pkg/memory"
	"github.com/omnikernel/kernel/pkg/observability"
	"github.com/omnikernel/kernel/pkg/router"
	"github.com/omnikernel/kernel/pkg/scanner"
	"github.com/omnikernel/kernel/pkg/server"
	"github.com/omnikernel/kernel/pkg/vectorstore"
)

// Engine holds every wired subsystem for one running kernel instance.
type Engine struct {
	cfg *config.Config

	store    vectorstore.Provider
	llm      llmclient.Provider
	kern     *kernel.Kernel
	rout     *router.Router
	orch     *contextorch.Orchestrator
	loop     *agentloop.Loop
	memMgr   *memory.Manager
	memInt   *memory.Interceptor
	evoMgr   *evolution.Manager
	homeoMgr *homeostasis.Manager
	obs      *observability.Manager
	srv      *server.Server
}

// New constructs and wires every subsystem. The skills root is loaded
// once synchronously; a later rescan happens only when a caller invokes
// Reload (serve --watch does so whenever the config file changes).
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	store, err := vectorstore.New(cfg.VectorStore.Provider, cfg.VectorStore.Path, cfg.VectorStore.Address)
	if err != nil {
		return nil, fmt.Errorf("engine: vector store: %w", err)
	}

	llm, err := llmclient.New(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("engine: llm client: %w", err)
	}

	kern := kernel.New(cfg.Skills.Root, cfg.Skills.MaxConcurrentLoads)
	_, _ = kern.LoadAll(ctx)

	tools := scanTools(cfg.Skills.Root)

	rout, err := router.New(cfg.Router, store, vectorstore.HashEmbed, tools)
	if err != nil {
		return nil, fmt.Errorf("engine: router: %w", err)
	}
	if err := rout.IndexTools(ctx); err != nil {
		return nil, fmt.Errorf("engine: indexing tools: %w", err)
	}

	memMgr := memory.NewManager(store, vectorstore.HashEmbed, cfg.Memory.Collection)
	memInt := memory.NewInterceptor(memMgr)

	hydrator := skillHydrator{kern: kern}
	orch := contextorch.New([]contextorch.Provider{
		contextorch.SystemPersonaProvider{Role: "developer"},
		contextorch.RoutingGuidanceProvider{},
		contextorch.ActiveSkillProvider{Hydrator: hydrator},
		contextorch.AvailableToolsProvider{Index: func() []contextorch.ToolIndexEntry {
			return toolIndex(kern)
		}},
		contextorch.EpisodicMemoryProvider{TopK: cfg.Memory.RecallLimit, Recall: memInt.Recall},
	}, cfg.Context.MaxTokens, cfg.Context.OutputReserve)

	catalog := kernelCatalog{kern: kern}
	loop := agentloop.New(cfg.Agent, llm, orch, kern, catalog, memInt, systemPrompt(cfg))

	evoMgr := evolution.NewManager(cfg.Evolution, evolution.NewTraceCollector(), immune.NewSystem())
	homeoMgr, err := homeostasis.NewManager(cfg.Homeostasis)
	if err != nil {
		return nil, fmt.Errorf("engine: homeostasis: %w", err)
	}

	obs, err := observability.NewFromConfig(ctx, toObservabilityConfig(cfg.Observability))
	if err != nil {
		return nil, fmt.Errorf("engine: observability: %w", err)
	}

	srv := server.New(cfg.Server, server.Dependencies{
		Kernel:        kern,
		Router:        rout,
		Evolution:     evoMgr,
		Homeostasis:   homeoMgr,
		Observability: obs,
	})

	return &Engine{
		cfg: cfg, store: store, llm: llm, kern: kern, rout: rout, orch: orch,
		loop: loop, memMgr: memMgr, memInt: memInt, evoMgr: evoMgr,
		homeoMgr: homeoMgr, obs: obs, srv: srv,
	}, nil
}

// Kernel, Router, Loop, Evolution, Homeostasis, Observability, Server
// expose the wired subsystems for the CLI layer.
func (e *Engine) Kernel() *kernel.Kernel                { return e.kern }
func (e *Engine) Router() *router.Router                { return e.rout }
func (e *Engine) Loop() *agentloop.Loop                 { return e.loop }
func (e *Engine) Evolution() *evolution.Manager         { return e.evoMgr }
func (e *Engine) Homeostasis() *homeostasis.Manager     { return e.homeoMgr }
func (e *Engine) Observability() *observability.Manager { return e.obs }
func (e *Engine) Server() *server.Server                { return e.srv }

// RunTask executes one task through the Agent Loop and records an
// evolution trace for it, closing the loop between C10 and C12: every
// finished task becomes crystallization-eligible material.
func (e *Engine) RunTask(ctx context.Context, sessionID, taskID, query string) (agentloop.Result, error) {
	start := time.Now()
	result, err := e.loop.Run(ctx, sessionID, query)

	e.evoMgr.Tracer().Record(evolution.ExecutionTrace{
		TaskID:          taskID,
		TaskDescription: query,
		Commands:        result.ToolCalls,
		Success:         err == nil,
		DurationMS:      float64(time.Since(start).Milliseconds()),
		Timestamp:       time.Now(),
	})

	return result, err
}

// Reload rescans the skills root, hot-reloading every changed skill and
// refreshing the Router's tool index, matching §4.2's hot reload protocol
// extended to the Router's own index (the teacher's config.Watch loop
// rebuilding executors has the same shape: rescan, then rewire dependents).
func (e *Engine) Reload(ctx context.Context) error {
	_, _ = e.kern.LoadAll(ctx)

	e.rout.SetTools(scanTools(e.cfg.Skills.Root))
	return e.rout.IndexTools(ctx)
}

// Shutdown releases resources held by the wired subsystems.
func (e *Engine) Shutdown(ctx context.Context) error {
	if e.obs != nil {
		return e.obs.Shutdown(ctx)
	}
	return nil
}

// scanTools flattens every skill's declared tool records into one index
// for the Router. Scan errors on individual skills are tolerated the same
// way kernel.LoadAll tolerates them: one broken skill must never block
// the rest of the index from being built.
func scanTools(root string) []manifest.ToolRecord {
	skills, _ := scanner.Scan(root)
	var tools []manifest.ToolRecord
	for _, s := range skills {
		tools = append(tools, s.Commands...)
	}
	return tools
}

func toolIndex(kern *kernel.Kernel) []contextorch.ToolIndexEntry {
	bySkill := make(map[string][]string)
	order := make([]string, 0)
	for _, c := range kern.GetCoreCommands() {
		if _, ok := bySkill[c.SkillName]; !ok {
			order = append(order, c.SkillName)
		}
		bySkill[c.SkillName] = append(bySkill[c.SkillName], c.Name)
	}

	entries := make([]contextorch.ToolIndexEntry, 0, len(order))
	for _, name := range order {
		skill, err := kern.GetSkill(name)
		desc := ""
		if err == nil && skill.Manifest != nil {
			desc = skill.Manifest.Description
		}
		entries = append(entries, contextorch.ToolIndexEntry{
			SkillName:   name,
			Description: desc,
			ToolNames:   bySkill[name],
		})
	}
	return entries
}

func systemPrompt(cfg *config.Config) string {
	return "You are the omnikernel agent. Use the available tools to accomplish the user's goal; " +
		"select tools by capability, never by assumed file layout."
}

// skillHydrator adapts *kernel.Kernel to contextorch.SkillContextHydrator.
type skillHydrator struct {
	kern *kernel.Kernel
}

func (h skillHydrator) HydrateSkillContext(name string) (string, error) {
	skill, err := h.kern.GetSkill(name)
	if err != nil {
		return "", err
	}
	if skill.ContextCache == nil {
		return "", kernelerr.New(kernelerr.KindSkillNotFound, "engine", "HydrateSkillContext", name)
	}
	return skill.ContextCache.Content, nil
}

// kernelCatalog adapts *kernel.Kernel's core commands to agentloop's
// narrower CommandSchema, decoupling agentloop from kernel.Command.
type kernelCatalog struct {
	kern *kernel.Kernel
}

func (c kernelCatalog) GetCoreCommands() []agentloop.CommandSchema {
	cmds := c.kern.GetCoreCommands()
	out := make([]agentloop.CommandSchema, len(cmds))
	for i, cmd := range cmds {
		name := cmd.QualifiedName()
		if cmd.Name == "discover" {
			name = "skill.discover"
		}
		out[i] = agentloop.CommandSchema{Name: name, Description: cmd.Description, Schema: cmd.Schema}
	}
	return out
}

func toObservabilityConfig(c config.ObservabilityConfig) *observability.Config {
	return &observability.Config{
		Tracing: observability.TracingConfig{
			Enabled:     c.TracingEnabled,
			Exporter:    "otlp",
			Endpoint:    c.OTLPEndpoint,
			ServiceName: c.ServiceName,
		},
		Metrics: observability.MetricsConfig{
			Enabled:   c.MetricsEnabled,
			Namespace: c.ServiceName,
		},
	}
}
