// Package agentloop drives the Agent Loop / CCA state machine: for one
// user task, repeatedly build context, call the LLM, dispatch any tool
// calls, and observe the results until the model replies with no further
// tool calls or a budget is exhausted. Grounded on the teacher's
// llmagent.Flow outer/inner loop shape (pkg/agent/llmagent/flow.go's
// Run/runOneStep split) and on original_source's meta_agent.py TDD cycle
// for the abort-on-exhausted-budget discipline, generalized from a
// fixed five-iteration test loop to the spec's configurable step limits.
package agentloop

import (
	"context"
	"fmt"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/contextorch"
	"github.com/omnikernel/kernel/pkg/kernelerr"
	"github.com/omnikernel/kernel/pkg/llmclient"
)

// ToolExecutor dispatches one tool call by skill-qualified name. Satisfied
// by *kernel.Kernel's ExecuteTool in production.
type ToolExecutor interface {
	ExecuteTool(ctx context.Context, skillName, commandName string, args map[string]any, caller string) (string, error)
}

// ToolCatalog supplies the adaptive tool schema list the LLM is offered
// each step. Satisfied in production by internal/engine's kernelCatalog,
// which adapts *kernel.Kernel's GetCoreCommands.
type ToolCatalog interface {
	GetCoreCommands() []CommandSchema
}

// CommandSchema is the subset of kernel.Command the loop needs to build an
// llmclient.ToolDefinition, decoupling agentloop from kernel's full type.
type CommandSchema struct {
	Name        string
	Description string
	Schema      map[string]any
}

// AfterExecutionInput is what the loop reports to the memory interceptor
// once a task finishes, grounded on interceptor.py's after_execution params.
type AfterExecutionInput struct {
	Query     string
	ToolCalls []string
	Success   bool
	Error     string
	SessionID string
}

// MemoryInterceptor records task outcomes for episodic recall. Satisfied by
// *memory.Interceptor; nil is a valid no-op dependency.
type MemoryInterceptor interface {
	AfterExecution(ctx context.Context, in AfterExecutionInput) (string, error)
}

// Turn is one user/assistant exchange retained in history.
type Turn struct {
	User      llmclient.Message
	Assistant llmclient.Message
	ToolTurns []llmclient.Message
}

// Result is what Run returns: the final assistant reply, the number of tool
// calls dispatched (Steps), and the skill-qualified names of every tool
// invoked along the way.
type Result struct {
	Reply     string
	Steps     int
	ToolCalls []string
	Aborted   bool
}

// Loop is one configured Agent Loop instance, long-lived across tasks
// within a session — history accumulates across Run calls the way the
// teacher's TokenAwareHistoryService keeps one session map alive.
type Loop struct {
	cfg        config.AgentConfig
	provider   llmclient.Provider
	orch       *contextorch.Orchestrator
	tools      ToolExecutor
	catalog    ToolCatalog
	memory     MemoryInterceptor
	systemText string

	history []Turn
}

// New constructs a Loop. memory may be nil (episodic recall skipped).
func New(cfg config.AgentConfig, provider llmclient.Provider, orch *contextorch.Orchestrator, tools ToolExecutor, catalog ToolCatalog, memory MemoryInterceptor, systemText string) *Loop {
	return &Loop{
		cfg:        cfg,
		provider:   provider,
		orch:       orch,
		tools:      tools,
		catalog:    catalog,
		memory:     memory,
		systemText: systemText,
	}
}

// discoveryCommand is always offered first in the tool schema list so the
// model can always reach for the skill-discovery command regardless of
// truncation, per §4.10's invariant.
const discoveryCommand = "skill.discover"

// buildToolDefinitions assembles the adaptive tool list: skill.discover
// first, truncated to MaxToolSchemas, never containing dynamic commands
// (the catalog itself only ever returns core commands).
func (l *Loop) buildToolDefinitions() []llmclient.ToolDefinition {
	if l.catalog == nil {
		return nil
	}
	cmds := l.catalog.GetCoreCommands()

	ordered := make([]CommandSchema, 0, len(cmds))
	var discovery *CommandSchema
	for i := range cmds {
		if cmds[i].Name == discoveryCommand {
			discovery = &cmds[i]
			continue
		}
		ordered = append(ordered, cmds[i])
	}
	if discovery != nil {
		ordered = append([]CommandSchema{*discovery}, ordered...)
	}

	max := l.cfg.MaxToolSchemas
	if max > 0 && len(ordered) > max {
		ordered = ordered[:max]
	}

	defs := make([]llmclient.ToolDefinition, len(ordered))
	for i, c := range ordered {
		defs[i] = llmclient.ToolDefinition{Name: c.Name, Description: c.Description, Parameters: c.Schema}
	}
	return defs
}

// buildMessages flattens retained history plus the in-flight task's tool
// exchanges into the provider's universal Message slice, system prompt
// first per §4.9's "system prompts are preserved separately" rule.
func (l *Loop) buildMessages(systemPrompt string, current Turn) []llmclient.Message {
	msgs := []llmclient.Message{{Role: "system", Content: systemPrompt}}
	for _, t := range l.history {
		msgs = append(msgs, t.User)
		msgs = append(msgs, t.Assistant)
		msgs = append(msgs, t.ToolTurns...)
	}
	msgs = append(msgs, current.User)
	msgs = append(msgs, current.ToolTurns...)
	return msgs
}

// prune keeps at most RetainedTurns full turns, dropping the oldest first.
// §4.10: "the context manager keeps at most retained_turns full
// user/assistant pairs." Summarization into a single replacement turn is
// the AutoSummarize upgrade path; without a summarizer wired in, pruning
// degrades gracefully to a hard drop of the oldest turns.
func (l *Loop) prune() {
	max := l.cfg.RetainedTurns
	if max <= 0 || len(l.history) <= max {
		return
	}
	l.history = l.history[len(l.history)-max:]
}

// Run executes one full task through the CCA state machine:
// start -> (context_build -> llm_call -> dispatch_tools? -> observe)* -> finish.
func (l *Loop) Run(ctx context.Context, sessionID, query string) (Result, error) {
	current := Turn{User: llmclient.Message{Role: "user", Content: query}}

	state := contextorch.State{"current_task": query}
	var toolNames []string
	consecutiveErrors := 0

	for step := 0; ; step++ {
		if l.cfg.MaxToolCalls > 0 && len(toolNames) >= l.cfg.MaxToolCalls {
			return l.finish(ctx, sessionID, query, current, toolNames, false,
				kernelerr.New(kernelerr.KindAgentLoopAborted, "agentloop", "Run", "max_tool_calls reached"))
		}

		systemPrompt := l.systemText
		if l.orch != nil {
			built, _, err := l.orch.BuildContext(ctx, state)
			if err != nil {
				return l.finish(ctx, sessionID, query, current, toolNames, false,
					kernelerr.Wrap(kernelerr.KindAgentLoopAborted, "agentloop", "Run", "context build failed", err))
			}
			if built != "" {
				systemPrompt = systemPrompt + "\n\n" + built
			}
		}

		messages := l.buildMessages(systemPrompt, current)
		completion, err := l.provider.Generate(ctx, messages, l.buildToolDefinitions())
		if err != nil {
			return l.finish(ctx, sessionID, query, current, toolNames, false,
				kernelerr.Wrap(kernelerr.KindAgentLoopAborted, "agentloop", "Run", "llm call failed", err))
		}

		if len(completion.ToolCalls) == 0 {
			current.Assistant = llmclient.Message{Role: "assistant", Content: completion.Text}
			return l.finish(ctx, sessionID, query, current, toolNames, true, nil)
		}

		current.Assistant = llmclient.Message{Role: "assistant", Content: completion.Text, ToolCalls: completion.ToolCalls}
		current.ToolTurns = append(current.ToolTurns, current.Assistant)

		for _, call := range completion.ToolCalls {
			skillName, commandName := splitToolName(call.Name)
			out, err := l.tools.ExecuteTool(ctx, skillName, commandName, call.Arguments, "LLM")
			toolNames = append(toolNames, call.Name)

			if err != nil {
				consecutiveErrors++
				current.ToolTurns = append(current.ToolTurns, llmclient.Message{
					Role: "tool", Content: fmt.Sprintf("error: %v", err), ToolCallID: call.ID, Name: call.Name,
				})
				if consecutiveErrors >= l.cfg.MaxConsecutiveErrors {
					return l.finish(ctx, sessionID, query, current, toolNames, false,
						kernelerr.New(kernelerr.KindAgentLoopAborted, "agentloop", "Run",
							fmt.Sprintf("aborted after %d consecutive tool failures", consecutiveErrors)))
				}
				continue
			}

			consecutiveErrors = 0
			current.ToolTurns = append(current.ToolTurns, llmclient.Message{
				Role: "tool", Content: out, ToolCallID: call.ID, Name: call.Name,
			})
		}
	}
}

// finish records the task in history (on success), reports the outcome to
// the memory interceptor, and returns the Result for the caller.
func (l *Loop) finish(ctx context.Context, sessionID, query string, current Turn, toolNames []string, success bool, runErr error) (Result, error) {
	if success {
		l.history = append(l.history, current)
		l.prune()
	}

	if l.memory != nil {
		errText := ""
		if runErr != nil {
			errText = runErr.Error()
		}
		_, _ = l.memory.AfterExecution(ctx, AfterExecutionInput{
			Query:     query,
			ToolCalls: toolNames,
			Success:   success,
			Error:     errText,
			SessionID: sessionID,
		})
	}

	if runErr != nil {
		return Result{Reply: current.Assistant.Content, Steps: len(toolNames), ToolCalls: toolNames, Aborted: true}, runErr
	}
	return Result{Reply: current.Assistant.Content, Steps: len(toolNames), ToolCalls: toolNames}, nil
}

// splitToolName separates a skill-qualified command name ("git.commit")
// into its skill and command parts, matching Kernel.ExecuteTool's shape.
func splitToolName(name string) (skill, command string) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:]
		}
	}
	return "", name
}
