package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/omnikernel/kernel/pkg/agentloop"
	"github.com/omnikernel/kernel/pkg/contextorch"
)

// Interceptor wraps a Manager with the auto-reflection and session
// bookkeeping the Agent Loop needs at task boundaries. Grounded on
// interceptor.py's MemoryInterceptor (before_execution/after_execution/
// _generate_reflection).
type Interceptor struct {
	manager   *Manager
	sessionID string
}

var _ agentloop.MemoryInterceptor = (*Interceptor)(nil)

// NewInterceptor constructs an Interceptor over an existing Manager.
func NewInterceptor(manager *Manager) *Interceptor {
	return &Interceptor{manager: manager}
}

// SetSession scopes subsequent AfterExecution calls to a session ID.
func (i *Interceptor) SetSession(sessionID string) {
	i.sessionID = sessionID
}

// AfterExecution records one finished task with a reflection it always
// synthesizes from the outcome. Satisfies agentloop.MemoryInterceptor.
func (i *Interceptor) AfterExecution(ctx context.Context, in agentloop.AfterExecutionInput) (string, error) {
	outcome := "failure"
	if in.Success {
		outcome = "success"
	}

	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = i.sessionID
	}

	reflection := generateReflection(in.Query, in.Success, in.Error, in.ToolCalls)
	return i.manager.AddExperience(ctx, in.Query, in.ToolCalls, outcome, in.Error, reflection, sessionID)
}

// BeforeExecution recalls memories relevant to the upcoming task, for
// context injection. Matches before_execution()'s recall-before-work
// contract.
func (i *Interceptor) BeforeExecution(ctx context.Context, userInput string, limit int) ([]InteractionLog, error) {
	return i.manager.Recall(ctx, userInput, limit, "")
}

// Recall adapts BeforeExecution to contextorch.EpisodicMemoryProvider's
// Recall callback shape (query, topK) -> Recollection rows.
func (i *Interceptor) Recall(ctx context.Context, query string, topK int) ([]contextorch.Recollection, error) {
	logs, err := i.BeforeExecution(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	rows := make([]contextorch.Recollection, len(logs))
	for idx, l := range logs {
		rows[idx] = contextorch.Recollection{Query: l.UserQuery, Reflection: l.Reflection, Error: l.ErrorMsg}
	}
	return rows, nil
}

// generateReflection synthesizes a lesson learned from the outcome, the
// same template-based generator as _generate_reflection: successes get a
// one-line summary, failures get an error-keyword-matched suggestion.
func generateReflection(userInput string, success bool, errMsg string, toolCalls []string) string {
	if success {
		tools := "no tools"
		if len(toolCalls) > 0 {
			tools = strings.Join(toolCalls, ", ")
		}
		return fmt.Sprintf("Successfully completed: %s. Used tools: %s.", truncate(userInput, 100), tools)
	}

	if errMsg == "" {
		return fmt.Sprintf("Failed: %s. No specific error message provided.", truncate(userInput, 100))
	}

	suggestion := suggestionFor(errMsg)
	return fmt.Sprintf("Failed: %s. Error: %s. %s", truncate(userInput, 80), truncate(errMsg, 100), suggestion)
}

// suggestionFor matches _generate_reflection's substring rule table.
func suggestionFor(errMsg string) string {
	lower := strings.ToLower(errMsg)
	switch {
	case strings.Contains(lower, "lock"):
		return "Try removing the lock file (.git/index.lock) before retrying."
	case strings.Contains(lower, "permission"):
		return "Check file permissions or run with appropriate access."
	case strings.Contains(lower, "not found"):
		return "Verify the file/path exists before accessing."
	case strings.Contains(lower, "timeout"):
		return "Consider increasing timeout or breaking into smaller operations."
	default:
		return "Review the error message for specific guidance."
	}
}

// FormatForContext renders memories as a context-injection string,
// matching format_memories_for_context()'s "## Relevant Past Experience"
// block.
func FormatForContext(logs []InteractionLog) string {
	if len(logs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Relevant Past Experience:\n")
	for idx, l := range logs {
		status := "✗"
		if l.Outcome == "success" {
			status = "✓"
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", idx+1, status, l.Reflection)
	}
	return strings.TrimRight(b.String(), "\n")
}
