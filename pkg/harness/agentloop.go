package harness

import (
	"context"

	"github.com/omnikernel/kernel/pkg/agentloop"
)

// FakeCatalog is an agentloop.ToolCatalog backed by a fixed command list,
// for exercising Loop.Run's adaptive tool schema behavior without a real
// *kernel.Kernel.
type FakeCatalog struct {
	Commands []agentloop.CommandSchema
}

func (c FakeCatalog) GetCoreCommands() []agentloop.CommandSchema { return c.Commands }

// FakeExecutor is an agentloop.ToolExecutor that records every call it
// receives and returns a fixed canned output.
type FakeExecutor struct {
	Output string
	Err    error
	Calls  []FakeExecutorCall
}

// FakeExecutorCall is one recorded ExecuteTool invocation.
type FakeExecutorCall struct {
	SkillName   string
	CommandName string
	Args        map[string]any
	Caller      string
}

func (e *FakeExecutor) ExecuteTool(_ context.Context, skillName, commandName string, args map[string]any, caller string) (string, error) {
	e.Calls = append(e.Calls, FakeExecutorCall{SkillName: skillName, CommandName: commandName, Args: args, Caller: caller})
	return e.Output, e.Err
}

var _ agentloop.ToolCatalog = FakeCatalog{}
var _ agentloop.ToolExecutor = (*FakeExecutor)(nil)
