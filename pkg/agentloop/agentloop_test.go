package agentloop

import (
	"context"
	"errors"
	"testing"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/llmclient"
)

type stubProvider struct {
	responses []llmclient.Completion
	calls     int
}

func (s *stubProvider) Generate(_ context.Context, _ []llmclient.Message, _ []llmclient.ToolDefinition) (llmclient.Completion, error) {
	if s.calls >= len(s.responses) {
		return llmclient.Completion{}, errors.New("no more stubbed responses")
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *stubProvider) GenerateStreaming(context.Context, []llmclient.Message, []llmclient.ToolDefinition) (<-chan llmclient.StreamChunk, error) {
	return nil, errors.New("not implemented")
}

func (s *stubProvider) ModelName() string { return "stub" }

type stubTools struct {
	results map[string]string
	errs    map[string]error
	calls   []string
}

func (s *stubTools) ExecuteTool(_ context.Context, skillName, commandName string, _ map[string]any, _ string) (string, error) {
	qualified := skillName + "." + commandName
	s.calls = append(s.calls, qualified)
	if err, ok := s.errs[qualified]; ok {
		return "", err
	}
	return s.results[qualified], nil
}

type stubMemory struct {
	recorded []AfterExecutionInput
}

func (s *stubMemory) AfterExecution(_ context.Context, in AfterExecutionInput) (string, error) {
	s.recorded = append(s.recorded, in)
	return "mem-1", nil
}

func testConfig() config.AgentConfig {
	cfg := config.AgentConfig{}
	cfg.SetDefaults()
	return cfg
}

func TestRunReturnsDirectReplyWithNoToolCalls(t *testing.T) {
	provider := &stubProvider{responses: []llmclient.Completion{{Text: "hello there"}}}
	loop := New(testConfig(), provider, nil, &stubTools{}, nil, nil, "be helpful")

	result, err := loop.Run(context.Background(), "sess-1", "hi")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Reply != "hello there" {
		t.Errorf("Reply = %q, want %q", result.Reply, "hello there")
	}
	if result.Aborted {
		t.Errorf("Aborted = true, want false")
	}
}

func TestRunDispatchesToolCallsThenFinishes(t *testing.T) {
	provider := &stubProvider{responses: []llmclient.Completion{
		{ToolCalls: []llmclient.ToolCall{{ID: "1", Name: "git.commit", Arguments: map[string]any{"message": "wip"}}}},
		{Text: "committed"},
	}}
	tools := &stubTools{results: map[string]string{"git.commit": "ok"}}
	memory := &stubMemory{}
	loop := New(testConfig(), provider, nil, tools, nil, memory, "be helpful")

	result, err := loop.Run(context.Background(), "sess-1", "commit my change")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Reply != "committed" {
		t.Errorf("Reply = %q, want %q", result.Reply, "committed")
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0] != "git.commit" {
		t.Errorf("ToolCalls = %v", result.ToolCalls)
	}
	if len(memory.recorded) != 1 || !memory.recorded[0].Success {
		t.Errorf("memory.recorded = %+v, want one successful record", memory.recorded)
	}
}

func TestRunAbortsAfterMaxConsecutiveErrors(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConsecutiveErrors = 2

	responses := make([]llmclient.Completion, 0, 3)
	for i := 0; i < 3; i++ {
		responses = append(responses, llmclient.Completion{
			ToolCalls: []llmclient.ToolCall{{ID: "1", Name: "git.broken", Arguments: nil}},
		})
	}
	provider := &stubProvider{responses: responses}
	tools := &stubTools{errs: map[string]error{"git.broken": errors.New("lock file exists")}}
	memory := &stubMemory{}
	loop := New(cfg, provider, nil, tools, nil, memory, "be helpful")

	result, err := loop.Run(context.Background(), "sess-1", "fix it")
	if err == nil {
		t.Fatal("expected error after exhausting consecutive error budget")
	}
	if !result.Aborted {
		t.Errorf("Aborted = false, want true")
	}
	if len(memory.recorded) != 1 || memory.recorded[0].Success {
		t.Errorf("memory.recorded = %+v, want one failed record", memory.recorded)
	}
}

func TestRunAbortsAtMaxToolCalls(t *testing.T) {
	cfg := testConfig()
	cfg.MaxToolCalls = 1

	provider := &stubProvider{responses: []llmclient.Completion{
		{ToolCalls: []llmclient.ToolCall{{ID: "1", Name: "git.commit", Arguments: nil}}},
		{ToolCalls: []llmclient.ToolCall{{ID: "2", Name: "git.commit", Arguments: nil}}},
	}}
	tools := &stubTools{results: map[string]string{"git.commit": "ok"}}
	loop := New(cfg, provider, nil, tools, nil, nil, "be helpful")

	_, err := loop.Run(context.Background(), "sess-1", "commit repeatedly")
	if err == nil {
		t.Fatal("expected error at max_tool_calls")
	}
}

func TestHistoryPruneKeepsOnlyRetainedTurns(t *testing.T) {
	cfg := testConfig()
	cfg.RetainedTurns = 1

	provider := &stubProvider{responses: []llmclient.Completion{{Text: "first"}, {Text: "second"}}}
	loop := New(cfg, provider, nil, &stubTools{}, nil, nil, "be helpful")

	if _, err := loop.Run(context.Background(), "sess-1", "one"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := loop.Run(context.Background(), "sess-1", "two"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(loop.history) != 1 {
		t.Errorf("len(history) = %d, want 1", len(loop.history))
	}
	if loop.history[0].User.Content != "two" {
		t.Errorf("retained turn = %q, want %q", loop.history[0].User.Content, "two")
	}
}

func TestSplitToolNameSeparatesSkillAndCommand(t *testing.T) {
	skill, command := splitToolName("git.commit")
	if skill != "git" || command != "commit" {
		t.Errorf("splitToolName = (%q, %q), want (git, commit)", skill, command)
	}
}
