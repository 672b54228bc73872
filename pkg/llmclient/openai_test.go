package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/omnikernel/kernel/pkg/config"
)

func testOpenAIConfig(host string) config.LLMConfig {
	cfg := config.LLMConfig{Provider: "openai", APIKey: "sk-test", Host: host}
	cfg.SetDefaults()
	return cfg
}

func TestNewOpenAIProviderRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIProvider(config.LLMConfig{Provider: "openai"})
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestOpenAIGenerateParsesTextAndToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		resp := openAIResponse{
			Choices: []openAIChoice{{Message: openAIMessage{
				Content: "done",
				ToolCalls: []openAIToolCall{
					{ID: "call_1", Type: "function", Function: openAIFunctionCall{Name: "git.commit", Arguments: `{"message":"wip"}`}},
				},
			}}},
			Usage: openAIUsage{PromptTokens: 8, CompletionTokens: 4},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}
	completion, err := p.Generate(context.Background(), []Message{{Role: "user", Content: "commit it"}}, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if completion.Text != "done" {
		t.Errorf("Text = %q, want %q", completion.Text, "done")
	}
	if len(completion.ToolCalls) != 1 || completion.ToolCalls[0].Name != "git.commit" {
		t.Errorf("ToolCalls = %+v", completion.ToolCalls)
	}
	if completion.Tokens != 12 {
		t.Errorf("Tokens = %d, want 12", completion.Tokens)
	}
}

func TestOpenAIGenerateSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openAIResponse{Error: &openAIAPIError{Type: "invalid_request_error", Message: "bad model"}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}
	_, err = p.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error from API-reported failure")
	}
}

// TestOpenAIStreamingOrdersToolCallsByIndex pins the fix for keying
// fragment accumulation by the delta's own index field rather than loop
// position, and for flushing fragments in sorted index order.
func TestOpenAIStreamingOrdersToolCallsByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			`{"choices":[{"delta":{"tool_calls":[{"index":1,"id":"call_b","function":{"name":"second"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_a","function":{"name":"first"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{}"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":1,"function":{"arguments":"{}"}}]}}]}`,
			`{"choices":[{"delta":{}}],"usage":{"prompt_tokens":5,"completion_tokens":2}}`,
			`[DONE]`,
		}
		for _, e := range events {
			_, _ = w.Write([]byte("data: " + e + "\n\n"))
		}
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}
	ch, err := p.GenerateStreaming(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("GenerateStreaming() error = %v", err)
	}

	var names []string
	for chunk := range ch {
		if chunk.Type == "error" {
			t.Fatalf("unexpected stream error: %v", chunk.Error)
		}
		if chunk.Type == "tool_call" {
			names = append(names, chunk.ToolCall.Name)
		}
	}
	if len(names) != 2 || names[0] != "first" || names[1] != "second" {
		t.Errorf("names = %v, want [first second]", names)
	}
}
