package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/omnikernel/kernel/pkg/config"
)

func testLLMConfig(host string) config.LLMConfig {
	cfg := config.LLMConfig{Provider: "anthropic", APIKey: "sk-ant-test", Host: host}
	cfg.SetDefaults()
	return cfg
}

func TestNewAnthropicProviderRequiresAPIKey(t *testing.T) {
	_, err := NewAnthropicProvider(config.LLMConfig{Provider: "anthropic"})
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestAnthropicGenerateParsesTextAndToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.System == "" {
			t.Errorf("expected system prompt to be forwarded")
		}
		resp := anthropicResponse{
			Content: []anthropicContent{
				{Type: "text", Text: "looking into it"},
				{Type: "tool_use", ID: "call_1", Name: "git.commit", Input: &map[string]interface{}{"message": "wip"}},
			},
			Usage: anthropicUsage{InputTokens: 10, OutputTokens: 5},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewAnthropicProvider(testLLMConfig(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}

	completion, err := p.Generate(context.Background(), []Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "commit the change"},
	}, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if completion.Text != "looking into it" {
		t.Errorf("Text = %q, want %q", completion.Text, "looking into it")
	}
	if len(completion.ToolCalls) != 1 || completion.ToolCalls[0].Name != "git.commit" {
		t.Errorf("ToolCalls = %+v, want one git.commit call", completion.ToolCalls)
	}
	if completion.Tokens != 15 {
		t.Errorf("Tokens = %d, want 15", completion.Tokens)
	}
}

func TestAnthropicGenerateSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := anthropicResponse{Error: &anthropicError{Type: "invalid_request_error", Message: "bad model"}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewAnthropicProvider(testLLMConfig(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}
	_, err = p.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error from API-reported failure")
	}
}

func TestAnthropicGenerateStreamingEmitsTextAndDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hi"}}`,
			`{"type":"message_delta","usage":{"output_tokens":3}}`,
			`{"type":"message_stop"}`,
		}
		for _, e := range events {
			_, _ = w.Write([]byte("data: " + e + "\n\n"))
		}
	}))
	defer server.Close()

	p, err := NewAnthropicProvider(testLLMConfig(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}
	ch, err := p.GenerateStreaming(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("GenerateStreaming() error = %v", err)
	}

	var sawText, sawDone bool
	for chunk := range ch {
		switch chunk.Type {
		case "text":
			sawText = true
		case "done":
			sawDone = true
			if chunk.Tokens != 3 {
				t.Errorf("done tokens = %d, want 3", chunk.Tokens)
			}
		case "error":
			t.Fatalf("unexpected stream error: %v", chunk.Error)
		}
	}
	if !sawText || !sawDone {
		t.Errorf("sawText=%v sawDone=%v, want both true", sawText, sawDone)
	}
}
