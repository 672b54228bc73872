package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/httpclient"
)

// OpenAIProvider implements Provider against the Chat Completions API.
// Grounded on pkg/llms/openai.go's createHTTPClient wiring; the kernel
// targets the simpler Chat Completions shape rather than porting the
// Responses API's reasoning-stream state machine (see DESIGN.md).
type OpenAIProvider struct {
	cfg        config.LLMConfig
	httpClient *httpclient.Client
}

func NewOpenAIProvider(cfg config.LLMConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llmclient: openai requires an api key")
	}
	if cfg.Host == "" {
		cfg.Host = "https://api.openai.com"
	}
	return &OpenAIProvider{
		cfg: cfg,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(time.Duration(cfg.RetryDelay)*time.Second),
			httpclient.WithHeaderParser(httpclient.ParseOpenAIRateLimitHeaders),
		),
	}, nil
}

func (p *OpenAIProvider) ModelName() string { return p.cfg.Model }

type openAIFunctionDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type openAITool struct {
	Type     string            `json:"type"`
	Function openAIFunctionDef `json:"function"`
}

type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIToolCall struct {
	Index    int                `json:"index"`
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIFunctionCall `json:"function"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Stream      bool            `json:"stream"`
	Tools       []openAITool    `json:"tools,omitempty"`
}

type openAIChoice struct {
	Message      openAIMessage `json:"message"`
	Delta        openAIMessage `json:"delta"`
	FinishReason string        `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type openAIResponse struct {
	Choices []openAIChoice  `json:"choices"`
	Usage   openAIUsage     `json:"usage"`
	Error   *openAIAPIError `json:"error,omitempty"`
}

type openAIAPIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func toOpenAIMessages(messages []Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages))
	for _, m := range messages {
		om := openAIMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID, Name: m.Name}
		for _, tc := range m.ToolCalls {
			raw := tc.RawArgs
			if raw == "" {
				if b, err := json.Marshal(tc.Arguments); err == nil {
					raw = string(b)
				}
			}
			om.ToolCalls = append(om.ToolCalls, openAIToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: openAIFunctionCall{Name: tc.Name, Arguments: raw},
			})
		}
		out = append(out, om)
	}
	return out
}

func (p *OpenAIProvider) buildRequest(messages []Message, stream bool, tools []ToolDefinition) openAIRequest {
	req := openAIRequest{
		Model:       p.cfg.Model,
		Messages:    toOpenAIMessages(messages),
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Stream:      stream,
	}
	if len(tools) > 0 {
		req.Tools = make([]openAITool, len(tools))
		for i, t := range tools {
			req.Tools[i] = openAITool{Type: "function", Function: openAIFunctionDef{Name: t.Name, Description: t.Description, Parameters: t.Parameters}}
		}
	}
	return req
}

func (p *OpenAIProvider) newRequest(ctx context.Context, body openAIRequest) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llmclient: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Host+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("llmclient: build request: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil }
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	return req, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (Completion, error) {
	req, err := p.newRequest(ctx, p.buildRequest(messages, false, tools))
	if err != nil {
		return Completion{}, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("llmclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return Completion{}, fmt.Errorf("llmclient: openai returned %d: %s", resp.StatusCode, string(payload))
	}
	var out openAIResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return Completion{}, fmt.Errorf("llmclient: decode response: %w", err)
	}
	if out.Error != nil {
		return Completion{}, fmt.Errorf("llmclient: openai: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return Completion{}, fmt.Errorf("llmclient: openai returned no choices")
	}

	msg := out.Choices[0].Message
	calls := make([]ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		var args map[string]interface{}
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		calls = append(calls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args, RawArgs: tc.Function.Arguments})
	}
	return Completion{Text: msg.Content, ToolCalls: calls, Tokens: out.Usage.PromptTokens + out.Usage.CompletionTokens}, nil
}

func (p *OpenAIProvider) GenerateStreaming(ctx context.Context, messages []Message, tools []ToolDefinition) (<-chan StreamChunk, error) {
	req, err := p.newRequest(ctx, p.buildRequest(messages, true, tools))
	if err != nil {
		return nil, err
	}
	out := make(chan StreamChunk, 100)
	go func() {
		defer close(out)
		if err := p.stream(req, out); err != nil {
			out <- StreamChunk{Type: "error", Error: err}
		}
	}()
	return out, nil
}

func (p *OpenAIProvider) stream(req *http.Request, out chan<- StreamChunk) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("llmclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("llmclient: openai returned %d: %s", resp.StatusCode, string(payload))
	}

	type fragment struct {
		id, name string
		args     strings.Builder
	}
	fragments := make(map[int]*fragment)
	var totalTokens int

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			indices := make([]int, 0, len(fragments))
			for idx := range fragments {
				indices = append(indices, idx)
			}
			sort.Ints(indices)
			for _, idx := range indices {
				f := fragments[idx]
				var args map[string]interface{}
				raw := f.args.String()
				_ = json.Unmarshal([]byte(raw), &args)
				out <- StreamChunk{Type: "tool_call", ToolCall: &ToolCall{ID: f.id, Name: f.name, Arguments: args, RawArgs: raw}}
			}
			out <- StreamChunk{Type: "done", Tokens: totalTokens}
			return nil
		}

		var chunk openAIResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return fmt.Errorf("llmclient: decode stream chunk: %w", err)
		}
		if chunk.Usage.CompletionTokens > 0 {
			totalTokens = chunk.Usage.PromptTokens + chunk.Usage.CompletionTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			out <- StreamChunk{Type: "text", Text: delta.Content}
		}
		for _, tc := range delta.ToolCalls {
			f, ok := fragments[tc.Index]
			if !ok {
				f = &fragment{}
				fragments[tc.Index] = f
			}
			if tc.ID != "" {
				f.id = tc.ID
			}
			if tc.Function.Name != "" {
				f.name = tc.Function.Name
			}
			f.args.WriteString(tc.Function.Arguments)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("llmclient: read stream: %w", err)
	}
	return nil
}
