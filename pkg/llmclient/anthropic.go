package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/httpclient"
)

// AnthropicProvider implements Provider against the Claude Messages API.
// Grounded on pkg/llms/anthropic.go, adapted to the kernel's own Message
// type and built on the adapted pkg/httpclient for retry/backoff.
type AnthropicProvider struct {
	cfg        config.LLMConfig
	httpClient *httpclient.Client
}

// NewAnthropicProvider constructs a Provider from an LLMConfig.
func NewAnthropicProvider(cfg config.LLMConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llmclient: anthropic requires an api key")
	}
	if cfg.Host == "" {
		cfg.Host = "https://api.anthropic.com"
	}
	return &AnthropicProvider{
		cfg: cfg,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(time.Duration(cfg.RetryDelay)*time.Second),
			httpclient.WithHeaderParser(httpclient.ParseAnthropicRateLimitHeaders),
		),
	}, nil
}

func (p *AnthropicProvider) ModelName() string { return p.cfg.Model }

type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Stream      bool               `json:"stream"`
	System      string             `json:"system,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type      string                  `json:"type"`
	Text      string                  `json:"text,omitempty"`
	ID        string                  `json:"id,omitempty"`
	Name      string                  `json:"name,omitempty"`
	Input     *map[string]interface{} `json:"input,omitempty"`
	ToolUseID string                  `json:"tool_use_id,omitempty"`
	Content   string                  `json:"content,omitempty"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
	Error      *anthropicError    `json:"error,omitempty"`
}

type anthropicStreamResponse struct {
	Type         string            `json:"type"`
	Index        int               `json:"index,omitempty"`
	Delta        *anthropicDelta   `json:"delta,omitempty"`
	ContentBlock *anthropicContent `json:"content_block,omitempty"`
	Usage        *anthropicUsage   `json:"usage,omitempty"`
}

type anthropicDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// buildRequest converts the universal Message slice into Anthropic's
// system-prompt-plus-messages shape, grounded on anthropic.go's buildRequest.
func (p *AnthropicProvider) buildRequest(messages []Message, stream bool, tools []ToolDefinition) anthropicRequest {
	var systemParts []string
	converted := make([]anthropicMessage, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if msg.Content != "" {
				systemParts = append(systemParts, msg.Content)
			}
		case "user":
			converted = append(converted, anthropicMessage{
				Role:    "user",
				Content: []anthropicContent{{Type: "text", Text: msg.Content}},
			})
		case "tool":
			converted = append(converted, anthropicMessage{
				Role:    "user",
				Content: []anthropicContent{{Type: "tool_result", ToolUseID: msg.ToolCallID, Content: msg.Content}},
			})
		case "assistant":
			var contents []anthropicContent
			if msg.Content != "" {
				contents = append(contents, anthropicContent{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				args := tc.Arguments
				if args == nil {
					args = make(map[string]interface{})
				}
				contents = append(contents, anthropicContent{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: &args})
			}
			converted = append(converted, anthropicMessage{Role: "assistant", Content: contents})
		}
	}

	req := anthropicRequest{
		Model:       p.cfg.Model,
		Messages:    converted,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Stream:      stream,
		System:      strings.Join(systemParts, "\n\n"),
	}
	if len(tools) > 0 {
		req.Tools = make([]anthropicTool, len(tools))
		for i, t := range tools {
			req.Tools[i] = anthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters}
		}
	}
	return req
}

func (p *AnthropicProvider) Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (Completion, error) {
	req := p.buildRequest(messages, false, tools)
	resp, err := p.do(ctx, req)
	if err != nil {
		return Completion{}, err
	}
	if resp.Error != nil {
		return Completion{}, fmt.Errorf("anthropic: %s", resp.Error.Message)
	}

	var text string
	var calls []ToolCall
	for _, c := range resp.Content {
		switch c.Type {
		case "text":
			text += c.Text
		case "tool_use":
			var args map[string]interface{}
			if c.Input != nil {
				args = *c.Input
			}
			calls = append(calls, ToolCall{ID: c.ID, Name: c.Name, Arguments: args})
		}
	}
	return Completion{Text: text, ToolCalls: calls, Tokens: resp.Usage.InputTokens + resp.Usage.OutputTokens}, nil
}

func (p *AnthropicProvider) GenerateStreaming(ctx context.Context, messages []Message, tools []ToolDefinition) (<-chan StreamChunk, error) {
	req := p.buildRequest(messages, true, tools)
	out := make(chan StreamChunk, 100)
	go func() {
		defer close(out)
		if err := p.stream(ctx, req, out); err != nil {
			out <- StreamChunk{Type: "error", Error: err}
		}
	}()
	return out, nil
}

func (p *AnthropicProvider) newRequest(ctx context.Context, body anthropicRequest) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llmclient: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Host+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("llmclient: build request: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil }
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	return req, nil
}

func (p *AnthropicProvider) do(ctx context.Context, body anthropicRequest) (*anthropicResponse, error) {
	req, err := p.newRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llmclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llmclient: anthropic returned %d: %s", resp.StatusCode, string(payload))
	}
	var out anthropicResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("llmclient: decode response: %w", err)
	}
	return &out, nil
}

func (p *AnthropicProvider) stream(ctx context.Context, body anthropicRequest, out chan<- StreamChunk) error {
	req, err := p.newRequest(ctx, body)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("llmclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("llmclient: anthropic returned %d: %s", resp.StatusCode, string(payload))
	}

	calls := make(map[int]*ToolCall)
	buffers := make(map[int]string)
	var totalTokens int

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data: ") {
			continue
		}
		var chunk anthropicStreamResponse
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); err != nil {
			return fmt.Errorf("llmclient: decode stream chunk: %w", err)
		}

		switch chunk.Type {
		case "content_block_start":
			if chunk.ContentBlock != nil && chunk.ContentBlock.Type == "tool_use" {
				calls[chunk.Index] = &ToolCall{ID: chunk.ContentBlock.ID, Name: chunk.ContentBlock.Name, Arguments: map[string]interface{}{}}
				buffers[chunk.Index] = ""
			}
		case "content_block_delta":
			if chunk.Delta == nil {
				continue
			}
			if chunk.Delta.Text != "" {
				out <- StreamChunk{Type: "text", Text: chunk.Delta.Text}
			}
			if chunk.Delta.Type == "input_json_delta" && chunk.Delta.PartialJSON != "" {
				buffers[chunk.Index] += chunk.Delta.PartialJSON
			}
		case "content_block_stop":
			if tc, ok := calls[chunk.Index]; ok {
				if raw := buffers[chunk.Index]; raw != "" {
					var args map[string]interface{}
					if json.Unmarshal([]byte(raw), &args) == nil {
						tc.Arguments = args
					}
					tc.RawArgs = raw
				}
				out <- StreamChunk{Type: "tool_call", ToolCall: tc}
			}
		case "message_delta":
			if chunk.Usage != nil {
				totalTokens = chunk.Usage.OutputTokens
			}
		case "message_stop":
			out <- StreamChunk{Type: "done", Tokens: totalTokens}
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("llmclient: read stream: %w", err)
	}
	return nil
}
