package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/artem13815/cvchat/pkg/chat"
	"github.com/artem13815/cvchat/pkg/llm"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "meta-llama/llama-3.3-70b-instruct:free"
)

// Client is a minimal OpenRouter (OpenAI-compatible) chat completions client.
type Client struct {
	APIKey   string
	BaseURL  string
	Model    string
	AppTitle string
	Referer  string
	httpDo   *http.Client
}

func New(apiKey, baseURL, model, appTitle, referer string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		APIKey:   apiKey,
		BaseURL:  baseURL,
		Model:    model,
		AppTitle: appTitle,
		Referer:  referer,
		httpDo: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying http client (tests, proxies).
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpDo = h
	return c
}

type wireMessage struct {
	Role       chat.Role       `json:"role"`
	Content    chat.Content    `json:"content"`
	ToolCalls  []chat.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

type chatCompletionsRequest struct {
	Model      string               `json:"model"`
	Messages   []wireMessage        `json:"messages"`
	Tools      []llm.ToolDefinition `json:"tools,omitempty"`
	ToolChoice string               `json:"tool_choice,omitempty"`
}

type chatChoice struct {
	Index        int          `json:"index"`
	Message      *wireMessage `json:"message"`
	FinishReason string       `json:"finish_reason"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// toWire drops the UI-only fields (id, suggestions, widget) of stored messages.
func toWire(msgs []chat.Message) []wireMessage {
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, wireMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCalls:  m.ToolCalls,
			ToolCallID: m.ToolCallID,
		})
	}
	return out
}

// CreateChatCompletion sends the conversation to the model and returns its
// single assistant message. Every failure is a *llm.CompletionError.
func (c *Client) CreateChatCompletion(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	if c.APIKey == "" {
		return llm.Completion{}, &llm.CompletionError{Err: errors.New("openrouter api key is empty")}
	}
	model := req.Model
	if model == "" {
		model = c.Model
	}
	body := chatCompletionsRequest{
		Model:    model,
		Messages: toWire(req.Messages),
		Tools:    req.Tools,
	}
	if len(req.Tools) > 0 {
		body.ToolChoice = req.ToolChoice
	}
	data, err := json.Marshal(body)
	if err != nil {
		return llm.Completion{}, &llm.CompletionError{Err: err}
	}

	raw, err := c.do(ctx, http.MethodPost, "/chat/completions", data)
	if err != nil {
		return llm.Completion{}, err
	}

	var out chatCompletionsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.Completion{}, &llm.CompletionError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Choices) == 0 || out.Choices[0].Message == nil {
		return llm.Completion{}, &llm.CompletionError{
			Upstream: llm.UpstreamMessage(raw),
			Err:      errors.New("response has no choices[0].message"),
		}
	}
	choice := out.Choices[0]
	msg := chat.Message{
		Role:      chat.RoleAssistant,
		Content:   choice.Message.Content,
		ToolCalls: choice.Message.ToolCalls,
	}
	for i := range msg.ToolCalls {
		if msg.ToolCalls[i].Type == "" {
			msg.ToolCalls[i].Type = "function"
		}
	}
	return llm.Completion{ID: out.ID, Message: msg, FinishReason: choice.FinishReason}, nil
}

type modelsResponse struct {
	Data []llm.ModelInfo `json:"data"`
}

// ListFreeModels returns the catalog entries whose whole pricing vector is zero.
func (c *Client) ListFreeModels(ctx context.Context) ([]llm.ModelInfo, error) {
	raw, err := c.do(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}
	var out modelsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &llm.CompletionError{Err: fmt.Errorf("decode models: %w", err)}
	}
	free := make([]llm.ModelInfo, 0, len(out.Data))
	for _, m := range out.Data {
		if m.Pricing.Free() {
			free = append(free, m)
		}
	}
	return free, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, &llm.CompletionError{Err: err}
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if c.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.Referer)
	}
	if c.AppTitle != "" {
		httpReq.Header.Set("X-Title", c.AppTitle)
	}

	resp, err := c.httpDo.Do(httpReq)
	if err != nil {
		return nil, &llm.CompletionError{Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &llm.CompletionError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &llm.CompletionError{
			Status:   resp.StatusCode,
			Upstream: llm.UpstreamMessage(raw),
			Err:      fmt.Errorf("openrouter %s %s", method, path),
		}
	}
	return raw, nil
}
