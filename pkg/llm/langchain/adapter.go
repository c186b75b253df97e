// Package langchain adapts a langchaingo OpenAI-compatible client to llm.Completer.
package langchain

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/artem13815/cvchat/pkg/chat"
	"github.com/artem13815/cvchat/pkg/llm"
)

type generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Adapter struct {
	client generator
	model  string
}

// New builds an adapter pointed at an OpenAI-compatible endpoint (OpenRouter by default).
func New(apiKey, baseURL, model string) (*Adapter, error) {
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: client, model: model}, nil
}

func (a *Adapter) CreateChatCompletion(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}
	opts := []llms.CallOption{llms.WithModel(model)}
	if len(req.Tools) > 0 {
		opts = append(opts, llms.WithTools(toTools(req.Tools)))
		if req.ToolChoice != "" {
			opts = append(opts, llms.WithToolChoice(req.ToolChoice))
		}
	}

	resp, err := a.client.GenerateContent(ctx, toMessageContent(req.Messages), opts...)
	if err != nil {
		return llm.Completion{}, &llm.CompletionError{Upstream: err.Error(), Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return llm.Completion{}, &llm.CompletionError{Err: errors.New("empty response from model")}
	}
	return fromChoice(resp.Choices[0]), nil
}

func toTools(defs []llm.ToolDefinition) []llms.Tool {
	tools := make([]llms.Tool, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, llms.Tool{
			Type: d.Type,
			Function: &llms.FunctionDefinition{
				Name:        d.Function.Name,
				Description: d.Function.Description,
				Parameters:  d.Function.Parameters,
			},
		})
	}
	return tools
}

func toMessageContent(history []chat.Message) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case chat.RoleSystem:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, m.Content.String()))
		case chat.RoleUser:
			messages = append(messages, llms.MessageContent{
				Role:  llms.ChatMessageTypeHuman,
				Parts: userParts(m.Content),
			})
		case chat.RoleAssistant:
			var parts []llms.ContentPart
			if text := m.Content.String(); text != "" {
				parts = append(parts, llms.TextPart(text))
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, llms.ToolCall{
					ID:   tc.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
			if len(parts) == 0 {
				parts = append(parts, llms.TextPart(""))
			}
			messages = append(messages, llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts})
		case chat.RoleTool:
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: m.ToolCallID,
						Content:    m.Content.String(),
					},
				},
			})
		}
	}
	return messages
}

func userParts(c chat.Content) []llms.ContentPart {
	if !c.IsMultipart() {
		return []llms.ContentPart{llms.TextPart(c.String())}
	}
	var parts []llms.ContentPart
	for _, p := range c.Parts() {
		switch {
		case p.Type == chat.PartImage && p.ImageURL != nil:
			parts = append(parts, llms.ImageURLPart(p.ImageURL.URL))
		case p.Type == chat.PartText:
			parts = append(parts, llms.TextPart(p.Text))
		}
	}
	return parts
}

func fromChoice(choice *llms.ContentChoice) llm.Completion {
	msg := chat.Message{Role: chat.RoleAssistant}
	if choice.Content != "" {
		msg.Content = chat.Text(choice.Content)
	}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		msg.ToolCalls = append(msg.ToolCalls, chat.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: chat.FunctionCall{
				Name:      tc.FunctionCall.Name,
				Arguments: tc.FunctionCall.Arguments,
			},
		})
	}
	return llm.Completion{Message: msg, FinishReason: choice.StopReason}
}
