package langchain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/artem13815/cvchat/pkg/chat"
	"github.com/artem13815/cvchat/pkg/llm"
)

type fakeGenerator struct {
	got  []llms.MessageContent
	opts llms.CallOptions
	resp *llms.ContentResponse
	err  error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.got = messages
	for _, o := range options {
		o(&f.opts)
	}
	return f.resp, f.err
}

func TestAdapterMapsHistoryAndToolCalls(t *testing.T) {
	gen := &fakeGenerator{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		StopReason: "tool_calls",
		ToolCalls: []llms.ToolCall{{
			ID:           "call_1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "save_skills", Arguments: `{"skills":["Go"]}`},
		}},
	}}}}
	a := &Adapter{client: gen, model: "m"}

	assistant := chat.Message{Role: chat.RoleAssistant, ToolCalls: []chat.ToolCall{{ID: "c0", Type: "function", Function: chat.FunctionCall{Name: "save_personal_info", Arguments: "{}"}}}}
	history := []chat.Message{
		{Role: chat.RoleSystem, Content: chat.Text("sys")},
		chat.UserText("hi"),
		assistant,
		chat.ToolResult("c0", `{"status":"success"}`),
	}
	res, err := a.CreateChatCompletion(context.Background(), llm.CompletionRequest{
		Messages:   history,
		Tools:      []llm.ToolDefinition{llm.FunctionTool(llm.FunctionDefinition{Name: "save_skills"})},
		ToolChoice: llm.ToolChoiceAuto,
	})
	require.NoError(t, err)

	require.Len(t, gen.got, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, gen.got[0].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, gen.got[2].Role)
	tc, ok := gen.got[2].Parts[0].(llms.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "c0", tc.ID)
	resp, ok := gen.got[3].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "c0", resp.ToolCallID)

	assert.Equal(t, "m", gen.opts.Model)
	require.Len(t, gen.opts.Tools, 1)

	assert.Equal(t, "tool_calls", res.FinishReason)
	assert.True(t, res.Message.Content.IsNull())
	require.Len(t, res.Message.ToolCalls, 1)
	assert.Equal(t, "save_skills", res.Message.ToolCalls[0].Function.Name)
}

func TestAdapterWrapsErrors(t *testing.T) {
	a := &Adapter{client: &fakeGenerator{err: errors.New("boom")}, model: "m"}
	_, err := a.CreateChatCompletion(context.Background(), llm.CompletionRequest{})
	assert.ErrorIs(t, err, llm.ErrCompletionFailed)

	a = &Adapter{client: &fakeGenerator{resp: &llms.ContentResponse{}}, model: "m"}
	_, err = a.CreateChatCompletion(context.Background(), llm.CompletionRequest{})
	assert.ErrorIs(t, err, llm.ErrCompletionFailed)
}

func TestUserPartsKeepsImages(t *testing.T) {
	parts := userParts(chat.Parts(
		chat.ContentPart{Type: chat.PartText, Text: "look"},
		chat.ContentPart{Type: chat.PartImage, ImageURL: &chat.ImageURL{URL: "https://x/img.png"}},
	))
	require.Len(t, parts, 2)
	_, isImage := parts[1].(llms.ImageURLContent)
	assert.True(t, isImage)
}
