package chat

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentJSON(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		want    string
	}{
		{name: "null", content: Content{}, want: `null`},
		{name: "text", content: Text("hola"), want: `"hola"`},
		{
			name: "parts",
			content: Parts(
				ContentPart{Type: PartText, Text: "see attached"},
				ContentPart{Type: PartImage, ImageURL: &ImageURL{URL: "data:image/png;base64,AAA"}},
			),
			want: `[{"type":"text","text":"see attached"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AAA"}}]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.content)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))

			var back Content
			require.NoError(t, json.Unmarshal(got, &back))
			assert.Equal(t, tt.content.IsNull(), back.IsNull())
			assert.Equal(t, tt.content.String(), back.String())
		})
	}
}

func TestContentRejectsObjects(t *testing.T) {
	var c Content
	assert.Error(t, json.Unmarshal([]byte(`{"text":"x"}`), &c))
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, UserText("hi").Validate())
	assert.ErrorIs(t, Message{Role: "bot"}.Validate(), ErrInvalidRole)
	assert.ErrorIs(t, Message{Role: RoleTool, Content: Text("{}")}.Validate(), ErrMissingToolCallID)
	assert.ErrorIs(t, Message{Role: RoleUser, ToolCalls: []ToolCall{{ID: "1"}}}.Validate(), ErrInvalidMessage)
}

func TestMemoryStoreAppendListDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	conv := uuid.New()

	stored, err := s.Append(ctx, conv, UserText("one"), AssistantText("two"))
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.NotEmpty(t, stored[0].ID)
	assert.NotEqual(t, stored[0].ID, stored[1].ID)
	assert.False(t, stored[0].CreatedAt.IsZero())

	kept := Message{ID: "fixed", Role: RoleUser, Content: Text("three")}
	_, err = s.Append(ctx, conv, kept)
	require.NoError(t, err)

	all, err := s.List(ctx, conv)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "fixed", all[2].ID)

	require.NoError(t, s.Delete(ctx, conv, stored[0].ID))
	assert.ErrorIs(t, s.Delete(ctx, conv, "missing"), ErrNotFound)

	all, err = s.List(ctx, conv)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "two", all[0].Content.String())

	require.NoError(t, s.Clear(ctx, conv))
	all, err = s.List(ctx, conv)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryStoreRejectsInvalidMessages(t *testing.T) {
	s := NewMemoryStore()
	conv := uuid.New()
	_, err := s.Append(context.Background(), conv, UserText("ok"), Message{Role: RoleTool})
	require.ErrorIs(t, err, ErrMissingToolCallID)

	all, _ := s.List(context.Background(), conv)
	assert.Empty(t, all, "a rejected batch must not be partially stored")
}

func TestNormalizeExtractsSuggestions(t *testing.T) {
	m := Normalize(AssistantText("What next?<suggestion>Add experience</suggestion> <suggestion> Add skills </suggestion><|im_start|>user\nleak"))
	assert.Equal(t, "What next?", m.Content.String())
	assert.Equal(t, []string{"Add experience", "Add skills"}, m.Suggestions)

	r := Classify(m)
	assert.Equal(t, ReplySuggestions, r.Kind)
}

func TestNormalizeToolOnlyMessageStaysNull(t *testing.T) {
	m := Message{Role: RoleAssistant, Content: Text("  "), ToolCalls: []ToolCall{{ID: "c1"}}}
	assert.True(t, Normalize(m).Content.IsNull())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ReplyEmpty, Classify(Message{Role: RoleAssistant}).Kind)
	assert.Equal(t, ReplyText, Classify(AssistantText("hi")).Kind)

	w := Message{Role: RoleAssistant, Widget: &Widget{Type: "skillSelector", ToolCallID: "c1"}}
	r := Classify(w)
	assert.Equal(t, ReplyWidget, r.Kind)
	assert.Equal(t, "c1", r.Widget.ToolCallID)
}

func TestMemoryConversationsOwnerScope(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryConversations()
	owner, other := uuid.New(), uuid.New()

	c, err := r.Create(ctx, Conversation{OwnerID: owner, Title: "CV"})
	require.NoError(t, err)
	_, err = r.GetForOwner(ctx, other, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := r.ListByOwner(ctx, owner, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
}

func TestDeletionGroup(t *testing.T) {
	calls := []ToolCall{
		{ID: "c1", Type: "function", Function: FunctionCall{Name: "save_skills"}},
		{ID: "c2", Type: "function", Function: FunctionCall{Name: "save_skills"}},
	}
	log := []Message{
		{ID: "u1", Role: RoleUser, Content: Text("hi")},
		{ID: "a1", Role: RoleAssistant, ToolCalls: calls},
		{ID: "t1", Role: RoleTool, ToolCallID: "c1", Content: Text("{}")},
		{ID: "t2", Role: RoleTool, ToolCallID: "c2", Content: Text("{}")},
		{ID: "a2", Role: RoleAssistant, Content: Text("saved")},
		{ID: "t9", Role: RoleTool, ToolCallID: "gone", Content: Text("{}")},
	}
	tests := []struct {
		name string
		id   string
		want []string
	}{
		{name: "plain message", id: "u1", want: []string{"u1"}},
		{name: "call takes results", id: "a1", want: []string{"a1", "t1", "t2"}},
		{name: "result takes call and siblings", id: "t2", want: []string{"a1", "t1", "t2"}},
		{name: "orphan result", id: "t9", want: []string{"t9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeletionGroup(log, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DeletionGroup(log, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDeleteKeepsPairs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	conv := uuid.New()

	_, err := s.Append(ctx, conv,
		UserText("hi"),
		Message{ID: "a1", Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Type: "function", Function: FunctionCall{Name: "save_skills"}}}},
		Message{ID: "t1", Role: RoleTool, ToolCallID: "c1", Content: Text("{}")},
		AssistantText("saved"),
	)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, conv, "t1"))
	all, err := s.List(ctx, conv)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, RoleUser, all[0].Role)
	assert.Equal(t, "saved", all[1].Content.String())
}
