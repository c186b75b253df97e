package postgres

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/cvchat/pkg/chat"
)

func TestDecodeMessage(t *testing.T) {
	m := chat.Message{
		ID:        "m1",
		Role:      chat.RoleAssistant,
		ToolCalls: []chat.ToolCall{{ID: "c1", Type: "function", Function: chat.FunctionCall{Name: "save_skills", Arguments: `{"skills":["Go"]}`}}},
	}
	body, err := json.Marshal(m)
	require.NoError(t, err)

	got, err := decodeMessage(chat.SchemaVersion, body)
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)
	assert.True(t, got.Content.IsNull())
	require.Len(t, got.ToolCalls, 1)
	assert.Equal(t, "save_skills", got.ToolCalls[0].Function.Name)

	_, err = decodeMessage(chat.SchemaVersion+1, body)
	assert.ErrorIs(t, err, chat.ErrUnsupportedVersion)

	_, err = decodeMessage(chat.SchemaVersion, []byte(`{"content":{}}`))
	assert.Error(t, err)
}
