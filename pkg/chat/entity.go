package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion увеличивается при каждом изменении формы хранимого сообщения.
const SchemaVersion = 1

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid сообщает, является ли r одной из четырёх известных ролей.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// FunctionCall — функциональная часть вызова инструмента; Arguments содержит сырой JSON.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// Widget — ссылка на интерактивный элемент UI, привязанный к сообщению.
type Widget struct {
	Type       string         `json:"type"`
	ToolCallID string         `json:"toolCallId"`
	Props      map[string]any `json:"props,omitempty"`
}

// Message — одна реплика разговора. После добавления в журнал не изменяется.
type Message struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Content    Content    `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`

	// метаданные UI, в модель не отправляются
	Suggestions []string `json:"suggestions,omitempty"`
	Widget      *Widget  `json:"widget,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func UserText(text string) Message {
	return Message{Role: RoleUser, Content: Text(text)}
}

func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: Text(text)}
}

func ToolResult(toolCallID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: toolCallID, Content: Text(content)}
}

// HasToolCalls сообщает, запрашивает ли сообщение ассистента вызов инструментов.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// Validate проверяет форму сообщения для его роли перед сохранением.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return ErrInvalidRole
	}
	if len(m.ToolCalls) > 0 && m.Role != RoleAssistant {
		return ErrInvalidMessage
	}
	if m.Role == RoleTool && m.ToolCallID == "" {
		return ErrMissingToolCallID
	}
	if m.Role != RoleTool && m.ToolCallID != "" {
		return ErrInvalidMessage
	}
	return nil
}

// Conversation владеет одним журналом сообщений и одним CV-документом.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Title     string    `json:"title"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidRole        = errors.New("invalid message role")
	ErrInvalidMessage     = errors.New("invalid message")
	ErrMissingToolCallID  = errors.New("tool message without tool_call_id")
	ErrUnsupportedVersion = errors.New("unsupported message schema version")
)

// Store — порт хранения журнала сообщений.
type Store interface {
	// Append сохраняет сообщения по порядку, проставляя ID и время там, где их нет,
	// и возвращает их в сохранённом виде.
	Append(ctx context.Context, conversationID uuid.UUID, msgs ...Message) ([]Message, error)
	List(ctx context.Context, conversationID uuid.UUID) ([]Message, error)
	// Delete удаляет сообщение вместе с парными ему вызовами или результатами.
	Delete(ctx context.Context, conversationID uuid.UUID, messageID string) error
	Clear(ctx context.Context, conversationID uuid.UUID) error
}

// ConversationRepository — порт хранения заголовков разговоров.
type ConversationRepository interface {
	Create(ctx context.Context, c Conversation) (Conversation, error)
	GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (Conversation, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Conversation, error)
}
