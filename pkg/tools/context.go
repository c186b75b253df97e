package tools

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

type conversationKey struct{}

var ErrNoConversation = errors.New("no conversation in context")

// WithConversation scopes tool calls to one conversation.
func WithConversation(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, conversationKey{}, id)
}

func conversationFrom(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(conversationKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrNoConversation
	}
	return id, nil
}
