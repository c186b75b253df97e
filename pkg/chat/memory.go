package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps conversation logs in-process. Used by tests and by the
// server when no DATABASE_URL is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[uuid.UUID][]Message
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs: make(map[uuid.UUID][]Message),
		now:  time.Now,
	}
}

func (s *MemoryStore) Append(_ context.Context, conversationID uuid.UUID, msgs ...Message) ([]Message, error) {
	stored := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		stored = append(stored, Prepare(m, s.now()))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[conversationID] = append(s.logs[conversationID], stored...)
	return cloneMessages(stored), nil
}

func (s *MemoryStore) List(_ context.Context, conversationID uuid.UUID) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessages(s.logs[conversationID]), nil
}

func (s *MemoryStore) Delete(_ context.Context, conversationID uuid.UUID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.logs[conversationID]
	ids, err := DeletionGroup(log, messageID)
	if err != nil {
		return err
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := make([]Message, 0, len(log)-len(ids))
	for _, m := range log {
		if !drop[m.ID] {
			kept = append(kept, m)
		}
	}
	s.logs[conversationID] = kept
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, conversationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, conversationID)
	return nil
}

// Prepare assigns an ID and a UTC timestamp to a message about to be stored.
func Prepare(m Message, now time.Time) Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now.UTC()
	} else {
		m.CreatedAt = m.CreatedAt.UTC()
	}
	return cloneMessage(m)
}

func cloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i, m := range in {
		out[i] = cloneMessage(m)
	}
	return out
}

func cloneMessage(m Message) Message {
	if m.ToolCalls != nil {
		m.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	if m.Suggestions != nil {
		m.Suggestions = append([]string(nil), m.Suggestions...)
	}
	if m.Widget != nil {
		w := *m.Widget
		m.Widget = &w
	}
	return m
}

// MemoryConversations is the in-process ConversationRepository.
type MemoryConversations struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Conversation
	order []uuid.UUID
}

func NewMemoryConversations() *MemoryConversations {
	return &MemoryConversations{items: make(map[uuid.UUID]Conversation)}
}

func (r *MemoryConversations) Create(_ context.Context, c Conversation) (Conversation, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = c
	r.order = append(r.order, c.ID)
	return c, nil
}

func (r *MemoryConversations) GetForOwner(_ context.Context, ownerID, id uuid.UUID) (Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok || c.OwnerID != ownerID {
		return Conversation{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryConversations) ListByOwner(_ context.Context, ownerID uuid.UUID, limit, offset int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []Conversation
	// newest first, like the SQL implementation
	for i := len(r.order) - 1; i >= 0; i-- {
		c := r.items[r.order[i]]
		if c.OwnerID != ownerID {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		res = append(res, c)
		if len(res) >= limit {
			break
		}
	}
	return res, nil
}
