package cv

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps CV documents in-process.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[uuid.UUID]Data
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[uuid.UUID]Data), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, conversationID uuid.UUID) (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[conversationID]
	if !ok {
		return New(), nil
	}
	return d.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, conversationID uuid.UUID, fn func(*Data) error) (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[conversationID]
	if !ok {
		d = New()
	}
	work := d.Clone()
	if err := fn(&work); err != nil {
		return Data{}, err
	}
	work.Version = SchemaVersion
	work.UpdatedAt = s.now().UTC()
	s.docs[conversationID] = work
	return work.Clone(), nil
}

func (s *MemoryStore) Reset(_ context.Context, conversationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, conversationID)
	return nil
}
