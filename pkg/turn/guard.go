package turn

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrTurnInFlight is returned when a conversation already has a running turn.
var ErrTurnInFlight = errors.New("a turn is already in flight for this conversation")

// Guard allows at most one turn in flight per conversation. The returned
// release func must always be called.
type Guard interface {
	Acquire(ctx context.Context, conversationID uuid.UUID) (release func(), err error)
}

// MemoryGuard is the single-process Guard.
type MemoryGuard struct {
	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inFlight: make(map[uuid.UUID]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, conversationID uuid.UUID) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[conversationID]; busy {
		return nil, ErrTurnInFlight
	}
	g.inFlight[conversationID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, conversationID)
			g.mu.Unlock()
		})
	}, nil
}

// InFlight reports whether a turn is running for the conversation.
func (g *MemoryGuard) InFlight(conversationID uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inFlight[conversationID]
	return busy
}
