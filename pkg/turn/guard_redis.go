package turn

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares the in-flight flag between server replicas. The TTL
// frees the lock when a replica dies mid-turn.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    *zap.SugaredLogger
}

func NewRedisGuard(client *redis.Client, ttl time.Duration, log *zap.SugaredLogger) *RedisGuard {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RedisGuard{client: client, ttl: ttl, prefix: "cvchat:turn:", log: log}
}

func (g *RedisGuard) key(conversationID uuid.UUID) string {
	return g.prefix + conversationID.String()
}

func (g *RedisGuard) Acquire(ctx context.Context, conversationID uuid.UUID) (func(), error) {
	key := g.key(conversationID)
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire turn lock: %w", err)
	}
	if !ok {
		return nil, ErrTurnInFlight
	}
	return func() {
		// the request context may already be cancelled here
		rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, g.client, []string{key}, token).Err(); err != nil {
			g.log.Warnw("release turn lock", "key", key, "error", err)
		}
	}, nil
}
