package readiness

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const probeTTL = 30 * time.Second

// RedisProbe verifies the signaling/persistence backend with a real write
// followed by a read-back, not just a ping: a reachable-but-read-only
// backend must not report ready.
type RedisProbe struct {
	client *redis.Client
}

func NewRedisProbe(client *redis.Client) *RedisProbe {
	return &RedisProbe{client: client}
}

func (p *RedisProbe) WriteConfirm(ctx context.Context) error {
	key := "readiness:probe:" + uuid.NewString()
	stamp := time.Now().UnixNano()
	if err := p.client.Set(ctx, key, stamp, probeTTL).Err(); err != nil {
		return fmt.Errorf("probe write: %w", err)
	}
	got, err := p.client.Get(ctx, key).Int64()
	if err != nil {
		return fmt.Errorf("probe confirm: %w", err)
	}
	if got != stamp {
		return fmt.Errorf("probe confirm: stale value read back")
	}
	return p.client.Del(ctx, key).Err()
}
