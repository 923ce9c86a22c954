package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

var ErrLockHeld = errors.New("row lock is held by another worker")

// unlockScript deletes the key only if it still carries our token, so an
// expired lock taken over by someone else is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker hands out short SetNX locks keyed by row.
type RedisLocker struct {
	client       redis.UniversalClient
	retries      int
	retryBackoff time.Duration
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client, retries: 20, retryBackoff: 50 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lockKey := fmt.Sprintf("row_lock:%s", key)
	token := uuid.NewString()

	for attempt := 0; ; attempt++ {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", lockKey, err)
		}
		if ok {
			break
		}
		if attempt >= l.retries {
			return nil, fmt.Errorf("%w: %s", ErrLockHeld, lockKey)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryBackoff):
		}
	}

	return func() {
		if err := unlockScript.Run(context.Background(), l.client, []string{lockKey}, token).Err(); err != nil {
			telemetry.Logger.Warn("Failed to release row lock", zap.String("key", lockKey), zap.Error(err))
		}
	}, nil
}
