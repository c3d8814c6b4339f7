// Package ratelimit throttles repeated attempts against the same key, e.g.
// login tries for one username.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Limiter decides whether another attempt for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// RedisLimiter counts attempts in fixed windows shared by every instance.
type RedisLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "throttle"
	}
	return &RedisLimiter{redis: client, limit: int64(limit), window: window, prefix: prefix}
}

func (l *RedisLimiter) key(k string) string {
	return fmt.Sprintf("%s:%s", l.prefix, k)
}

// allowScript counts an attempt and starts the window on the first one.
// A key found without expiry gets one too, so a counter can never outlive
// its window.
var allowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Allow records an attempt. On a Redis error it returns true together with
// the error so that callers fail open.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := allowScript.Run(ctx, l.redis, []string{l.key(key)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}
	return n <= l.limit, nil
}

// Reset forgets all attempts for key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.redis.Del(ctx, l.key(key)).Err()
}

// Noop allows everything. It is used when no Redis address is configured.
type Noop struct{}

func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }
func (Noop) Reset(context.Context, string) error         { return nil }
