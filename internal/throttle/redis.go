package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts attempts in a fixed window shared by every process
// pointing at the same Redis.
type RedisLimiter struct {
	client   redis.UniversalClient
	prefix   string
	attempts int64
	window   time.Duration
}

// NewRedisLimiter connects to addr and verifies the connection.
func NewRedisLimiter(ctx context.Context, addr string, attempts int, window time.Duration) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisLimiterWithClient(client, attempts, window), nil
}

func NewRedisLimiterWithClient(client redis.UniversalClient, attempts int, window time.Duration) *RedisLimiter {
	if attempts < 1 {
		attempts = 1
	}
	return &RedisLimiter{client: client, prefix: "gophvault:attempts:", attempts: int64(attempts), window: window}
}

func (l *RedisLimiter) key(k string) string {
	return l.prefix + "{" + k + "}"
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	k := l.key(key)

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("redis incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return fmt.Errorf("redis expire: %w", err)
		}
	}
	if n > l.attempts {
		return errLimited(key)
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
