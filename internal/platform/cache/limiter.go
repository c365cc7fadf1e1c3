package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window request counter kept in Redis. Each key may be
// hit Limit times per Window.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	Limit  int
	Window time.Duration
}

func NewLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, prefix: prefix, Limit: limit, Window: window}
}

// Allow counts one hit for key. When the window is exhausted it returns false
// and the time until the window resets.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l == nil || l.rdb == nil || l.Limit <= 0 {
		return true, 0, nil
	}
	k := l.prefix + key

	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return true, 0, fmt.Errorf("rate limiter %s: %w", k, err)
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, k, l.Window).Err(); err != nil {
			return true, 0, fmt.Errorf("rate limiter %s: %w", k, err)
		}
	}
	if n <= int64(l.Limit) {
		return true, 0, nil
	}

	retry, err := l.rdb.PTTL(ctx, k).Result()
	if err != nil || retry <= 0 {
		retry = l.Window
	}
	return false, retry, nil
}
