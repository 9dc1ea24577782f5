package rateLimit

import (
	"context"
	"time"

	redisadapter "github.com/robertarktes/event-rsvp/internal/adapters/redis"
)

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	redis  *redisadapter.Cache
	rate   int
	period time.Duration
}

func NewRateLimiter(redis *redisadapter.Cache, rate int, period time.Duration) *RateLimiter {
	return &RateLimiter{redis: redis, rate: rate, period: period}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, rl.period)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, err
	}

	return incr.Val() <= int64(rl.rate), nil
}
