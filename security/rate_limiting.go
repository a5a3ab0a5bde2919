package security

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window Redis counter used to throttle
// user-initiated money operations (withdrawal requests).
type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Allow counts one hit for key and reports whether it stays within limit
// per window. Fails open on Redis errors: throttling is protective, not
// load-bearing for correctness.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	counterKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := r.redis.Incr(ctx, counterKey).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		r.redis.Expire(ctx, counterKey, window)
	}
	return count <= int64(limit)
}
