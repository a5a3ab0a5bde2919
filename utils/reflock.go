package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefLocker serializes webhook processing per external payment reference.
// Deliveries for different references are independent; two concurrent
// deliveries of the same reference must not both enter the ledger
// transaction. The TTL bounds lock lifetime if a holder dies mid-request.
type RefLocker struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRefLocker(redisClient *redis.Client, ttl time.Duration) *RefLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RefLocker{redis: redisClient, ttl: ttl}
}

func lockKey(reference string) string {
	return fmt.Sprintf("webhook:lock:%s", reference)
}

// Acquire takes the per-reference lock. Returns false when another
// delivery for the same reference is already in flight.
func (l *RefLocker) Acquire(ctx context.Context, reference string) (bool, error) {
	ok, err := l.redis.SetNX(ctx, lockKey(reference), "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reflock: acquire %s: %w", reference, err)
	}
	return ok, nil
}

// Release drops the lock. Called on every exit path after Acquire.
func (l *RefLocker) Release(ctx context.Context, reference string) {
	l.redis.Del(ctx, lockKey(reference))
}
