package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rl := NewRateLimiter(db)
	ctx := context.Background()

	mock.ExpectIncr("ratelimit:withdraw:user1").SetVal(1)
	mock.ExpectExpire("ratelimit:withdraw:user1", time.Minute).SetVal(true)

	assert.True(t, rl.Allow(ctx, "withdraw:user1", 5, time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rl := NewRateLimiter(db)

	mock.ExpectIncr("ratelimit:withdraw:user1").SetVal(6)

	assert.False(t, rl.Allow(context.Background(), "withdraw:user1", 5, time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_ExactLimitAllowed(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rl := NewRateLimiter(db)

	mock.ExpectIncr("ratelimit:withdraw:user1").SetVal(5)

	assert.True(t, rl.Allow(context.Background(), "withdraw:user1", 5, time.Minute))
}

func TestRateLimiter_FailsOpenOnRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rl := NewRateLimiter(db)

	mock.ExpectIncr("ratelimit:withdraw:user1").SetErr(errors.New("connection refused"))

	assert.True(t, rl.Allow(context.Background(), "withdraw:user1", 5, time.Minute))
}
