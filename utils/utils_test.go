package utils

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Circuit Breaker Tests

func TestCircuitBreaker_NewCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker("test")

	assert.Equal(t, "test", cb.name)
	assert.Equal(t, 5, cb.maxFailures)
	assert.Equal(t, 30*time.Second, cb.cooldown)
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_ExecuteSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	result, err := cb.Execute(ctx, func() (any, error) {
		return "success", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	boom := errors.New("upstream down")
	for i := 0; i < cb.maxFailures; i++ {
		_, err := cb.Execute(ctx, func() (any, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, BreakerOpen, cb.State())

	// while open, calls fail fast without invoking the request
	called := false
	_, err := cb.Execute(ctx, func() (any, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenProbeRecloses(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	for i := 0; i < cb.maxFailures; i++ {
		cb.Execute(ctx, func() (any, error) { return nil, errors.New("fail") })
	}
	require.Equal(t, BreakerOpen, cb.State())

	// force the cooldown to elapse
	cb.mutex.Lock()
	cb.openedAt = time.Now().Add(-cb.cooldown - time.Second)
	cb.mutex.Unlock()

	result, err := cb.Execute(ctx, func() (any, error) {
		return "recovered", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	for i := 0; i < cb.maxFailures; i++ {
		cb.Execute(ctx, func() (any, error) { return nil, errors.New("fail") })
	}

	cb.mutex.Lock()
	cb.openedAt = time.Now().Add(-cb.cooldown - time.Second)
	cb.mutex.Unlock()

	_, err := cb.Execute(ctx, func() (any, error) {
		return nil, errors.New("still failing")
	})

	assert.Error(t, err)
	assert.Equal(t, BreakerOpen, cb.State())
}

func TestCircuitBreaker_ContextCancelled(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cb.Execute(ctx, func() (any, error) {
		return "unused", nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

// RefLocker Tests

func TestRefLocker_AcquireAndRelease(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewRefLocker(db, 30*time.Second)
	ctx := context.Background()

	mock.ExpectSetNX("webhook:lock:TK-abc", "1", 30*time.Second).SetVal(true)
	mock.ExpectDel("webhook:lock:TK-abc").SetVal(1)

	ok, err := locker.Acquire(ctx, "TK-abc")
	assert.NoError(t, err)
	assert.True(t, ok)

	locker.Release(ctx, "TK-abc")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefLocker_AcquireContended(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewRefLocker(db, 30*time.Second)

	mock.ExpectSetNX("webhook:lock:TK-abc", "1", 30*time.Second).SetVal(false)

	ok, err := locker.Acquire(context.Background(), "TK-abc")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefLocker_AcquireRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewRefLocker(db, 30*time.Second)

	mock.ExpectSetNX("webhook:lock:TK-abc", "1", 30*time.Second).SetErr(errors.New("connection refused"))

	ok, err := locker.Acquire(context.Background(), "TK-abc")
	assert.Error(t, err)
	assert.False(t, ok)
}

// TicketCodec Tests

func TestTicketCodec_EncodeProducesDataURI(t *testing.T) {
	codec := NewTicketCodec("test-secret")

	uri, err := codec.Encode("tkt123", "TK-abc")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	raw := strings.TrimPrefix(uri, "data:image/png;base64,")
	png, err := base64.StdEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestTicketCodec_VerifyRoundTrip(t *testing.T) {
	codec := NewTicketCodec("test-secret")

	payload, err := json.Marshal(map[string]string{
		"ticket_id": "tkt123",
		"reference": "TK-abc",
		"sig":       codec.sign("tkt123", "TK-abc"),
	})
	require.NoError(t, err)

	ticketID, ok := codec.Verify(payload)
	assert.True(t, ok)
	assert.Equal(t, "tkt123", ticketID)
}

func TestTicketCodec_VerifyRejectsTamperedPayload(t *testing.T) {
	codec := NewTicketCodec("test-secret")

	payload, _ := json.Marshal(map[string]string{
		"ticket_id": "tkt999", // swapped ticket id
		"reference": "TK-abc",
		"sig":       codec.sign("tkt123", "TK-abc"),
	})

	_, ok := codec.Verify(payload)
	assert.False(t, ok)
}

func TestTicketCodec_VerifyRejectsWrongSecret(t *testing.T) {
	codec := NewTicketCodec("test-secret")
	other := NewTicketCodec("other-secret")

	payload, _ := json.Marshal(map[string]string{
		"ticket_id": "tkt123",
		"reference": "TK-abc",
		"sig":       other.sign("tkt123", "TK-abc"),
	})

	_, ok := codec.Verify(payload)
	assert.False(t, ok)
}

// Reference Tests

func TestNewReference(t *testing.T) {
	ref := NewReference("TK")

	assert.True(t, strings.HasPrefix(ref, "TK-"))
	assert.NotEqual(t, ref, NewReference("TK"))
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(8)

	assert.NoError(t, err)
	assert.Len(t, code, 16) // hex doubles the byte length
	assert.Equal(t, strings.ToUpper(code), code)
}
