package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/MojoAuth/connector-identity/internal/errors"
	"github.com/MojoAuth/connector-identity/pkg/redis"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	}))

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return mr, client, cleanup
}

func fastRetry() apperrors.RetryPolicy {
	return apperrors.RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1}
}

func TestRedisStore_RecordAndLookup(t *testing.T) {
	mr, client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	store := NewRedisStore(client, testLogger())
	ctx := context.Background()
	seenAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entry := NewEntry("7c2d9f1", `{"plugins":[],"typePrefix":"a"}`, seenAt)

	require.NoError(t, store.Record(ctx, entry, time.Hour))
	assert.True(t, mr.Exists(DefaultKeyPrefix+"7c2d9f1"))
	assert.Equal(t, time.Hour, mr.TTL(DefaultKeyPrefix+"7c2d9f1"))

	got, err := store.Lookup(ctx, "7c2d9f1")
	require.NoError(t, err)
	if assert.NotNil(t, got) {
		assert.Equal(t, entry, *got)
	}
}

func TestRedisStore_LookupMissing(t *testing.T) {
	_, client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	store := NewRedisStore(client, testLogger())

	got, err := store.Lookup(context.Background(), "absent")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_Forget(t *testing.T) {
	mr, client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	store := NewRedisStore(client, testLogger(), WithKeyPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, NewEntry("abc", "{}", time.Now()), 0))
	assert.True(t, mr.Exists("test:abc"))

	require.NoError(t, store.Forget(ctx, "abc"))
	assert.False(t, mr.Exists("test:abc"))
}

func TestRedisStore_FailuresBecomeStoreErrors(t *testing.T) {
	mr, client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	store := NewRedisStore(client, testLogger(), WithRetryPolicy(fastRetry()))
	mr.SetError("LOADING")

	err := store.Record(context.Background(), NewEntry("abc", "{}", time.Now()), time.Minute)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeStore, appErr.Code)
	assert.True(t, appErr.Retryable)
}

func TestRedisStore_OpenBreakerStopsRetries(t *testing.T) {
	mr, client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	breaker := apperrors.NewCircuitBreaker(apperrors.BreakerConfig{MinRequests: 1, ErrorThreshold: 0.5, OpenTimeout: time.Hour})
	store := NewRedisStore(client, testLogger(), WithRetryPolicy(fastRetry()), WithBreaker(breaker))
	mr.SetError("LOADING")

	_, err := store.Lookup(context.Background(), "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCircuitOpen)
	assert.Equal(t, apperrors.StateOpen, breaker.State())
}

func TestCompare(t *testing.T) {
	recorded := NewEntry("abc", `{"a":1}`, time.Now())

	assert.Equal(t, MatchUnknown, Compare(nil, `{"a":1}`))
	assert.Equal(t, MatchSameConfig, Compare(&recorded, `{"a":1}`))
	assert.Equal(t, MatchCollision, Compare(&recorded, `{"a":2}`))
	assert.Equal(t, "collision", MatchCollision.String())
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "ef46db3751d8e999", Fingerprint(""))
	assert.NotEqual(t, Fingerprint(`{"a":1}`), Fingerprint(`{"a":2}`))
}
