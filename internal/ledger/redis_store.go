package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/MojoAuth/connector-identity/internal/errors"
	"github.com/MojoAuth/connector-identity/pkg/redis"
)

// DefaultKeyPrefix namespaces ledger keys.
const DefaultKeyPrefix = "connector:instance:"

// RedisStore keeps entries as JSON strings under <prefix><id>.
type RedisStore struct {
	client  redis.KV
	log     *slog.Logger
	prefix  string
	retry   apperrors.RetryPolicy
	breaker *apperrors.CircuitBreaker
}

// Option customizes a RedisStore.
type Option func(*RedisStore)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p apperrors.RetryPolicy) Option {
	return func(s *RedisStore) { s.retry = p }
}

// WithBreaker replaces the circuit breaker guarding Redis calls.
func WithBreaker(cb *apperrors.CircuitBreaker) Option {
	return func(s *RedisStore) {
		if cb != nil {
			s.breaker = cb
		}
	}
}

func NewRedisStore(client redis.KV, log *slog.Logger, opts ...Option) *RedisStore {
	if log == nil {
		log = slog.Default()
	}

	s := &RedisStore{
		client:  client,
		log:     log,
		prefix:  DefaultKeyPrefix,
		retry:   apperrors.DefaultRetryPolicy(),
		breaker: apperrors.NewCircuitBreaker(apperrors.DefaultBreakerConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Record(ctx context.Context, entry Entry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		s.log.Error("failed to encode ledger entry", slog.String("instance_id", entry.ID), slog.Any("error", err))
		return err
	}

	err = s.call(ctx, "record", func() error {
		return s.client.Set(ctx, s.key(entry.ID), string(payload), ttl)
	})
	if err != nil {
		s.log.Error("failed to record ledger entry", slog.String("instance_id", entry.ID), slog.Any("error", err))
		return err
	}

	return nil
}

// Lookup returns the entry for id, or nil when none is recorded.
func (s *RedisStore) Lookup(ctx context.Context, id string) (*Entry, error) {
	var raw string
	err := s.call(ctx, "lookup", func() error {
		var getErr error
		raw, getErr = s.client.Get(ctx, s.key(id))
		if redis.IsNil(getErr) {
			raw = ""
			return nil
		}
		return getErr
	})
	if err != nil {
		s.log.Error("failed to fetch ledger entry", slog.String("instance_id", id), slog.Any("error", err))
		return nil, err
	}

	if raw == "" {
		return nil, nil
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		s.log.Error("failed to decode ledger entry", slog.String("instance_id", id), slog.Any("error", err))
		return nil, err
	}

	return &entry, nil
}

func (s *RedisStore) Forget(ctx context.Context, id string) error {
	err := s.call(ctx, "forget", func() error {
		return s.client.Delete(ctx, s.key(id))
	})
	if err != nil {
		s.log.Error("failed to forget ledger entry", slog.String("instance_id", id), slog.Any("error", err))
		return err
	}

	return nil
}

// HealthCheck reports whether the backing Redis answers.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}

// call retries op through the circuit breaker. Redis failures become
// retryable store errors; an open breaker ends the retries.
func (s *RedisStore) call(ctx context.Context, op string, fn func() error) error {
	return s.retry.Do(ctx, func() error {
		err := s.breaker.Call(fn)
		if err == nil {
			return nil
		}

		storeErr := apperrors.NewStoreError(op, err)
		if errors.Is(err, apperrors.ErrCircuitOpen) || errors.Is(err, apperrors.ErrHalfOpenTooManyRequests) {
			storeErr.Retryable = false
		}
		return storeErr
	})
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}
