// Package cache provides the key-value caching layer used for derived state.
//
// Every Store operation is non-throwing: an unreachable or disabled backing
// store behaves exactly like a cold cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Outcome labels reported to an Observer.
const (
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeError    = "error"
	OutcomeDisabled = "disabled"
)

const scanBatch = 200

// Observer receives cache lookup outcomes, typically for metrics.
type Observer interface {
	ObserveCache(prefix, outcome string)
}

// Options scopes a single call. Prefix namespaces the key; TTL applies to writes
// and zero means the entry does not expire.
type Options struct {
	Prefix string
	TTL    time.Duration
}

func (o Options) key(key string) string {
	return o.Prefix + key
}

// Store wraps Redis with JSON serialization and miss-on-failure semantics.
type Store struct {
	client   redis.UniversalClient
	logger   *slog.Logger
	observer Observer
}

// NewStore builds a Store. A nil client yields a disabled store.
func NewStore(client redis.UniversalClient, logger *slog.Logger, observer Observer) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger, observer: observer}
}

// NewDisabledStore returns a store where every operation is a no-op.
func NewDisabledStore() *Store {
	return &Store{logger: slog.Default()}
}

// Enabled reports whether a backing client is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Get loads key and decodes it into T. The boolean is false when the key is
// absent, the store is unavailable, or the payload cannot be decoded. A stored
// JSON null decodes to the zero value of T and is reported as found.
func Get[T any](ctx context.Context, s *Store, key string, opts Options) (T, bool) {
	var zero T
	if !s.Enabled() {
		s.observe(opts.Prefix, OutcomeDisabled)
		return zero, false
	}
	payload, err := s.client.Get(ctx, opts.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.observe(opts.Prefix, OutcomeMiss)
			return zero, false
		}
		s.unavailable("get", opts, key, err)
		return zero, false
	}
	var value T
	if err := json.Unmarshal(payload, &value); err != nil {
		s.logger.Warn("cache decode", slog.String("key", opts.key(key)), slog.Any("error", err))
		s.observe(opts.Prefix, OutcomeMiss)
		return zero, false
	}
	s.observe(opts.Prefix, OutcomeHit)
	return value, true
}

// Set serializes value and stores it under key.
func (s *Store) Set(ctx context.Context, key string, value any, opts Options) bool {
	if !s.Enabled() {
		return false
	}
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache encode", slog.String("key", opts.key(key)), slog.Any("error", err))
		return false
	}
	if err := s.client.Set(ctx, opts.key(key), payload, opts.TTL).Err(); err != nil {
		s.unavailable("set", opts, key, err)
		return false
	}
	return true
}

// Delete removes key. It returns false only when the store could not be reached.
func (s *Store) Delete(ctx context.Context, key string, opts Options) bool {
	if !s.Enabled() {
		return false
	}
	if err := s.client.Del(ctx, opts.key(key)).Err(); err != nil {
		s.unavailable("delete", opts, key, err)
		return false
	}
	return true
}

// DeleteMany removes all keys and returns how many entries existed.
func (s *Store) DeleteMany(ctx context.Context, keys []string, opts Options) int {
	if !s.Enabled() || len(keys) == 0 {
		return 0
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, opts.key(k))
	}
	removed, err := s.client.Del(ctx, full...).Result()
	if err != nil {
		s.unavailable("delete many", opts, "", err)
		return 0
	}
	return int(removed)
}

// DeletePattern scans for keys matching prefix+pattern and removes them.
func (s *Store) DeletePattern(ctx context.Context, pattern string, opts Options) int {
	if !s.Enabled() {
		return 0
	}
	var (
		cursor uint64
		total  int
	)
	match := opts.key(pattern)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			s.unavailable("scan", opts, pattern, err)
			return total
		}
		if len(keys) > 0 {
			removed, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				s.unavailable("delete pattern", opts, pattern, err)
				return total
			}
			total += int(removed)
		}
		cursor = next
		if cursor == 0 {
			return total
		}
	}
}

// Counter reads the integer stored at key. An absent key reads as zero. The
// boolean is false when the store is disabled or unreachable, or when the
// value is not an integer.
func (s *Store) Counter(ctx context.Context, key string, opts Options) (int64, bool) {
	if !s.Enabled() {
		return 0, false
	}
	n, err := s.client.Get(ctx, opts.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		s.unavailable("counter", opts, key, err)
		return 0, false
	}
	return n, true
}

// IncrMany increments the counter at every key in one round trip. Counters
// are written without expiry.
func (s *Store) IncrMany(ctx context.Context, keys []string, opts Options) bool {
	if !s.Enabled() || len(keys) == 0 {
		return false
	}
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Incr(ctx, opts.key(k))
		}
		return nil
	})
	if err != nil {
		s.unavailable("incr", opts, "", err)
		return false
	}
	return true
}

// Ping reports whether the backing store answers.
func (s *Store) Ping(ctx context.Context) bool {
	if !s.Enabled() {
		return false
	}
	return s.client.Ping(ctx).Err() == nil
}

func (s *Store) unavailable(op string, opts Options, key string, err error) {
	s.logger.Warn("cache unavailable", slog.String("op", op), slog.String("key", opts.key(key)), slog.Any("error", err))
	s.observe(opts.Prefix, OutcomeError)
}

func (s *Store) observe(prefix, outcome string) {
	if s == nil || s.observer == nil {
		return
	}
	s.observer.ObserveCache(prefix, outcome)
}
