// Package cache is the TTL cache in front of upstream data producers.
//
// The cache fails open: when the backing store is absent or unreachable,
// every lookup goes straight to the producer and store errors are logged,
// never returned.
//
// Get-then-set is not atomic. Two concurrent misses for the same key may
// both run the producer and both write; the last write wins.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultProducerTimeout bounds a single producer invocation
const DefaultProducerTimeout = 10 * time.Second

// Options configures a Cache
type Options struct {
	Namespace       string
	ProducerTimeout time.Duration
	Logger          zerolog.Logger
}

// Cache wraps a Store with JSON encoding, fail-open semantics and counters
type Cache struct {
	store           Store
	namespace       string
	producerTimeout time.Duration
	log             zerolog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
	errors atomic.Int64
}

// Stats is a point-in-time view of cache counters
type Stats struct {
	Enabled     bool    `json:"enabled"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Sets        int64   `json:"sets"`
	StoreErrors int64   `json:"store_errors"`
	HitRate     float64 `json:"hit_rate"`
}

// New creates a cache. A nil store disables caching.
func New(store Store, opts Options) *Cache {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.ProducerTimeout <= 0 {
		opts.ProducerTimeout = DefaultProducerTimeout
	}
	return &Cache{
		store:           store,
		namespace:       opts.Namespace,
		producerTimeout: opts.ProducerTimeout,
		log:             opts.Logger.With().Str("component", "cache").Logger(),
	}
}

// Enabled reports whether a backing store is configured
func (c *Cache) Enabled() bool {
	return c != nil && c.store != nil
}

// Get decodes the value under key into dst. It reports false on a miss,
// a store error, or a value that no longer decodes.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if !c.Enabled() {
		return false
	}

	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrCacheMiss):
		c.misses.Add(1)
		c.log.Debug().Str("key", key).Msg("cache miss")
		return false
	case err != nil:
		c.errors.Add(1)
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.errors.Add(1)
		c.log.Warn().Err(err).Str("key", key).Msg("cached value undecodable")
		return false
	}

	c.hits.Add(1)
	c.log.Debug().Str("key", key).Msg("cache hit")
	return true
}

// Set stores value under key. Failures are logged and counted.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.errors.Add(1)
		c.log.Warn().Err(err).Str("key", key).Msg("cache value not encodable")
		return
	}

	if err := c.store.Set(ctx, key, data, ttl); err != nil {
		c.errors.Add(1)
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		return
	}

	c.sets.Add(1)
	c.log.Debug().Str("key", key).Dur("ttl", ttl).Msg("cache set")
}

// Delete removes keys. Failures are logged and counted.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if !c.Enabled() {
		return
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.errors.Add(1)
		c.log.Warn().Err(err).Strs("keys", keys).Msg("cache delete failed")
	}
}

// Stats returns the current counters
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	s := Stats{
		Enabled:     c.Enabled(),
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Sets:        c.sets.Load(),
		StoreErrors: c.errors.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Producer computes a fresh value on a cache miss
type Producer[T any] func(ctx context.Context) (T, error)

// Fetch returns the cached value under key, or runs producer and caches its
// result for ttl. hit reports whether the value came from the cache.
//
// Producer errors are returned wrapped; nothing is cached for them.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, producer Producer[T]) (value T, hit bool, err error) {
	if c.Get(ctx, key, &value) {
		return value, true, nil
	}

	timeout := DefaultProducerTimeout
	if c != nil {
		timeout = c.producerTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	value, err = producer(pctx)
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("produce %s: %w", key, err)
	}

	c.Set(ctx, key, value, ttl)
	return value, false, nil
}
