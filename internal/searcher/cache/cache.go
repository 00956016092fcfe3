// Package cache memoizes encoded search responses in Redis. Keys are scoped
// by an index fingerprint so responses from a previous build are never
// served after the index file changes.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/resilience"
)

const keyPrefix = "hunt:"

// Store is the key-value backend; *redis.Client from pkg/redis satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64

	mu          sync.RWMutex
	fingerprint string
}

// New returns a cache for the index identified by fingerprint. m may be nil.
func New(store Store, ttl time.Duration, fingerprint string, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:       store,
		ttl:         ttl,
		fingerprint: fingerprint,
		breaker:     resilience.NewBreaker("query-cache", 5, 30*time.Second),
		metrics:     m,
		logger:      slog.Default().With("component", "query-cache"),
	}
}

// GetOrCompute returns the cached response for (mode, query, distance), or
// runs compute, stores its result and returns it. Concurrent callers with
// the same key share one compute. Backend failures are logged and treated as
// misses; after repeated failures the backend is skipped for a cooldown.
// Only compute errors are returned.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	mode, query string,
	distance int,
	compute func() ([]byte, error),
) ([]byte, bool, error) {
	key := c.key(mode, query, distance)
	if data, ok := c.get(ctx, key); ok {
		c.hit()
		return data, true, nil
	}
	c.miss()
	val, err, _ := c.group.Do(key, func() (any, error) {
		if data, ok := c.get(ctx, key); ok {
			return data, nil
		}
		data, err := compute()
		if err != nil {
			return nil, err
		}
		err = c.breaker.Do(func() error {
			return c.store.Set(ctx, key, data, c.ttl)
		})
		if err != nil && !errors.Is(err, resilience.ErrOpen) {
			c.logger.Error("cache set failed", "key", key, "error", err)
		}
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

// Invalidate drops every cached response of this index.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	return c.drop(ctx, c.prefix())
}

// Rescope points the cache at a newly loaded index and drops the responses
// cached for the previous one. Keys already in flight for the old index
// may still be written and expire with their TTL.
func (c *QueryCache) Rescope(ctx context.Context, fingerprint string) error {
	c.mu.Lock()
	old := c.fingerprint
	c.fingerprint = fingerprint
	c.mu.Unlock()
	if old == fingerprint {
		return nil
	}
	c.logger.Info("cache rescoped", "from", old, "to", fingerprint)
	return c.drop(ctx, keyPrefix+old+":")
}

func (c *QueryCache) Fingerprint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fingerprint
}

func (c *QueryCache) drop(ctx context.Context, prefix string) error {
	deleted, err := c.store.DeletePrefix(ctx, prefix)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "prefix", prefix, "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) get(ctx context.Context, key string) ([]byte, bool) {
	var (
		data []byte
		ok   bool
	)
	err := c.breaker.Do(func() error {
		var err error
		data, ok, err = c.store.Get(ctx, key)
		return err
	})
	if errors.Is(err, resilience.ErrOpen) {
		return nil, false
	}
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		return nil, false
	}
	return data, ok
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) prefix() string {
	return keyPrefix + c.Fingerprint() + ":"
}

func (c *QueryCache) key(mode, query string, distance int) string {
	raw := mode + "|" + strconv.Itoa(distance) + "|" + query
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", c.prefix(), hash[:16])
}
