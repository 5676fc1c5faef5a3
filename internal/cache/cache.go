// Package cache is a read-through cache for expensive list queries, keyed by
// a canonical fingerprint of the resolved query and invalidated by glob
// pattern when writes change a result set.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/taskify/taskify-api/internal/kv"
)

const sweepTimeout = 5 * time.Second

// Cache wraps the key-value store with degrade-to-source semantics: the
// cache is never the source of truth, so store faults read as misses and
// writes are best effort.
type Cache struct {
	store  kv.Store
	logger *slog.Logger
	ttl    time.Duration

	patterns chan string
	wg       sync.WaitGroup
	closed   chan struct{}
}

// New builds a Cache and starts the given number of background sweepers that process
// pattern invalidations. Close must be called to stop them. With workers <= 0
// no sweepers run and the owner drains the queue with Flush; tests use this
// to make sweeps deterministic.
func New(store kv.Store, logger *slog.Logger, ttl time.Duration, workers int) *Cache {
	c := &Cache{
		store:    store,
		logger:   logger,
		ttl:      ttl,
		patterns: make(chan string, 64),
		closed:   make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go c.sweeper()
	}
	return c
}

// Read returns the cached payload for key, or ok=false on a miss. A store
// fault is a miss: callers fall back to the durable store.
func (c *Cache) Read(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			c.logger.Warn("cache read degraded to miss", "key", key, "error", err)
		}
		return nil, false
	}
	return []byte(val), true
}

// Write stores the payload under key with the configured TTL. Failures are
// logged and swallowed.
func (c *Cache) Write(ctx context.Context, key string, payload []byte) {
	if err := c.store.Set(ctx, key, string(payload), c.ttl); err != nil {
		c.logger.Warn("cache write dropped", "key", key, "error", err)
	}
}

// Invalidate removes a single entry. Best effort.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("cache invalidate failed", "key", key, "error", err)
	}
}

// InvalidateByPattern queues an asynchronous sweep of every key matching the
// glob pattern. The mutating request does not wait for the sweep, so a
// reader may observe a stale listing until the sweep lands or the entry's
// TTL expires; that bounded staleness is the documented consistency model.
// If the queue is full the pattern is dropped and TTL expiry is the
// fallback.
func (c *Cache) InvalidateByPattern(pattern string) {
	select {
	case <-c.closed:
	case c.patterns <- pattern:
	default:
		c.logger.Warn("cache sweep queue full, relying on ttl expiry", "pattern", pattern)
	}
}

// Flush processes queued sweeps synchronously. Tests use it to make pattern
// invalidation deterministic.
func (c *Cache) Flush(ctx context.Context) {
	for {
		select {
		case pattern := <-c.patterns:
			c.sweep(ctx, pattern)
		default:
			return
		}
	}
}

// Close stops the sweepers. Patterns still queued are abandoned; their
// entries age out by TTL.
func (c *Cache) Close() {
	close(c.closed)
	c.wg.Wait()
}

func (c *Cache) sweeper() {
	defer c.wg.Done()
	for {
		select {
		case <-c.closed:
			return
		case pattern := <-c.patterns:
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			c.sweep(ctx, pattern)
			cancel()
		}
	}
}

func (c *Cache) sweep(ctx context.Context, pattern string) {
	keys, err := c.store.ScanKeys(ctx, pattern)
	if err != nil {
		c.logger.Warn("cache sweep scan failed", "pattern", pattern, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.Warn("cache sweep delete failed", "pattern", pattern, "error", err)
		return
	}
	c.logger.Debug("cache sweep completed", "pattern", pattern, "deleted", len(keys))
}
