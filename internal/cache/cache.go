package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/waiver-ranker/internal/metrics"
	"github.com/stitts-dev/waiver-ranker/pkg/logger"
)

// Entry is one cached value and the moment it stops being fresh
type Entry[T any] struct {
	Value     T         `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Live reports whether the entry is still fresh at now
func (e Entry[T]) Live(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Loader produces a fresh value for a key
type Loader[T any] func(ctx context.Context) (T, error)

// Store holds entries. Implementations replace entries whole.
type Store[T any] interface {
	Load(ctx context.Context, key string) (Entry[T], bool, error)
	Save(ctx context.Context, key string, entry Entry[T]) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}

// Config describes a cache instance
type Config struct {
	Name    string
	TTL     time.Duration
	Logger  *logrus.Logger
	Metrics *metrics.CacheMetrics
	Clock   func() time.Time
}

// Cache is a single-entry-per-key cache with a time-to-live. An expired
// entry triggers one reload per read; when the reload fails the expired
// value keeps serving until a later load succeeds.
type Cache[T any] struct {
	name    string
	ttl     time.Duration
	store   Store[T]
	logger  *logrus.Logger
	metrics *metrics.CacheMetrics
	now     func() time.Time
}

// New creates a cache over store. A nil store keeps entries in memory.
func New[T any](cfg Config, store Store[T]) *Cache[T] {
	if store == nil {
		store = NewMemoryStore[T]()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Cache[T]{
		name:    cfg.Name,
		ttl:     cfg.TTL,
		store:   store,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     cfg.Clock,
	}
}

// Name returns the cache's label
func (c *Cache[T]) Name() string {
	return c.name
}

// TTL returns the default freshness window
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached value for key, loading it with the default TTL
// when absent or expired
func (c *Cache[T]) Get(ctx context.Context, key string, loader Loader[T]) (T, error) {
	return c.GetFor(ctx, key, c.ttl, loader)
}

// GetFor is Get with an explicit TTL for the stored result
func (c *Cache[T]) GetFor(ctx context.Context, key string, ttl time.Duration, loader Loader[T]) (T, error) {
	entry, found := c.load(ctx, key)
	if found && entry.Live(c.now()) {
		c.metrics.Hit(c.name)
		return entry.Value, nil
	}

	c.metrics.Miss(c.name)
	value, err := c.fill(ctx, key, ttl, loader)
	if err == nil {
		return value, nil
	}

	var zero T
	if ctx.Err() != nil {
		return zero, ctx.Err()
	}
	if found {
		c.metrics.Stale(c.name)
		c.log(key).WithError(err).
			WithField("expired_at", entry.ExpiresAt).
			Warn("Reload failed, serving stale entry")
		return entry.Value, nil
	}
	return zero, err
}

// Refresh always invokes loader and stores the result on success. On
// failure the existing entry is left untouched and the error returned.
func (c *Cache[T]) Refresh(ctx context.Context, key string, loader Loader[T]) (T, error) {
	return c.fill(ctx, key, c.ttl, loader)
}

// Peek returns whatever is stored for key, fresh or not, without loading
func (c *Cache[T]) Peek(ctx context.Context, key string) (T, bool) {
	entry, found := c.load(ctx, key)
	return entry.Value, found
}

// PeekEntry is Peek with the expiry attached
func (c *Cache[T]) PeekEntry(ctx context.Context, key string) (Entry[T], bool) {
	return c.load(ctx, key)
}

// Reset drops the given keys, or every key when none are given
func (c *Cache[T]) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		if err := c.store.Clear(ctx); err != nil {
			return fmt.Errorf("cache %s: clear: %w", c.name, err)
		}
		return nil
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("cache %s: delete: %w", c.name, err)
	}
	return nil
}

func (c *Cache[T]) fill(ctx context.Context, key string, ttl time.Duration, loader Loader[T]) (T, error) {
	value, err := loader(ctx)
	if err != nil {
		c.metrics.LoadFailed(c.name)
		var zero T
		return zero, fmt.Errorf("cache %s: load %q: %w", c.name, key, err)
	}

	entry := Entry[T]{Value: value, ExpiresAt: c.now().Add(ttl)}
	if err := c.store.Save(ctx, key, entry); err != nil {
		// the caller still gets the fresh value
		c.log(key).WithError(err).Warn("Failed to store cache entry")
	}
	return value, nil
}

func (c *Cache[T]) load(ctx context.Context, key string) (Entry[T], bool) {
	entry, found, err := c.store.Load(ctx, key)
	if err != nil {
		c.log(key).WithError(err).Warn("Cache store read failed")
		return Entry[T]{}, false
	}
	return entry, found
}

func (c *Cache[T]) log(key string) *logrus.Entry {
	return logger.WithComponent(c.logger, "cache").WithFields(logrus.Fields{
		"cache": c.name,
		"key":   key,
	})
}
