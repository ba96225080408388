package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/waiver-ranker/internal/metrics"
	"github.com/stitts-dev/waiver-ranker/pkg/logger"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 9, 8, 12, 0, 0, 0, time.UTC)}
}

func countingLoader(calls *int32, v string) Loader[string] {
	return func(context.Context) (string, error) {
		atomic.AddInt32(calls, 1)
		return v, nil
	}
}

func newTestCache(clock *fakeClock, reg *metrics.Registry) *Cache[string] {
	cfg := Config{
		Name:   "test",
		TTL:    10 * time.Minute,
		Logger: logger.Discard(),
		Clock:  clock.Now,
	}
	if reg != nil {
		cfg.Metrics = reg.Cache
	}
	return New[string](cfg, nil)
}

func TestCache_LoadsOnceWithinTTL(t *testing.T) {
	clock := newClock()
	c := newTestCache(clock, nil)
	ctx := context.Background()

	var calls int32
	for i := 0; i < 3; i++ {
		v, err := c.Get(ctx, "k", countingLoader(&calls, "v1"))
		require.NoError(t, err)
		assert.Equal(t, "v1", v)
		clock.Advance(3 * time.Minute)
	}
	assert.Equal(t, int32(1), calls)

	clock.Advance(2 * time.Minute)
	v, err := c.Get(ctx, "k", countingLoader(&calls, "v2"))
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
	assert.Equal(t, int32(2), calls)
}

func TestCache_GetForUsesExplicitTTL(t *testing.T) {
	clock := newClock()
	c := newTestCache(clock, nil)
	ctx := context.Background()

	var calls int32
	_, err := c.GetFor(ctx, "k", time.Hour, countingLoader(&calls, "v"))
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	_, err = c.GetFor(ctx, "k", time.Hour, countingLoader(&calls, "v"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestCache_ServesStaleWhenReloadFails(t *testing.T) {
	clock := newClock()
	reg := metrics.NewRegistry()
	c := newTestCache(clock, reg)
	ctx := context.Background()

	var calls int32
	_, err := c.Get(ctx, "k", countingLoader(&calls, "good"))
	require.NoError(t, err)

	clock.Advance(time.Hour)
	failing := func(context.Context) (string, error) { return "", errors.New("upstream down") }

	v, err := c.Get(ctx, "k", failing)
	require.NoError(t, err)
	assert.Equal(t, "good", v)

	// the entry is still expired, so the next read retries
	v, err = c.Get(ctx, "k", countingLoader(&calls, "fresh"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Cache.StaleServed.WithLabelValues("test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Cache.LoadFailures.WithLabelValues("test")))
	assert.Equal(t, 3.0, testutil.ToFloat64(reg.Cache.Misses.WithLabelValues("test")))
}

func TestCache_FailsWithoutAnyEntry(t *testing.T) {
	c := newTestCache(newClock(), nil)
	boom := errors.New("boom")

	_, err := c.Get(context.Background(), "k", func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)

	_, ok := c.Peek(context.Background(), "k")
	assert.False(t, ok)
}

func TestCache_CancelledContextIsNotMaskedByStaleValue(t *testing.T) {
	clock := newClock()
	c := newTestCache(clock, nil)

	var calls int32
	_, err := c.Get(context.Background(), "k", countingLoader(&calls, "v"))
	require.NoError(t, err)
	clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Get(ctx, "k", func(ctx context.Context) (string, error) { return "", ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)

	v, ok := c.Peek(context.Background(), "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestCache_RefreshKeepsEntryOnFailure(t *testing.T) {
	clock := newClock()
	c := newTestCache(clock, nil)
	ctx := context.Background()

	var calls int32
	_, err := c.Get(ctx, "k", countingLoader(&calls, "v1"))
	require.NoError(t, err)

	_, err = c.Refresh(ctx, "k", func(context.Context) (string, error) { return "", errors.New("nope") })
	assert.Error(t, err)
	v, _ := c.Peek(ctx, "k")
	assert.Equal(t, "v1", v)

	v, err = c.Refresh(ctx, "k", countingLoader(&calls, "v2"))
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	entry, ok := c.PeekEntry(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(10*time.Minute), entry.ExpiresAt)
}

func TestCache_Reset(t *testing.T) {
	c := newTestCache(newClock(), nil)
	ctx := context.Background()

	var calls int32
	for _, key := range []string{"a", "b", "c"} {
		_, err := c.Get(ctx, key, countingLoader(&calls, key))
		require.NoError(t, err)
	}

	require.NoError(t, c.Reset(ctx, "a"))
	_, ok := c.Peek(ctx, "a")
	assert.False(t, ok)
	_, ok = c.Peek(ctx, "b")
	assert.True(t, ok)

	require.NoError(t, c.Reset(ctx))
	_, ok = c.Peek(ctx, "c")
	assert.False(t, ok)
}
