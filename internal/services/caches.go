package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/waiver-ranker/internal/cache"
	"github.com/stitts-dev/waiver-ranker/internal/dfs"
	"github.com/stitts-dev/waiver-ranker/internal/market"
	"github.com/stitts-dev/waiver-ranker/internal/metrics"
)

const cacheKeyPrefix = "waiver"

// CacheSettings configures the process-wide caches
type CacheSettings struct {
	ScoreboardTTL      time.Duration
	WeatherTTL         time.Duration
	PlayerDirectoryTTL time.Duration
	NewsTTL            time.Duration
	TrendingTTL        time.Duration

	// Redis is optional; without it every cache lives in process memory
	Redis          cache.RedisClient
	RedisRetention time.Duration
	Metrics        *metrics.CacheMetrics
	Logger         *logrus.Logger
	Clock          func() time.Time
}

// ContextCaches is the single set of caches shared by every request
type ContextCaches struct {
	Scoreboard *cache.Cache[*market.Index]
	Weather    *cache.Cache[string]
	Directory  *cache.Cache[[]dfs.PlayerDirectoryEntry]
	News       *cache.Cache[[]dfs.NewsItem]
	Trending   *cache.Cache[[]dfs.TrendingPlayer]
}

// NewContextCaches builds every cache with its own TTL
func NewContextCaches(s CacheSettings) *ContextCaches {
	return &ContextCaches{
		Scoreboard: newCache[*market.Index](s, "scoreboard", s.ScoreboardTTL),
		Weather:    newCache[string](s, "weather", s.WeatherTTL),
		Directory:  newCache[[]dfs.PlayerDirectoryEntry](s, "directory", s.PlayerDirectoryTTL),
		News:       newCache[[]dfs.NewsItem](s, "news", s.NewsTTL),
		Trending:   newCache[[]dfs.TrendingPlayer](s, "trending", s.TrendingTTL),
	}
}

func newCache[T any](s CacheSettings, name string, ttl time.Duration) *cache.Cache[T] {
	var store cache.Store[T]
	if s.Redis != nil {
		store = cache.NewRedisStore[T](s.Redis, cacheKeyPrefix+":"+name, s.RedisRetention)
	}
	return cache.New[T](cache.Config{
		Name:    name,
		TTL:     ttl,
		Logger:  s.Logger,
		Metrics: s.Metrics,
		Clock:   s.Clock,
	}, store)
}

// Reset empties every cache
func (c *ContextCaches) Reset(ctx context.Context) error {
	return errors.Join(
		c.Scoreboard.Reset(ctx),
		c.Weather.Reset(ctx),
		c.Directory.Reset(ctx),
		c.News.Reset(ctx),
		c.Trending.Reset(ctx),
	)
}
