package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/waiver-ranker/internal/api"
	"github.com/stitts-dev/waiver-ranker/internal/cache"
	"github.com/stitts-dev/waiver-ranker/internal/defense"
	"github.com/stitts-dev/waiver-ranker/internal/market"
	"github.com/stitts-dev/waiver-ranker/internal/metrics"
	"github.com/stitts-dev/waiver-ranker/internal/providers"
	"github.com/stitts-dev/waiver-ranker/internal/scoring"
	"github.com/stitts-dev/waiver-ranker/internal/services"
	"github.com/stitts-dev/waiver-ranker/pkg/config"
	"github.com/stitts-dev/waiver-ranker/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := metrics.NewRegistry()

	// Redis is optional; without it every cache lives in memory
	var redisClient *redis.Client
	var sharedStore cache.RedisClient
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opt)

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.WithError(err).Warn("Redis unreachable, falling back to in-memory caches")
			redisClient.Close()
			redisClient = nil
		} else {
			sharedStore = redisClient
			log.Info("Using Redis for shared caches")
		}
		cancel()
	}

	// Upstream plumbing
	breakers := services.NewCircuitBreakerService(cfg.CircuitBreakerThreshold, 30*time.Second, log)
	fetcher := providers.NewFetcher(cfg.ExternalAPITimeout, breakers, registry.Upstream, log)

	espnClient := providers.NewESPNClient(fetcher, cfg.ESPNScoreboardURL)
	weatherClient := providers.NewWeatherClient(fetcher, cfg.WeatherAPIURL, cfg.WeatherRateLimit)
	sleeperClient := providers.NewSleeperClient(fetcher, cfg.SleeperAPIURL)
	newsClient := providers.NewNewsClient(fetcher, cfg.NewsFeedURL)
	defenseSource := providers.NewDefenseSource(fetcher, cfg.DefenseSource)

	// Defensive rankings
	aliases, err := defense.LoadAliases(cfg.DefenseAliasesFile)
	if err != nil {
		log.WithError(err).Warn("Failed to load defense aliases, using bundled table")
		aliases = defense.DefaultAliases()
	}
	normalizer := defense.NewNormalizer(aliases, defense.Weights{
		QB: cfg.DefenseWeightQB,
		RB: cfg.DefenseWeightRB,
		WR: cfg.DefenseWeightWR,
		TE: cfg.DefenseWeightTE,
	})
	defenseService := services.NewDefenseService(defenseSource, normalizer, cfg.DefenseCacheFile,
		cfg.DefenseRefreshInterval, registry.Refresh, log)
	if err := defenseService.Start(); err != nil {
		log.Errorf("Failed to start defense refresher: %v", err)
	}
	defer defenseService.Stop()

	// Context and scoring
	caches := services.NewContextCaches(services.CacheSettings{
		ScoreboardTTL:      cfg.ScoreboardTTL,
		WeatherTTL:         cfg.WeatherTTL,
		PlayerDirectoryTTL: cfg.PlayerDirectoryTTL,
		NewsTTL:            cfg.NewsTTL,
		TrendingTTL:        cfg.TrendingTTL,
		Redis:              sharedStore,
		RedisRetention:     cfg.RedisRetention,
		Metrics:            registry.Cache,
		Logger:             log,
	})
	resolver := market.NewResolver(aliases.CanonicalTeam)
	contextService := services.NewContextService(caches, espnClient, weatherClient, sleeperClient, newsClient, resolver, log)
	scoringService := services.NewScoringService(contextService, defenseService, scoring.NewEngine(), log)

	router := api.NewRouter(api.Services{
		Context:  contextService,
		Defense:  defenseService,
		Scoring:  scoringService,
		Breakers: breakers,
		Metrics:  registry,
	}, cfg.CorsOrigins, log)

	if cfg.IsDevelopment() {
		for _, route := range router.Routes() {
			log.Debugf("%s %s", route.Method, route.Path)
		}
	}

	// Setup server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.WithError(err).Warn("Failed to close Redis client")
		}
	}

	log.Info("Server exited")
}
