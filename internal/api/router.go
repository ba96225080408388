package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/waiver-ranker/internal/api/handlers"
	"github.com/stitts-dev/waiver-ranker/internal/api/middleware"
	"github.com/stitts-dev/waiver-ranker/internal/metrics"
	"github.com/stitts-dev/waiver-ranker/internal/services"
)

// Services is everything the HTTP surface reads from
type Services struct {
	Context  *services.ContextService
	Defense  *services.DefenseService
	Scoring  *services.ScoringService
	Breakers *services.CircuitBreakerService
	Metrics  *metrics.Registry
}

// NewRouter builds the gin engine with middleware, health, metrics and
// the versioned API
func NewRouter(svc Services, corsOrigins []string, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(corsOrigins))

	health := handlers.NewHealthHandler(svc.Breakers, svc.Defense)
	router.GET("/health", health.GetHealth)
	if svc.Metrics != nil {
		router.GET("/metrics", gin.WrapH(svc.Metrics.Handler()))
	}

	SetupRoutes(router.Group("/api/v1"), svc, logger)
	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, svc Services, logger *logrus.Logger) {
	marketHandler := handlers.NewMarketHandler(svc.Context, logger)
	defenseHandler := handlers.NewDefenseHandler(svc.Defense, logger)
	playerHandler := handlers.NewPlayerHandler(svc.Context, logger)
	scoringHandler := handlers.NewScoringHandler(svc.Scoring, logger)
	feedHandler := handlers.NewFeedHandler(svc.Context)

	// Market and weather
	group.GET("/market", marketHandler.GetMarket)
	group.GET("/market/:team", marketHandler.GetTeamMarket)
	group.GET("/weather/:team", marketHandler.GetWeather)

	// Defensive rankings
	group.GET("/defense", defenseHandler.GetRankings)
	group.GET("/defense/:team", defenseHandler.GetTeamRanking)
	group.POST("/defense/refresh", defenseHandler.RefreshRankings)

	// Player directory
	group.GET("/players/search", playerHandler.SearchPlayers)
	group.GET("/players/best", playerHandler.BestPlayer)

	// Scoring
	group.POST("/score", scoringHandler.ScorePlayers)
	group.POST("/score/explain", scoringHandler.ExplainPlayer)

	// Feeds
	group.GET("/news", feedHandler.GetNews)
	group.GET("/trending", feedHandler.GetTrending)

	logger.WithField("component", "api").Debug("API routes registered")
}
