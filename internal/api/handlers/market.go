package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/waiver-ranker/internal/providers"
	"github.com/stitts-dev/waiver-ranker/internal/services"
	"github.com/stitts-dev/waiver-ranker/pkg/utils"
)

type MarketHandler struct {
	context *services.ContextService
	logger  *logrus.Logger
}

func NewMarketHandler(contextService *services.ContextService, logger *logrus.Logger) *MarketHandler {
	return &MarketHandler{
		context: contextService,
		logger:  logger,
	}
}

// WeatherResponse is the forecast for the game a team plays in
type WeatherResponse struct {
	Team    string  `json:"team"`
	Venue   string  `json:"venue"`
	Indoor  bool    `json:"indoor"`
	Weather *string `json:"weather"`
}

// GetMarket returns every team's market context
// GET /api/v1/market
func (h *MarketHandler) GetMarket(c *gin.Context) {
	idx, err := h.context.Market(c.Request.Context())
	if err != nil {
		h.logger.WithField("component", "api").WithError(err).Warn("Market unavailable")
		utils.SendUnavailable(c, "Market data unavailable", err.Error())
		return
	}

	contexts := idx.All()
	utils.SendSuccessWithMeta(c, contexts, &utils.Meta{Count: len(contexts)})
}

// GetTeamMarket returns one team's market context
// GET /api/v1/market/:team
func (h *MarketHandler) GetTeamMarket(c *gin.Context) {
	team := h.context.CanonicalTeam(c.Param("team"))

	idx, err := h.context.Market(c.Request.Context())
	if err != nil {
		utils.SendUnavailable(c, "Market data unavailable", err.Error())
		return
	}

	mc, ok := idx.Lookup(team)
	if !ok {
		utils.SendNotFound(c, "No game found for team "+team)
		return
	}
	utils.SendSuccess(c, mc)
}

// GetWeather returns the forecast for a team's game
// GET /api/v1/weather/:team
func (h *MarketHandler) GetWeather(c *gin.Context) {
	team := h.context.CanonicalTeam(c.Param("team"))
	if _, ok := providers.StadiumFor(team); !ok {
		utils.SendNotFound(c, "Unknown team "+team)
		return
	}

	venue := team
	if mc, ok := h.context.MarketFor(c.Request.Context(), team); ok && !mc.Home && mc.Opponent != "" {
		venue = mc.Opponent
	}
	stadium, _ := providers.StadiumFor(venue)

	weather, err := h.context.WeatherForTeam(c.Request.Context(), team)
	if err != nil {
		utils.SendUnavailable(c, "Weather unavailable", err.Error())
		return
	}

	utils.SendSuccess(c, WeatherResponse{
		Team:    team,
		Venue:   stadium.Name,
		Indoor:  stadium.Indoor,
		Weather: weather,
	})
}
