package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/waiver-ranker/internal/services"
	"github.com/stitts-dev/waiver-ranker/pkg/utils"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

type PlayerHandler struct {
	context *services.ContextService
	logger  *logrus.Logger
}

func NewPlayerHandler(contextService *services.ContextService, logger *logrus.Logger) *PlayerHandler {
	return &PlayerHandler{
		context: contextService,
		logger:  logger,
	}
}

// SearchPlayers returns directory matches, best first
// GET /api/v1/players/search?q=mahomes&limit=10
func (h *PlayerHandler) SearchPlayers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		utils.SendValidationError(c, "Search query is required", "pass the player name as q")
		return
	}

	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			utils.SendValidationError(c, "Invalid limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	candidates, err := h.context.SearchPlayers(c.Request.Context(), query, limit)
	if err != nil {
		h.logger.WithField("component", "api").WithError(err).Warn("Player directory unavailable")
		utils.SendUnavailable(c, "Player directory unavailable", err.Error())
		return
	}

	utils.SendSuccessWithMeta(c, candidates, &utils.Meta{Count: len(candidates)})
}

// BestPlayer returns the single strongest match
// GET /api/v1/players/best?q=mahomes
func (h *PlayerHandler) BestPlayer(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		utils.SendValidationError(c, "Search query is required", "pass the player name as q")
		return
	}

	best, ok, err := h.context.BestPlayer(c.Request.Context(), query)
	if err != nil {
		utils.SendUnavailable(c, "Player directory unavailable", err.Error())
		return
	}
	if !ok {
		utils.SendNotFound(c, "No player matches "+query)
		return
	}
	utils.SendSuccess(c, best)
}
