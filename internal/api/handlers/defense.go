package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/waiver-ranker/internal/dfs"
	"github.com/stitts-dev/waiver-ranker/internal/providers"
	"github.com/stitts-dev/waiver-ranker/internal/services"
	"github.com/stitts-dev/waiver-ranker/pkg/utils"
)

type DefenseHandler struct {
	defense *services.DefenseService
	logger  *logrus.Logger
}

func NewDefenseHandler(defenseService *services.DefenseService, logger *logrus.Logger) *DefenseHandler {
	return &DefenseHandler{
		defense: defenseService,
		logger:  logger,
	}
}

// DefenseRankingsResponse bundles the table with where it came from
type DefenseRankingsResponse struct {
	Rankings []dfs.DefenseRankEntry `json:"rankings"`
	Status   services.DefenseStatus `json:"status"`
}

// GetRankings returns the current defensive rankings
// GET /api/v1/defense
func (h *DefenseHandler) GetRankings(c *gin.Context) {
	entries := h.defense.Table().Entries()
	utils.SendSuccessWithMeta(c, DefenseRankingsResponse{
		Rankings: entries,
		Status:   h.defense.Status(),
	}, &utils.Meta{Count: len(entries)})
}

// GetTeamRanking returns one defense
// GET /api/v1/defense/:team
func (h *DefenseHandler) GetTeamRanking(c *gin.Context) {
	team := h.defense.CanonicalTeam(c.Param("team"))
	entry, ok := h.defense.Lookup(team)
	if !ok {
		utils.SendNotFound(c, "No defensive ranking for team "+team)
		return
	}
	utils.SendSuccess(c, entry)
}

// RefreshRankings forces a refresh from the configured source. Failures
// leave the served table untouched.
// POST /api/v1/defense/refresh
func (h *DefenseHandler) RefreshRankings(c *gin.Context) {
	table, err := h.defense.Refresh(c.Request.Context())
	switch {
	case errors.Is(err, providers.ErrNoSource):
		utils.SendValidationError(c, "No defense source configured", "set DEFENSE_SOURCE to a URL or file path")
		return
	case err != nil:
		h.logger.WithField("component", "api").WithError(err).Warn("Defense refresh failed")
		utils.SendUnavailable(c, "Defense refresh failed, current rankings kept", err.Error())
		return
	}

	entries := table.Entries()
	utils.SendSuccessWithMeta(c, DefenseRankingsResponse{
		Rankings: entries,
		Status:   h.defense.Status(),
	}, &utils.Meta{Count: len(entries)})
}
