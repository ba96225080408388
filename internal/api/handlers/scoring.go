package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/waiver-ranker/internal/dfs"
	"github.com/stitts-dev/waiver-ranker/internal/scoring"
	"github.com/stitts-dev/waiver-ranker/internal/services"
	"github.com/stitts-dev/waiver-ranker/pkg/utils"
)

const maxScoreBatch = 500

type ScoringHandler struct {
	scoring *services.ScoringService
	logger  *logrus.Logger
}

func NewScoringHandler(scoringService *services.ScoringService, logger *logrus.Logger) *ScoringHandler {
	return &ScoringHandler{
		scoring: scoringService,
		logger:  logger,
	}
}

// ExplainResponse is a scored player with the math behind its score
type ExplainResponse struct {
	Player    dfs.ScoredPlayer  `json:"player"`
	Breakdown scoring.Breakdown `json:"breakdown"`
}

// ScorePlayers ranks a batch of players
// POST /api/v1/score?mode=week|ros
func (h *ScoringHandler) ScorePlayers(c *gin.Context) {
	var inputs []dfs.PlayerInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if len(inputs) > maxScoreBatch {
		utils.SendValidationError(c, "Too many players", "score at most 500 players per request")
		return
	}

	mode := dfs.ParseProjectionMode(c.Query("mode"))
	scored, err := h.scoring.ScorePlayers(c.Request.Context(), inputs, mode)
	if err != nil {
		// only a cancelled request gets here
		h.logger.WithField("component", "api").WithError(err).Debug("Scoring aborted")
		utils.SendError(c, http.StatusRequestTimeout, utils.NewAppError(utils.ErrCodeUnavailable, "Scoring aborted", err.Error()))
		return
	}

	utils.SendSuccessWithMeta(c, scored, &utils.Meta{Count: len(scored), Mode: string(mode)})
}

// ExplainPlayer scores one player and returns the breakdown
// POST /api/v1/score/explain?mode=week|ros
func (h *ScoringHandler) ExplainPlayer(c *gin.Context) {
	var input dfs.PlayerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	mode := dfs.ParseProjectionMode(c.Query("mode"))
	player, breakdown := h.scoring.Explain(c.Request.Context(), input, mode)
	utils.SendSuccess(c, ExplainResponse{Player: player, Breakdown: breakdown})
}
