package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/waiver-ranker/internal/services"
	"github.com/stitts-dev/waiver-ranker/pkg/utils"
)

const defaultTrendingLimit = 25

type FeedHandler struct {
	context *services.ContextService
}

func NewFeedHandler(contextService *services.ContextService) *FeedHandler {
	return &FeedHandler{context: contextService}
}

// GetNews returns headlines; never fails, bundled headlines back it up
// GET /api/v1/news
func (h *FeedHandler) GetNews(c *gin.Context) {
	items := h.context.News(c.Request.Context())
	utils.SendSuccessWithMeta(c, items, &utils.Meta{Count: len(items)})
}

// GetTrending returns the most added players
// GET /api/v1/trending?limit=25
func (h *FeedHandler) GetTrending(c *gin.Context) {
	limit := defaultTrendingLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			utils.SendValidationError(c, "Invalid limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	trending := h.context.Trending(c.Request.Context(), limit)
	utils.SendSuccessWithMeta(c, trending, &utils.Meta{Count: len(trending)})
}
