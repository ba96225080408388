package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/waiver-ranker/internal/services"
)

type HealthHandler struct {
	breakers *services.CircuitBreakerService
	defense  *services.DefenseService
	started  time.Time
}

func NewHealthHandler(breakers *services.CircuitBreakerService, defenseService *services.DefenseService) *HealthHandler {
	return &HealthHandler{
		breakers: breakers,
		defense:  defenseService,
		started:  time.Now(),
	}
}

// GetHealth always returns 200 while the server runs. Open breakers are
// reported, not treated as failure, since every dataset has a fallback.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	status := "ok"
	breakers := h.breakers.States()
	for _, state := range breakers {
		if state != "closed" {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"service":  "waiver-ranker",
		"time":     time.Now().UTC(),
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"breakers": breakers,
		"defense":  h.defense.Status(),
	})
}
