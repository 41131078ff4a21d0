package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamerfie/game-vault/middleware"
	"github.com/gamerfie/game-vault/models"
	"github.com/gamerfie/game-vault/services"
)

// StatsHandler handles the caller's rule statistics
type StatsHandler struct {
	statsService *services.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// Get returns the caller's statistics
// GET /api/v1/me/stats
func (h *StatsHandler) Get(c *gin.Context) {
	stats, err := h.statsService.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "Failed to load stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// Replace stores a new statistics snapshot for the caller
// PUT /api/v1/me/stats
func (h *StatsHandler) Replace(c *gin.Context) {
	var req models.UpdateUserStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	stats, err := h.statsService.Replace(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err, "Failed to save stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
