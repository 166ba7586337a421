package handler

import (
	"net/http"
	"strconv"

	"github.com/dockhand-io/dockhand/internal/governance"
	"github.com/gin-gonic/gin"
)

type MetricsHandler struct {
	governor *governance.Governor
}

func NewMetricsHandler(governor *governance.Governor) *MetricsHandler {
	return &MetricsHandler{governor: governor}
}

// Handles GET /metrics/summary
func (h *MetricsHandler) GetSummary(c *gin.Context) {
	stats, ok := h.governor.Summary()
	if !ok {
		// Distinct from an all-fast summary: nothing has been recorded yet
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No metrics collected yet",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Handles GET /metrics/slow-requests
func (h *MetricsHandler) GetSlowRequests(c *gin.Context) {
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 || l > governance.MaxSlowRequestLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be an integer between 1 and 1000",
			})
			return
		}
		limit = l
	}

	slow := h.governor.SlowRequests(limit)

	c.JSON(http.StatusOK, gin.H{
		"slow_requests": slow,
		"count":         len(slow),
		"limit":         limit,
	})
}

// Handles GET /metrics/health
func (h *MetricsHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.governor.Health())
}

// Handles POST /metrics/reset (admin only, enforced by route middleware)
func (h *MetricsHandler) Reset(c *gin.Context) {
	h.governor.ResetMetrics()

	c.JSON(http.StatusOK, gin.H{
		"message": "Metrics history cleared",
	})
}
