package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freshreach/opal-sync-monitor/internal/health"
	"github.com/freshreach/opal-sync-monitor/internal/logger"
	"github.com/freshreach/opal-sync-monitor/internal/models"
)

// HealthResponse wraps a health snapshot. The endpoint always answers 200
// so dashboards can render degraded and unhealthy states instead of
// getting connection errors.
type HealthResponse struct {
	Status string           `json:"status"`
	Data   *health.Snapshot `json:"data"`
	Cached bool             `json:"cached"`
	Error  string           `json:"error,omitempty"`
}

// GetHealth godoc
// @Summary System health
// @Description Aggregate health across database, platform API, webhooks and workflow engine; always returns 200
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handler) GetHealth(c *gin.Context) {
	snap, cached, probeErr := h.healthWithFallback(c)

	resp := HealthResponse{
		Status: snap.Status,
		Data:   snap,
		Cached: cached,
	}
	if probeErr != "" {
		resp.Error = probeErr
	}

	c.JSON(http.StatusOK, resp)
}

// healthWithFallback computes a live snapshot, falling back to the cached
// one (and finally a minimal unhealthy shape) if the live path panics.
func (h *Handler) healthWithFallback(c *gin.Context) (snap *health.Snapshot, cached bool, probeErr string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger.Error().Interface("panic", r).Msg("health computation panicked")
			probeErr = "health computation failed"
			if fallback := h.health.GetCached(); fallback != nil {
				snap, cached = fallback, true
				return
			}
			snap, cached = health.Unhealthy("health computation failed"), false
		}
	}()

	snap, cached = h.health.GetHealth(c.Request.Context())
	return snap, cached, ""
}

// RefreshHealth godoc
// @Summary Force health refresh
// @Description Re-run all health probes immediately, bypassing the cache
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /health/refresh [post]
func (h *Handler) RefreshHealth(c *gin.Context) {
	snap := h.health.ForceRefresh(c.Request.Context())
	if snap == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Health refresh failed", Code: models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"force_refreshed": true,
		"status":          snap.Status,
		"data":            snap,
	})
}
