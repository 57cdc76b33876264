package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/freshreach/opal-sync-monitor/internal/logger"
	"github.com/freshreach/opal-sync-monitor/internal/models"
)

// RunValidationRequest controls a manual reconciliation batch.
type RunValidationRequest struct {
	Limit  int  `json:"limit,omitempty"`
	DryRun bool `json:"dry_run,omitempty"`
}

// RunValidation godoc
// @Summary Run validation batch
// @Description Reconcile completed-but-unvalidated workflow runs into verdicts
// @Tags validation
// @Accept json
// @Produce json
// @Param request body RunValidationRequest false "Batch options"
// @Success 200 {object} models.BatchResult
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /validation/run [post]
func (h *Handler) RunValidation(c *gin.Context) {
	var req RunValidationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
			return
		}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = h.cfg.Validation.BatchLimit
	}

	ctx := c.Request.Context()
	result, err := h.reconciler.Run(ctx, limit, req.DryRun)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("validation batch failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Validation run failed", Code: models.ErrCodeInternalError})
		return
	}

	for _, item := range result.Results {
		if item.Success {
			h.metrics.RecordValidationRun(ctx, string(item.OverallStatus))
		}
	}

	c.JSON(http.StatusOK, result)
}

// ListValidations godoc
// @Summary List validation records
// @Description Return recent validation verdicts, newest first
// @Tags validation
// @Produce json
// @Param limit query int false "Max records (default 20)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /validation/records [get]
func (h *Handler) ListValidations(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "limit must be a positive integer", Code: models.ErrCodeInvalidRequest})
			return
		}
		limit = parsed
	}

	records, err := h.validations.ListRecentValidations(c.Request.Context(), limit)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to list validation records")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list records", Code: models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}
