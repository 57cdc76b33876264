package gateway

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freshreach/opal-sync-monitor/internal/logger"
	"github.com/freshreach/opal-sync-monitor/internal/models"
)

// TriggerSyncRequest is the operator request to start a Force Sync run.
type TriggerSyncRequest struct {
	SyncScope string `json:"sync_scope,omitempty"`
	DryRun    bool   `json:"dry_run,omitempty"`
}

// TriggerSyncResponse acknowledges a started (or dry-run) sync.
type TriggerSyncResponse struct {
	Success       bool   `json:"success"`
	DryRun        bool   `json:"dry_run,omitempty"`
	WorkflowID    string `json:"workflow_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
}

// TriggerSync godoc
// @Summary Trigger a Force Sync
// @Description Start a Force Sync run on the OPAL platform unless one is already active
// @Tags sync
// @Accept json
// @Produce json
// @Param request body TriggerSyncRequest false "Trigger options"
// @Success 202 {object} TriggerSyncResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sync/trigger [post]
func (h *Handler) TriggerSync(c *gin.Context) {
	var req TriggerSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
			return
		}
	}
	scope := req.SyncScope
	if scope == "" {
		scope = "full"
	}

	ctx := c.Request.Context()

	// The duplicate-prevention gate: one sync in flight at a time. Stale
	// runs are already excluded by the tracker's read-time derivation.
	active, err := h.tracker.ActiveSessions(ctx)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to check active sessions")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to check active sessions", Code: models.ErrCodeInternalError})
		return
	}
	if len(active) > 0 {
		logger.Logger.Info().
			Int("active", len(active)).
			Str("workflow_id", active[0].WorkflowID).
			Msg("sync trigger rejected, run already active")
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:         "Sync Already Active",
			Code:          models.ErrCodeSyncActive,
			CorrelationID: active[0].CorrelationID,
		})
		return
	}

	if req.DryRun {
		c.JSON(http.StatusOK, TriggerSyncResponse{Success: true, DryRun: true})
		return
	}

	if h.platform == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "OPAL platform credentials are not configured",
			Code:  models.ErrCodeConfigurationError,
		})
		return
	}

	result, err := h.platform.TriggerSync(ctx, scope)
	if err != nil {
		if errors.Is(err, models.ErrConfiguration) {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error(), Code: models.ErrCodeConfigurationError})
			return
		}
		logger.Logger.Error().Err(err).Str("scope", scope).Msg("platform trigger failed")
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "Failed to trigger sync", Code: models.ErrCodeUpstreamError})
		return
	}

	if err := h.tracker.RecordTriggered(ctx, result.WorkflowID, "force_sync", result.CorrelationID, h.nowFn()); err != nil {
		// The run is already started upstream; the trigger webhook will
		// re-create the record, so log and report success.
		logger.Logger.Warn().Err(err).Str("workflow_id", result.WorkflowID).Msg("failed to pre-record triggered execution")
	} else {
		h.metrics.RecordWorkflowStarted(ctx, "force_sync")
	}

	c.JSON(http.StatusAccepted, TriggerSyncResponse{
		Success:       true,
		WorkflowID:    result.WorkflowID,
		CorrelationID: result.CorrelationID,
		SessionID:     result.SessionID,
	})
}

// SyncStatusResponse is the polling payload for one workflow run. The
// polling interval is null once the run is terminal so clients stop.
type SyncStatusResponse struct {
	Success         bool                  `json:"success"`
	WorkflowID      string                `json:"workflow_id"`
	Status          models.WorkflowStatus `json:"status"`
	Progress        int                   `json:"progress"`
	PollingInterval *int                  `json:"polling_interval"`
	FailureReason   string                `json:"failure_reason,omitempty"`
}

// SyncStatus godoc
// @Summary Poll sync status
// @Description Return progress for one workflow run; polling_interval is null when terminal
// @Tags sync
// @Produce json
// @Param workflow_id path string true "Workflow ID"
// @Success 200 {object} SyncStatusResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /sync/status/{workflow_id} [get]
func (h *Handler) SyncStatus(c *gin.Context) {
	workflowID := c.Param("workflow_id")

	exec, err := h.tracker.GetExecution(c.Request.Context(), workflowID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Workflow not found", Code: models.ErrCodeNotFound})
			return
		}
		logger.Logger.Error().Err(err).Str("workflow_id", workflowID).Msg("failed to load execution")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load workflow", Code: models.ErrCodeInternalError})
		return
	}

	resp := SyncStatusResponse{
		Success:       true,
		WorkflowID:    exec.WorkflowID,
		Status:        exec.Status,
		Progress:      h.progressFor(exec),
		FailureReason: exec.FailureReason,
	}
	if !exec.Status.Terminal() {
		interval := 2000
		resp.PollingInterval = &interval
	}

	c.JSON(http.StatusOK, resp)
}

// progressFor derives a coarse percentage from observed events against the
// expected agent set (one started and one completed event per agent, plus
// the trigger). Capped below 100 until the run is terminal.
func (h *Handler) progressFor(exec *models.WorkflowExecution) int {
	if exec.Status == models.WorkflowStatusCompleted {
		return 100
	}

	expectedEvents := 2*len(h.cfg.Tracker.ExpectedAgents) + 1
	if expectedEvents <= 1 {
		expectedEvents = 2
	}
	progress := exec.EventCount * 100 / expectedEvents
	if progress > 95 {
		progress = 95
	}
	return progress
}
