package gateway

import (
	"crypto/hmac"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freshreach/opal-sync-monitor/internal/logger"
	"github.com/freshreach/opal-sync-monitor/internal/models"
)

// webhookSecretHeader carries the shared secret OPAL is configured to echo
// back on every callback. Checked only when a secret is configured.
const webhookSecretHeader = "X-Webhook-Secret"

// ReceiveWebhook godoc
// @Summary Receive OPAL webhook
// @Description Ingest a workflow or agent lifecycle event from the OPAL platform
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /webhooks/opal [post]
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	if secret := h.cfg.OPAL.WebhookSecret; secret != "" {
		provided := c.GetHeader(webhookSecretHeader)
		if !hmac.Equal([]byte(provided), []byte(secret)) {
			logger.Logger.Warn().Str("remote", c.ClientIP()).Msg("webhook secret mismatch")
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid webhook secret", Code: models.ErrCodeUnauthorized})
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Failed to read request body", Code: models.ErrCodeInvalidRequest})
		return
	}

	ev, err := models.ParseWebhookEvent(body, h.nowFn())
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("rejected malformed webhook")
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: models.ErrCodeInvalidRequest})
		return
	}

	ctx := c.Request.Context()

	if err := h.events.AppendEvent(ctx, ev); err != nil {
		logger.Logger.Error().Err(err).Str("event_type", ev.EventType).Msg("failed to append event")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to store event", Code: models.ErrCodeInternalError})
		return
	}

	if ev.Quarantined {
		logger.Logger.Warn().
			Str("event_type", ev.EventType).
			Str("workflow_id", ev.WorkflowID).
			Msg("quarantined unknown event type")
		h.metrics.RecordEventQuarantined(ctx, ev.EventType)
		c.JSON(http.StatusAccepted, gin.H{"success": true, "event_id": ev.ID, "quarantined": true})
		return
	}

	h.metrics.RecordEventReceived(ctx, ev.EventType)

	if err := h.dispatchEvent(c, ev); err != nil {
		return // dispatchEvent already wrote the response
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "event_id": ev.ID})
}

// dispatchEvent routes a known event to the trackers. On error it writes
// the HTTP response and returns a non-nil error so the caller stops.
func (h *Handler) dispatchEvent(c *gin.Context, ev *models.WebhookEvent) error {
	ctx := c.Request.Context()

	switch ev.EventType {
	case models.EventTypeWorkflowTriggered:
		err := h.tracker.RecordTriggered(ctx, ev.WorkflowID, ev.WorkflowName, ev.CorrelationID, ev.ReceivedAt)
		if err != nil {
			if errors.Is(err, models.ErrDuplicateWorkflow) {
				c.JSON(http.StatusConflict, models.ErrorResponse{
					Error:         "Workflow already executed",
					Code:          models.ErrCodeDuplicateWorkflow,
					CorrelationID: ev.CorrelationID,
				})
				return err
			}
			return h.dispatchFailed(c, ev, err)
		}
		h.metrics.RecordWorkflowStarted(ctx, ev.WorkflowName)

	case models.EventTypeAgentStarted, models.EventTypeAgentCompleted:
		if err := h.tracker.RecordAgentEvent(ctx, ev); err != nil {
			return h.dispatchFailed(c, ev, err)
		}

	case models.EventTypeWorkflowCompleted:
		if err := h.tracker.RecordCompleted(ctx, ev.WorkflowID, ev.ReceivedAt); err != nil {
			return h.dispatchFailed(c, ev, err)
		}
		h.recordTerminalMetrics(c, ev, true)

	case models.EventTypeWorkflowFailed:
		reason := ""
		if ev.ErrorMessage != nil {
			reason = *ev.ErrorMessage
		}
		if err := h.tracker.RecordFailed(ctx, ev.WorkflowID, reason, ev.ReceivedAt); err != nil {
			return h.dispatchFailed(c, ev, err)
		}
		h.recordTerminalMetrics(c, ev, false)
	}

	return nil
}

func (h *Handler) dispatchFailed(c *gin.Context, ev *models.WebhookEvent, err error) error {
	logger.Logger.Error().Err(err).
		Str("event_type", ev.EventType).
		Str("workflow_id", ev.WorkflowID).
		Msg("failed to dispatch event")
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to process event", Code: models.ErrCodeInternalError})
	return err
}

func (h *Handler) recordTerminalMetrics(c *gin.Context, ev *models.WebhookEvent, completed bool) {
	ctx := c.Request.Context()

	exec, err := h.tracker.GetExecution(ctx, ev.WorkflowID)
	if err != nil {
		return
	}

	duration, ok := exec.Duration()
	if !ok && exec.FailedAt != nil {
		duration = exec.FailedAt.Sub(exec.TriggerTimestamp)
	}

	if completed {
		h.metrics.RecordWorkflowCompleted(ctx, exec.WorkflowName, duration)
	} else {
		h.metrics.RecordWorkflowFailed(ctx, exec.WorkflowName, "workflow_failed", duration)
	}
}
