package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/freshreach/opal-sync-monitor/internal/logger"
	"github.com/freshreach/opal-sync-monitor/internal/models"
)

// Notifier delivers non-critical operator notifications. Implementations
// must swallow their own failures: notification delivery is best-effort and
// never propagates into the caller's success path.
type Notifier interface {
	// VerdictRed is called when a reconciliation pass produces a red verdict.
	VerdictRed(ctx context.Context, rec *models.IntegrationValidationRecord)
	// HealthChanged is called when the aggregated health status transitions.
	HealthChanged(ctx context.Context, previous, current string)
}

// NopNotifier discards all notifications. Used in tests and when no
// notification endpoint is configured.
type NopNotifier struct{}

func (NopNotifier) VerdictRed(context.Context, *models.IntegrationValidationRecord) {}
func (NopNotifier) HealthChanged(context.Context, string, string)                   {}

// WebhookNotifier posts notifications as JSON to an operator-configured URL
// (Slack-compatible or any webhook receiver). Failures are logged at warn
// and dropped.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier creates a webhook notifier for the given URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) VerdictRed(ctx context.Context, rec *models.IntegrationValidationRecord) {
	n.post(ctx, map[string]interface{}{
		"type":           "validation.red",
		"workflow_id":    rec.ForceSyncWorkflowID,
		"correlation_id": rec.OPALCorrelationID,
		"summary":        rec.Summary,
		"reception_rate": rec.OSAReceptionRate,
		"validated_at":   rec.ValidatedAt.Format(time.RFC3339),
	})
}

func (n *WebhookNotifier) HealthChanged(ctx context.Context, previous, current string) {
	n.post(ctx, map[string]interface{}{
		"type":     "health.changed",
		"previous": previous,
		"current":  current,
	})
}

func (n *WebhookNotifier) post(ctx context.Context, payload map[string]interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Failed to encode notification")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Failed to build notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("url", n.url).Msg("Notification delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Logger.Warn().Int("status", resp.StatusCode).Str("url", n.url).
			Msg("Notification endpoint returned non-success")
	}
}
