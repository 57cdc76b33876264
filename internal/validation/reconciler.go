package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/freshreach/opal-sync-monitor/internal/config"
	"github.com/freshreach/opal-sync-monitor/internal/logger"
	"github.com/freshreach/opal-sync-monitor/internal/models"
	"github.com/freshreach/opal-sync-monitor/internal/notify"
)

// ExecutionSource supplies the reconciler's work queue.
type ExecutionSource interface {
	ListCompletedUnvalidated(ctx context.Context, limit int) ([]models.WorkflowExecution, error)
}

// EventSource reads stored webhook events for a workflow.
type EventSource interface {
	ListEventsByWorkflow(ctx context.Context, workflowID string) ([]models.WebhookEvent, error)
}

// RecordSink persists validation verdicts.
type RecordSink interface {
	InsertValidation(ctx context.Context, rec *models.IntegrationValidationRecord) error
}

// PlatformProbe is the slice of the OPAL client the reconciler needs for
// layers 3 and 4.
type PlatformProbe interface {
	RecentIngestSeen(ctx context.Context, correlationID string) (bool, error)
	ResultsAvailable(ctx context.Context, workflowID string) (bool, error)
}

// Reconciler turns completed Force Syncs into durable green/yellow/red
// verdicts across four check layers. Each layer recovers to unknown at its
// own boundary; a monitoring failure must never look like a service outage.
type Reconciler struct {
	execs          ExecutionSource
	events         EventSource
	records        RecordSink
	platform       PlatformProbe
	notifier       notify.Notifier
	cfg            config.ValidationConfig
	expectedAgents []string

	nowFn func() time.Time
}

// NewReconciler creates a reconciler. expectedAgents is the agent set a full
// Force Sync is expected to run; layer 2 computes its reception rate over it.
func NewReconciler(execs ExecutionSource, events EventSource, records RecordSink, platform PlatformProbe, notifier notify.Notifier, cfg config.ValidationConfig, expectedAgents []string) *Reconciler {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 10
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &Reconciler{
		execs:          execs,
		events:         events,
		records:        records,
		platform:       platform,
		notifier:       notifier,
		cfg:            cfg,
		expectedAgents: expectedAgents,
		nowFn:          func() time.Time { return time.Now().UTC() },
	}
}

// Run validates up to limit eligible workflows and returns the batch result.
// A persistence failure for one workflow is reported as a failed item but
// does not abort the rest of the batch. The batch is not atomic: records
// already written stand, and unprocessed workflows stay eligible for the
// next tick.
func (r *Reconciler) Run(ctx context.Context, limit int, dryRun bool) (*models.BatchResult, error) {
	if limit <= 0 {
		limit = r.cfg.BatchLimit
	}

	execs, err := r.execs.ListCompletedUnvalidated(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("select workflows for validation: %w", err)
	}

	result := &models.BatchResult{DryRun: dryRun, Results: make([]models.BatchItemResult, 0, len(execs))}
	for i := range execs {
		item := r.reconcileOne(ctx, &execs[i], dryRun)
		result.Results = append(result.Results, item)
		result.Processed++
	}

	logger.Logger.Info().
		Int("processed", result.Processed).
		Bool("dry_run", dryRun).
		Msg("Validation batch finished")

	return result, nil
}

// reconcileOne runs all four layers for one workflow and persists the
// verdict. Succeeding here means a verdict was produced, independent of its
// color.
func (r *Reconciler) reconcileOne(ctx context.Context, exec *models.WorkflowExecution, dryRun bool) models.BatchItemResult {
	var layerErrors []string

	events, err := r.events.ListEventsByWorkflow(ctx, exec.WorkflowID)
	if err != nil {
		// All layers that need events degrade to unknown; layers 3 and 4 can
		// still run against the platform.
		layerErrors = append(layerErrors, fmt.Sprintf("load events: %v", err))
		logger.Logger.Warn().Err(err).
			Str("workflow_id", exec.WorkflowID).
			Msg("Event store unavailable during validation")
	}

	layer1 := r.checkTrigger(exec, events, err != nil)
	layer2, receptionRate, missing := r.checkAgents(exec, events, err != nil)
	layer3 := r.checkIngestion(ctx, exec, &layerErrors)
	layer4 := r.checkResults(ctx, exec, &layerErrors)

	layers := [4]models.LayerStatus{layer1, layer2, layer3, layer4}
	color := ComputeVerdict(layer1, layer2, layer3, layer4)

	rec := &models.IntegrationValidationRecord{
		ForceSyncWorkflowID: exec.WorkflowID,
		OPALCorrelationID:   exec.CorrelationID,
		OverallStatus:       color,
		Summary:             verdictSummary(color, layers, receptionRate),
		ValidatedAt:         r.nowFn(),
		Layer1Status:        layer1,
		Layer2Status:        layer2,
		Layer3Status:        layer3,
		Layer4Status:        layer4,
		OSAReceptionRate:    receptionRate,
		HealthScore:         healthScore(layers),
		HealthAgentsMissing: missing,
		Errors:              layerErrors,
	}

	item := models.BatchItemResult{
		WorkflowID:    exec.WorkflowID,
		OverallStatus: color,
		Layer1Status:  layer1,
		Layer2Status:  layer2,
		Layer3Status:  layer3,
		Layer4Status:  layer4,
	}

	if !dryRun {
		if err := r.records.InsertValidation(ctx, rec); err != nil {
			logger.Logger.Error().Err(err).
				Str("workflow_id", exec.WorkflowID).
				Str("correlation_id", exec.CorrelationID).
				Msg("Failed to persist validation record")
			item.Error = err.Error()
			return item
		}
	}
	item.Success = true

	if color == models.VerdictRed {
		r.notifier.VerdictRed(ctx, rec)
	}

	logger.Logger.Info().
		Str("workflow_id", exec.WorkflowID).
		Str("correlation_id", exec.CorrelationID).
		Str("verdict", string(color)).
		Float64("reception_rate", receptionRate).
		Msg("Validation verdict recorded")

	return item
}

// checkTrigger is layer 1: the triggering event exists and the correlation
// id is well-formed. A failure here forces the verdict to red.
func (r *Reconciler) checkTrigger(exec *models.WorkflowExecution, events []models.WebhookEvent, eventsUnavailable bool) models.LayerStatus {
	if eventsUnavailable {
		return models.LayerUnknown
	}
	if exec.CorrelationID == "" {
		return models.LayerFail
	}
	for _, ev := range events {
		if ev.EventType == models.EventTypeWorkflowTriggered {
			return models.LayerPass
		}
	}
	return models.LayerFail
}

// checkAgents is layer 2: the expected agent set reported at least one
// successful completion each. Returns the layer status, the reception rate
// and the list of agents that never reported.
func (r *Reconciler) checkAgents(exec *models.WorkflowExecution, events []models.WebhookEvent, eventsUnavailable bool) (models.LayerStatus, float64, []string) {
	if eventsUnavailable {
		return models.LayerUnknown, 0, nil
	}
	if len(r.expectedAgents) == 0 {
		return models.LayerPass, 1, nil
	}

	reported := make(map[string]bool)
	for _, ev := range events {
		if ev.EventType == models.EventTypeAgentCompleted && ev.Success {
			if exec.SessionID != "" && ev.SessionID != "" && ev.SessionID != exec.SessionID {
				continue
			}
			reported[ev.AgentID] = true
		}
	}

	var missing []string
	seen := 0
	for _, agent := range r.expectedAgents {
		if reported[agent] {
			seen++
		} else {
			missing = append(missing, agent)
		}
	}

	rate := float64(seen) / float64(len(r.expectedAgents))
	switch {
	case rate < r.cfg.RedThreshold:
		return models.LayerFail, rate, missing
	case rate < r.cfg.YellowThreshold:
		return models.LayerDegraded, rate, missing
	default:
		return models.LayerPass, rate, missing
	}
}

// checkIngestion is layer 3: the reconciled data landed downstream. Polls
// the platform's recent-ingest signal with a bounded wait; a timeout marks
// the layer degraded, not failed.
func (r *Reconciler) checkIngestion(ctx context.Context, exec *models.WorkflowExecution, layerErrors *[]string) models.LayerStatus {
	if exec.CorrelationID == "" {
		return models.LayerUnknown
	}

	seen, err := PollUntil(ctx, r.cfg.IngestPoll, func(ctx context.Context) (bool, error) {
		return r.platform.RecentIngestSeen(ctx, exec.CorrelationID)
	})
	if seen {
		return models.LayerPass
	}
	if err != nil {
		if ctx.Err() != nil {
			*layerErrors = append(*layerErrors, fmt.Sprintf("ingestion check cancelled: %v", err))
			return models.LayerUnknown
		}
		*layerErrors = append(*layerErrors, fmt.Sprintf("ingestion check: %v", err))
		return models.LayerUnknown
	}
	return models.LayerDegraded
}

// checkResults is layer 4: a summarizable output exists. Results generation
// is best-effort, so absence degrades rather than fails.
func (r *Reconciler) checkResults(ctx context.Context, exec *models.WorkflowExecution, layerErrors *[]string) models.LayerStatus {
	available, err := r.platform.ResultsAvailable(ctx, exec.WorkflowID)
	if err != nil {
		*layerErrors = append(*layerErrors, fmt.Sprintf("results check: %v", err))
		return models.LayerUnknown
	}
	if !available {
		return models.LayerDegraded
	}
	return models.LayerPass
}
