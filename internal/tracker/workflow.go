package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freshreach/opal-sync-monitor/internal/config"
	"github.com/freshreach/opal-sync-monitor/internal/logger"
	"github.com/freshreach/opal-sync-monitor/internal/models"
)

// ExecutionStore is the durable store the workflow tracker writes through.
type ExecutionStore interface {
	GetExecution(ctx context.Context, workflowID string) (*models.WorkflowExecution, error)
	UpsertExecution(ctx context.Context, e *models.WorkflowExecution) error
	ListExecutionsSince(ctx context.Context, since time.Time) ([]models.WorkflowExecution, error)
	ListActiveExecutions(ctx context.Context) ([]models.WorkflowExecution, error)
}

// WorkflowTracker maintains the lifecycle of each triggered workflow:
// pending -> running -> completed/failed. Terminal states are monotonic.
type WorkflowTracker struct {
	execs  ExecutionStore
	agents *AgentTracker
	cfg    config.TrackerConfig

	// nowFn is swapped in tests to drive the staleness rule with a fake clock.
	nowFn func() time.Time
}

// NewWorkflowTracker creates a workflow tracker.
func NewWorkflowTracker(execs ExecutionStore, agents *AgentTracker, cfg config.TrackerConfig) *WorkflowTracker {
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = 30 * time.Minute
	}
	return &WorkflowTracker{
		execs:  execs,
		agents: agents,
		cfg:    cfg,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// RecordTriggered creates a pending execution for a workflow.triggered
// event. Replays against a still-active execution are a no-op; replays
// against a terminal execution return models.ErrDuplicateWorkflow so the
// webhook layer can reject them.
func (t *WorkflowTracker) RecordTriggered(ctx context.Context, workflowID, workflowName, correlationID string, timestamp time.Time) error {
	existing, err := t.execs.GetExecution(ctx, workflowID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("lookup execution %s: %w", workflowID, err)
	}

	if existing != nil {
		if existing.Status.Terminal() {
			return fmt.Errorf("%w: workflow %s already %s", models.ErrDuplicateWorkflow, workflowID, existing.Status)
		}
		if existing.CorrelationID != correlationID {
			logger.Logger.Warn().
				Str("workflow_id", workflowID).
				Str("correlation_id", correlationID).
				Str("existing_correlation_id", existing.CorrelationID).
				Msg("Trigger replay with different correlation id ignored")
		}
		// Still pending or running: at-least-once delivery noise.
		return nil
	}

	exec := &models.WorkflowExecution{
		WorkflowID:       workflowID,
		WorkflowName:     workflowName,
		Status:           models.WorkflowStatusPending,
		CorrelationID:    correlationID,
		TriggerTimestamp: timestamp,
	}
	if err := t.execs.UpsertExecution(ctx, exec); err != nil {
		return fmt.Errorf("create execution %s: %w", workflowID, err)
	}
	return nil
}

// RecordAgentEvent folds one agent.* event into the execution and always
// updates the agent snapshot, whether or not the workflow is known. Agent
// status is an independent projection.
func (t *WorkflowTracker) RecordAgentEvent(ctx context.Context, ev *models.WebhookEvent) error {
	t.agents.UpdateStatus(ev.AgentID, ev.AgentName, agentStatusForEvent(ev), ev.ReceivedAt, ev.ProcessingTimeMS, ev.ErrorMessage)

	exec, err := t.execs.GetExecution(ctx, ev.WorkflowID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logger.Logger.Warn().
				Str("workflow_id", ev.WorkflowID).
				Str("agent_id", ev.AgentID).
				Msg("Agent event for unknown workflow")
			return nil
		}
		return fmt.Errorf("lookup execution %s: %w", ev.WorkflowID, err)
	}

	if exec.Status.Terminal() {
		// Late agent event after a terminal transition. Layer 2 of the
		// reconciler will see the stored event; the execution row stays frozen.
		logger.Logger.Warn().
			Str("workflow_id", ev.WorkflowID).
			Str("agent_id", ev.AgentID).
			Str("status", string(exec.Status)).
			Msg("Agent event after terminal state ignored")
		return nil
	}

	if exec.Status == models.WorkflowStatusPending {
		exec.Status = models.WorkflowStatusRunning
		ts := ev.ReceivedAt
		exec.StartedAt = &ts
	}
	if ev.SessionID != "" && exec.SessionID == "" {
		exec.SessionID = ev.SessionID
	}
	exec.EventCount++

	if err := t.execs.UpsertExecution(ctx, exec); err != nil {
		return fmt.Errorf("update execution %s: %w", ev.WorkflowID, err)
	}
	return nil
}

// RecordCompleted sets the terminal completed state. Unknown workflow ids
// and repeated terminal events are logged and swallowed: webhook delivery is
// at-least-once and duplicates are expected.
func (t *WorkflowTracker) RecordCompleted(ctx context.Context, workflowID string, timestamp time.Time) error {
	return t.recordTerminal(ctx, workflowID, models.WorkflowStatusCompleted, "", timestamp)
}

// RecordFailed sets the terminal failed state, see RecordCompleted.
func (t *WorkflowTracker) RecordFailed(ctx context.Context, workflowID, reason string, timestamp time.Time) error {
	return t.recordTerminal(ctx, workflowID, models.WorkflowStatusFailed, reason, timestamp)
}

func (t *WorkflowTracker) recordTerminal(ctx context.Context, workflowID string, status models.WorkflowStatus, reason string, timestamp time.Time) error {
	exec, err := t.execs.GetExecution(ctx, workflowID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logger.Logger.Warn().
				Str("workflow_id", workflowID).
				Str("status", string(status)).
				Msg("Terminal event for unknown workflow")
			return nil
		}
		return fmt.Errorf("lookup execution %s: %w", workflowID, err)
	}

	if exec.Status.Terminal() {
		logger.Logger.Warn().
			Str("workflow_id", workflowID).
			Str("status", string(exec.Status)).
			Msg("Duplicate terminal event ignored")
		return nil
	}

	exec.Status = status
	exec.EventCount++
	ts := timestamp
	switch status {
	case models.WorkflowStatusCompleted:
		exec.CompletedAt = &ts
	case models.WorkflowStatusFailed:
		exec.FailedAt = &ts
		exec.FailureReason = reason
	}

	if err := t.execs.UpsertExecution(ctx, exec); err != nil {
		return fmt.Errorf("update execution %s: %w", workflowID, err)
	}
	return nil
}

// GetExecution returns the execution snapshot with the staleness rule
// applied: a workflow running past the configured window is reported as
// failed without mutating the stored row.
func (t *WorkflowTracker) GetExecution(ctx context.Context, workflowID string) (*models.WorkflowExecution, error) {
	exec, err := t.execs.GetExecution(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	derived := *exec
	t.applyStaleness(&derived)
	return &derived, nil
}

// ActiveSessions returns executions still in flight after staleness
// derivation. The sync trigger endpoint uses it to refuse overlapping runs.
func (t *WorkflowTracker) ActiveSessions(ctx context.Context) ([]models.WorkflowExecution, error) {
	execs, err := t.execs.ListActiveExecutions(ctx)
	if err != nil {
		return nil, err
	}

	var active []models.WorkflowExecution
	for i := range execs {
		t.applyStaleness(&execs[i])
		if !execs[i].Status.Terminal() {
			active = append(active, execs[i])
		}
	}
	return active, nil
}

// GetStats summarizes executions in a trailing window with the staleness
// rule applied.
func (t *WorkflowTracker) GetStats(ctx context.Context, windowHours int) (*models.ExecutionStats, error) {
	if windowHours <= 0 {
		windowHours = int(t.cfg.StatsWindow / time.Hour)
		if windowHours <= 0 {
			windowHours = 24
		}
	}

	now := t.nowFn()
	execs, err := t.execs.ListExecutionsSince(ctx, now.Add(-time.Duration(windowHours)*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list executions for stats: %w", err)
	}

	stats := &models.ExecutionStats{WindowHours: windowHours, TotalInWindow: len(execs)}
	var totalDuration time.Duration
	var completed int

	for i := range execs {
		wasRunning := execs[i].Status == models.WorkflowStatusRunning
		t.applyStaleness(&execs[i])

		switch execs[i].Status {
		case models.WorkflowStatusPending:
			stats.Pending++
		case models.WorkflowStatusRunning:
			stats.Running++
		case models.WorkflowStatusCompleted:
			stats.Completed++
			if d, ok := execs[i].Duration(); ok {
				totalDuration += d
				completed++
			}
		case models.WorkflowStatusFailed:
			stats.Failed++
			if wasRunning {
				stats.StaleAsFailed++
			}
		}
	}

	if completed > 0 {
		stats.AvgDurationMS = (totalDuration / time.Duration(completed)).Milliseconds()
	}
	if terminal := stats.Completed + stats.Failed; terminal > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(terminal)
	}

	return stats, nil
}

// applyStaleness derives failed status for executions stuck in running
// longer than StaleAfter. Read-time only; a late completion event can still
// land on the stored row.
func (t *WorkflowTracker) applyStaleness(exec *models.WorkflowExecution) {
	if exec.Status != models.WorkflowStatusRunning {
		return
	}
	start := exec.TriggerTimestamp
	if exec.StartedAt != nil {
		start = *exec.StartedAt
	}
	if t.nowFn().Sub(start) > t.cfg.StaleAfter {
		exec.Status = models.WorkflowStatusFailed
		exec.FailureReason = fmt.Sprintf("presumed failed: running longer than %s", t.cfg.StaleAfter)
	}
}

// agentStatusForEvent maps an agent event onto a snapshot status.
func agentStatusForEvent(ev *models.WebhookEvent) models.AgentStatus {
	switch ev.EventType {
	case models.EventTypeAgentStarted:
		return models.AgentStatusRunning
	case models.EventTypeAgentCompleted:
		if ev.Success {
			return models.AgentStatusCompleted
		}
		return models.AgentStatusFailed
	default:
		return models.AgentStatusIdle
	}
}
