package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/freshreach/opal-sync-monitor/internal/models"
)

const executionColumns = `workflow_id, workflow_name, status, correlation_id, session_id,
	trigger_timestamp, started_at, completed_at, failed_at, failure_reason, event_count`

func scanExecution(row pgx.Row) (*models.WorkflowExecution, error) {
	var e models.WorkflowExecution
	err := row.Scan(
		&e.WorkflowID, &e.WorkflowName, &e.Status, &e.CorrelationID, &e.SessionID,
		&e.TriggerTimestamp, &e.StartedAt, &e.CompletedAt, &e.FailedAt,
		&e.FailureReason, &e.EventCount,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetExecution returns the stored execution for a workflow id, or
// models.ErrNotFound.
func (s *Postgres) GetExecution(ctx context.Context, workflowID string) (*models.WorkflowExecution, error) {
	exec, err := scanExecution(s.pool.QueryRow(ctx,
		`SELECT `+executionColumns+` FROM workflow_executions WHERE workflow_id = $1`,
		workflowID))

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get execution %s: %w", workflowID, err)
	}
	return exec, nil
}

// UpsertExecution writes the full execution row, last-writer-wins.
// Concurrent webhook deliveries for the same workflow can race here; the
// tracker tolerates that via idempotent terminal-state checks.
func (s *Postgres) UpsertExecution(ctx context.Context, e *models.WorkflowExecution) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO workflow_executions (`+executionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (workflow_id) DO UPDATE SET
			workflow_name  = EXCLUDED.workflow_name,
			status         = EXCLUDED.status,
			correlation_id = EXCLUDED.correlation_id,
			session_id     = EXCLUDED.session_id,
			started_at     = EXCLUDED.started_at,
			completed_at   = EXCLUDED.completed_at,
			failed_at      = EXCLUDED.failed_at,
			failure_reason = EXCLUDED.failure_reason,
			event_count    = EXCLUDED.event_count
	`, e.WorkflowID, e.WorkflowName, e.Status, e.CorrelationID, e.SessionID,
		e.TriggerTimestamp, e.StartedAt, e.CompletedAt, e.FailedAt,
		e.FailureReason, e.EventCount)

	if err != nil {
		return fmt.Errorf("upsert execution %s: %w", e.WorkflowID, err)
	}
	return nil
}

// ListExecutionsSince returns executions triggered at or after the cutoff,
// newest first.
func (s *Postgres) ListExecutionsSince(ctx context.Context, since time.Time) ([]models.WorkflowExecution, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+executionColumns+`
		FROM workflow_executions
		WHERE trigger_timestamp >= $1
		ORDER BY trigger_timestamp DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query executions since %s: %w", since.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// ListActiveExecutions returns executions still in pending or running state.
// The staleness rule is applied by the tracker at read time, not here.
func (s *Postgres) ListActiveExecutions(ctx context.Context) ([]models.WorkflowExecution, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+executionColumns+`
		FROM workflow_executions
		WHERE status IN ('pending', 'running')
		ORDER BY trigger_timestamp DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query active executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// ListCompletedUnvalidated selects completed executions that have no
// validation record newer than their completion, oldest first, bounded by
// limit. This is the reconciler's work queue.
func (s *Postgres) ListCompletedUnvalidated(ctx context.Context, limit int) ([]models.WorkflowExecution, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+executionColumns+`
		FROM workflow_executions e
		WHERE e.status = 'completed'
		  AND NOT EXISTS (
			SELECT 1 FROM integration_validations v
			WHERE v.force_sync_workflow_id = e.workflow_id
			  AND v.validated_at > e.completed_at
		  )
		ORDER BY e.completed_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unvalidated executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// CountActiveExecutions is the cheap variant of ListActiveExecutions used by
// the health aggregator.
func (s *Postgres) CountActiveExecutions(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM workflow_executions WHERE status IN ('pending', 'running')`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active executions: %w", err)
	}
	return count, nil
}

func collectExecutions(rows pgx.Rows) ([]models.WorkflowExecution, error) {
	var execs []models.WorkflowExecution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		execs = append(execs, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return execs, nil
}
