package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/freshreach/opal-sync-monitor/internal/models"
)

// AppendEvent inserts one webhook event. Events are immutable once written.
func (s *Postgres) AppendEvent(ctx context.Context, ev *models.WebhookEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO webhook_events
			(id, event_type, workflow_id, workflow_name, agent_id, agent_name,
			 session_id, correlation_id, received_at, success,
			 processing_time_ms, error_message, quarantined, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, ev.ID, ev.EventType, ev.WorkflowID, ev.WorkflowName, ev.AgentID, ev.AgentName,
		ev.SessionID, ev.CorrelationID, ev.ReceivedAt, ev.Success,
		ev.ProcessingTimeMS, ev.ErrorMessage, ev.Quarantined, ev.Payload)

	if err != nil {
		return fmt.Errorf("append webhook event: %w", err)
	}
	return nil
}

// ListEventsByWorkflow returns all stored events for one workflow, oldest
// first. Quarantined events are excluded; they carry no tracker semantics.
func (s *Postgres) ListEventsByWorkflow(ctx context.Context, workflowID string) ([]models.WebhookEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, event_type, workflow_id, workflow_name, agent_id, agent_name,
		       session_id, correlation_id, received_at, success,
		       processing_time_ms, error_message, quarantined, payload
		FROM webhook_events
		WHERE workflow_id = $1 AND quarantined = FALSE
		ORDER BY received_at ASC
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("query events for workflow %s: %w", workflowID, err)
	}
	defer rows.Close()

	var events []models.WebhookEvent
	for rows.Next() {
		var ev models.WebhookEvent
		if err := rows.Scan(
			&ev.ID, &ev.EventType, &ev.WorkflowID, &ev.WorkflowName, &ev.AgentID, &ev.AgentName,
			&ev.SessionID, &ev.CorrelationID, &ev.ReceivedAt, &ev.Success,
			&ev.ProcessingTimeMS, &ev.ErrorMessage, &ev.Quarantined, &ev.Payload,
		); err != nil {
			return nil, fmt.Errorf("scan webhook event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook events: %w", err)
	}

	return events, nil
}

// LatestEventTime returns the received_at of the most recent event, or
// models.ErrNotFound when the store is empty. The health aggregator uses it
// for the webhook-recency probe.
func (s *Postgres) LatestEventTime(ctx context.Context) (time.Time, error) {
	var latest time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT received_at FROM webhook_events ORDER BY received_at DESC LIMIT 1`,
	).Scan(&latest)

	if err != nil {
		if err == pgx.ErrNoRows {
			return time.Time{}, models.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("query latest event time: %w", err)
	}
	return latest, nil
}

// DeleteEventsBefore removes events older than the horizon and returns the
// number of rows dropped. Driven by the retention cron.
func (s *Postgres) DeleteEventsBefore(ctx context.Context, horizon time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM webhook_events WHERE received_at < $1`, horizon)
	if err != nil {
		return 0, fmt.Errorf("delete events before %s: %w", horizon.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}
