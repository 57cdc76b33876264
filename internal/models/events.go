package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types delivered by the OPAL webhook.
const (
	EventTypeWorkflowTriggered = "workflow.triggered"
	EventTypeWorkflowCompleted = "workflow.completed"
	EventTypeWorkflowFailed    = "workflow.failed"
	EventTypeAgentStarted      = "agent.started"
	EventTypeAgentCompleted    = "agent.completed"
)

// WebhookEvent is the immutable event-store record for one inbound OPAL
// callback. Rows are append-only and removed only by the retention cron.
type WebhookEvent struct {
	ID               string          `json:"id" db:"id"`
	EventType        string          `json:"event_type" db:"event_type"`
	WorkflowID       string          `json:"workflow_id" db:"workflow_id"`
	WorkflowName     string          `json:"workflow_name,omitempty" db:"workflow_name"`
	AgentID          string          `json:"agent_id,omitempty" db:"agent_id"`
	AgentName        string          `json:"agent_name,omitempty" db:"agent_name"`
	SessionID        string          `json:"session_id,omitempty" db:"session_id"`
	CorrelationID    string          `json:"correlation_id,omitempty" db:"correlation_id"`
	ReceivedAt       time.Time       `json:"received_at" db:"received_at"`
	Success          bool            `json:"success" db:"success"`
	ProcessingTimeMS *int64          `json:"processing_time_ms,omitempty" db:"processing_time_ms"`
	ErrorMessage     *string         `json:"error_message,omitempty" db:"error_message"`
	Quarantined      bool            `json:"quarantined,omitempty" db:"quarantined"`
	Payload          json.RawMessage `json:"payload,omitempty" db:"payload"`
}

// webhookEnvelope is the raw JSON shape OPAL posts. Timestamp and received_at
// are both accepted; some platform versions send one, some the other.
type webhookEnvelope struct {
	EventType        string          `json:"event_type"`
	WorkflowID       string          `json:"workflow_id"`
	WorkflowName     string          `json:"workflow_name"`
	AgentID          string          `json:"agent_id"`
	AgentName        string          `json:"agent_name"`
	SessionID        string          `json:"session_id"`
	CorrelationID    string          `json:"correlation_id"`
	Success          *bool           `json:"success"`
	Timestamp        string          `json:"timestamp"`
	ReceivedAt       string          `json:"received_at"`
	ProcessingTimeMS *int64          `json:"processing_time_ms"`
	ErrorMessage     *string         `json:"error_message"`
	Payload          json.RawMessage `json:"payload"`
}

// knownEventTypes gates dispatch; anything else is quarantined at the
// deserialization boundary rather than interpreted ad hoc downstream.
var knownEventTypes = map[string]bool{
	EventTypeWorkflowTriggered: true,
	EventTypeWorkflowCompleted: true,
	EventTypeWorkflowFailed:    true,
	EventTypeAgentStarted:      true,
	EventTypeAgentCompleted:    true,
}

// KnownEventType reports whether the trackers understand this event type.
func KnownEventType(eventType string) bool {
	return knownEventTypes[eventType]
}

// ParseWebhookEvent decodes an inbound webhook body into a WebhookEvent.
// Unknown event types parse successfully but come back with Quarantined set,
// so they can still be retained as evidence. A missing workflow_id on a
// workflow-scoped event is a hard error.
func ParseWebhookEvent(body []byte, now time.Time) (*WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}

	if env.EventType == "" {
		return nil, fmt.Errorf("webhook event missing event_type")
	}

	ev := &WebhookEvent{
		EventType:        env.EventType,
		WorkflowID:       env.WorkflowID,
		WorkflowName:     env.WorkflowName,
		AgentID:          env.AgentID,
		AgentName:        env.AgentName,
		SessionID:        env.SessionID,
		CorrelationID:    env.CorrelationID,
		ReceivedAt:       now,
		Success:          env.Success == nil || *env.Success,
		ProcessingTimeMS: env.ProcessingTimeMS,
		ErrorMessage:     env.ErrorMessage,
		Payload:          env.Payload,
	}

	for _, ts := range []string{env.ReceivedAt, env.Timestamp} {
		if ts == "" {
			continue
		}
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			ev.ReceivedAt = parsed
			break
		}
	}

	if !KnownEventType(env.EventType) {
		ev.Quarantined = true
		return ev, nil
	}

	if env.WorkflowID == "" {
		return nil, fmt.Errorf("webhook event %s missing workflow_id", env.EventType)
	}

	switch env.EventType {
	case EventTypeAgentStarted, EventTypeAgentCompleted:
		if env.AgentID == "" {
			return nil, fmt.Errorf("webhook event %s missing agent_id", env.EventType)
		}
	}

	return ev, nil
}
