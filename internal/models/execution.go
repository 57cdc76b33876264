package models

import (
	"time"
)

// WorkflowStatus is the lifecycle state of a tracked workflow execution.
type WorkflowStatus string

const (
	WorkflowStatusPending   WorkflowStatus = "pending"
	WorkflowStatusRunning   WorkflowStatus = "running"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusFailed    WorkflowStatus = "failed"
)

// Terminal reports whether the status is a terminal state. Terminal states
// are monotonic: once reached, later callbacks never move the record back.
func (s WorkflowStatus) Terminal() bool {
	return s == WorkflowStatusCompleted || s == WorkflowStatusFailed
}

// WorkflowExecution is the mutable aggregate for one triggered workflow,
// keyed by WorkflowID. Concurrent callback updates are last-writer-wins.
type WorkflowExecution struct {
	WorkflowID       string         `json:"workflow_id" db:"workflow_id"`
	WorkflowName     string         `json:"workflow_name" db:"workflow_name"`
	Status           WorkflowStatus `json:"status" db:"status"`
	CorrelationID    string         `json:"correlation_id" db:"correlation_id"`
	SessionID        string         `json:"session_id,omitempty" db:"session_id"`
	TriggerTimestamp time.Time      `json:"trigger_timestamp" db:"trigger_timestamp"`
	StartedAt        *time.Time     `json:"started_at,omitempty" db:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	FailedAt         *time.Time     `json:"failed_at,omitempty" db:"failed_at"`
	FailureReason    string         `json:"failure_reason,omitempty" db:"failure_reason"`
	EventCount       int            `json:"event_count" db:"event_count"`
}

// Duration returns the execution duration for completed workflows, falling
// back to the trigger timestamp when no agent.started event was seen.
func (e *WorkflowExecution) Duration() (time.Duration, bool) {
	if e.CompletedAt == nil {
		return 0, false
	}
	start := e.TriggerTimestamp
	if e.StartedAt != nil {
		start = *e.StartedAt
	}
	return e.CompletedAt.Sub(start), true
}

// ExecutionStats summarizes executions within a trailing window.
type ExecutionStats struct {
	WindowHours     int     `json:"window_hours"`
	Pending         int     `json:"pending"`
	Running         int     `json:"running"`
	Completed       int     `json:"completed"`
	Failed          int     `json:"failed"`
	AvgDurationMS   int64   `json:"avg_duration_ms"`
	SuccessRate     float64 `json:"success_rate"`
	TotalInWindow   int     `json:"total_in_window"`
	StaleAsFailed   int     `json:"stale_as_failed"`
}

// AgentStatus is the last known state of one OPAL agent.
type AgentStatus string

const (
	AgentStatusIdle      AgentStatus = "idle"
	AgentStatusStarting  AgentStatus = "starting"
	AgentStatusRunning   AgentStatus = "running"
	AgentStatusCompleted AgentStatus = "completed"
	AgentStatusFailed    AgentStatus = "failed"
	AgentStatusTimeout   AgentStatus = "timeout"
	AgentStatusRetrying  AgentStatus = "retrying"
)

// AgentStatusSnapshot is the latest-only status projection for one agent.
// At most one snapshot exists per agent; every new event overwrites it.
type AgentStatusSnapshot struct {
	AgentID             string      `json:"agent_id"`
	AgentName           string      `json:"agent_name,omitempty"`
	Status              AgentStatus `json:"status"`
	LastUpdated         time.Time   `json:"last_updated"`
	LastExecutionTimeMS *int64      `json:"last_execution_time_ms,omitempty"`
	LastError           *string     `json:"last_error,omitempty"`
}
