package helpers

import (
	"encoding/json"
	"fmt"
	"time"
)

// OSA agents the default configuration expects to report during a force
// sync run.
var DefaultAgents = []string{
	"strategy_workflow",
	"content_review",
	"audience_suggester",
	"experiment_blueprinter",
	"personalization_idea_generator",
	"geo_audit",
	"cmp_organizer",
}

// TriggeredEvent builds a workflow.triggered webhook payload.
func TriggeredEvent(workflowID string, ts time.Time) map[string]any {
	return map[string]any{
		"event_type":     "workflow.triggered",
		"workflow_id":    workflowID,
		"workflow_name":  "force_sync",
		"correlation_id": "corr-" + workflowID,
		"timestamp":      ts.Format(time.RFC3339),
	}
}

// AgentEvent builds an agent.started or agent.completed webhook payload.
func AgentEvent(eventType, workflowID, agentID string, ts time.Time) map[string]any {
	return map[string]any{
		"event_type":  eventType,
		"workflow_id": workflowID,
		"agent_id":    agentID,
		"agent_name":  agentID,
		"timestamp":   ts.Format(time.RFC3339),
	}
}

// CompletedEvent builds a workflow.completed webhook payload.
func CompletedEvent(workflowID string, ts time.Time) map[string]any {
	return map[string]any{
		"event_type":  "workflow.completed",
		"workflow_id": workflowID,
		"timestamp":   ts.Format(time.RFC3339),
	}
}

// FailedEvent builds a workflow.failed webhook payload with an error message.
func FailedEvent(workflowID, reason string, ts time.Time) map[string]any {
	return map[string]any{
		"event_type":    "workflow.failed",
		"workflow_id":   workflowID,
		"error_message": reason,
		"timestamp":     ts.Format(time.RFC3339),
	}
}

// FullRunEvents builds the complete event sequence for a successful run:
// trigger, started+completed per agent, then workflow completion. Events are
// spaced one second apart so ordering is unambiguous.
func FullRunEvents(workflowID string, start time.Time) []map[string]any {
	events := []map[string]any{TriggeredEvent(workflowID, start)}
	ts := start
	for _, agent := range DefaultAgents {
		ts = ts.Add(time.Second)
		events = append(events, AgentEvent("agent.started", workflowID, agent, ts))
		ts = ts.Add(time.Second)
		events = append(events, AgentEvent("agent.completed", workflowID, agent, ts))
	}
	events = append(events, CompletedEvent(workflowID, ts.Add(time.Second)))
	return events
}

// UniqueWorkflowID returns a workflow id safe to reuse across test runs.
func UniqueWorkflowID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// LoginRequest builds a login payload.
func LoginRequest(email, password string) map[string]any {
	return map[string]any{
		"email":    email,
		"password": password,
	}
}

// ToJSON converts a fixture to a JSON string.
func ToJSON(fixture any) string {
	data, _ := json.Marshal(fixture)
	return string(data)
}
