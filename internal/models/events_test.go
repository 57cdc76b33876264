package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookEvent(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	t.Run("minimal trigger leaves optional fields nil", func(t *testing.T) {
		// A routine trigger carries no processing time, error, or payload.
		// The parsed record keeps those nil so the store writes SQL NULLs;
		// the schema must tolerate them.
		body := []byte(`{
			"event_type": "workflow.triggered",
			"workflow_id": "wf-1",
			"workflow_name": "force_sync",
			"correlation_id": "corr-1",
			"timestamp": "2026-08-30T11:59:00Z"
		}`)

		ev, err := ParseWebhookEvent(body, now)
		require.NoError(t, err)

		assert.Equal(t, EventTypeWorkflowTriggered, ev.EventType)
		assert.Equal(t, "wf-1", ev.WorkflowID)
		assert.True(t, ev.Success)
		assert.False(t, ev.Quarantined)
		assert.Nil(t, ev.ProcessingTimeMS)
		assert.Nil(t, ev.ErrorMessage)
		assert.Nil(t, ev.Payload)
	})

	t.Run("optional fields carried through when present", func(t *testing.T) {
		body := []byte(`{
			"event_type": "agent.completed",
			"workflow_id": "wf-1",
			"agent_id": "geo_audit",
			"processing_time_ms": 420,
			"success": false,
			"error_message": "agent timed out",
			"payload": {"attempt": 2}
		}`)

		ev, err := ParseWebhookEvent(body, now)
		require.NoError(t, err)

		require.NotNil(t, ev.ProcessingTimeMS)
		assert.Equal(t, int64(420), *ev.ProcessingTimeMS)
		require.NotNil(t, ev.ErrorMessage)
		assert.Equal(t, "agent timed out", *ev.ErrorMessage)
		assert.JSONEq(t, `{"attempt": 2}`, string(ev.Payload))
		assert.False(t, ev.Success)
	})

	t.Run("unknown event type quarantined", func(t *testing.T) {
		body := []byte(`{"event_type": "workflow.paused", "workflow_id": "wf-1"}`)

		ev, err := ParseWebhookEvent(body, now)
		require.NoError(t, err)
		assert.True(t, ev.Quarantined)
		assert.False(t, KnownEventType(ev.EventType))
	})

	t.Run("timestamp parsed with receive-time fallback", func(t *testing.T) {
		withTS := []byte(`{"event_type": "workflow.completed", "workflow_id": "wf-1", "timestamp": "2026-08-30T10:00:00Z"}`)
		ev, err := ParseWebhookEvent(withTS, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), ev.ReceivedAt)

		withoutTS := []byte(`{"event_type": "workflow.completed", "workflow_id": "wf-1"}`)
		ev, err = ParseWebhookEvent(withoutTS, now)
		require.NoError(t, err)
		assert.Equal(t, now, ev.ReceivedAt)
	})

	t.Run("missing workflow_id rejected", func(t *testing.T) {
		_, err := ParseWebhookEvent([]byte(`{"event_type": "workflow.triggered"}`), now)
		assert.Error(t, err)
	})

	t.Run("agent event without agent_id rejected", func(t *testing.T) {
		_, err := ParseWebhookEvent([]byte(`{"event_type": "agent.started", "workflow_id": "wf-1"}`), now)
		assert.Error(t, err)
	})
}
