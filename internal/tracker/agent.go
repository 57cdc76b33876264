package tracker

import (
	"time"

	"github.com/freshreach/opal-sync-monitor/internal/models"
	"github.com/freshreach/opal-sync-monitor/internal/store"
)

// AgentTracker maintains the latest known status per agent, independent of
// which workflow triggered it. It is a current-state cache only; history
// lives in the event store.
type AgentTracker struct {
	snapshots store.SnapshotStore
}

// NewAgentTracker creates an agent tracker on the given snapshot store.
func NewAgentTracker(snapshots store.SnapshotStore) *AgentTracker {
	return &AgentTracker{snapshots: snapshots}
}

// UpdateStatus overwrites the snapshot for an agent. It always succeeds.
func (t *AgentTracker) UpdateStatus(agentID, agentName string, status models.AgentStatus, timestamp time.Time, executionTimeMS *int64, lastError *string) {
	snap := models.AgentStatusSnapshot{
		AgentID:     agentID,
		AgentName:   agentName,
		Status:      status,
		LastUpdated: timestamp,
	}

	// Preserve the previous execution time and error when the new event
	// carries none, so dashboards keep showing the last known values.
	if prev, ok := t.snapshots.Get(agentID); ok {
		if executionTimeMS == nil {
			executionTimeMS = prev.LastExecutionTimeMS
		}
		if lastError == nil && status != models.AgentStatusCompleted {
			lastError = prev.LastError
		}
		if agentName == "" {
			snap.AgentName = prev.AgentName
		}
	}
	snap.LastExecutionTimeMS = executionTimeMS
	snap.LastError = lastError

	t.snapshots.Set(agentID, snap)
}

// GetLatestAgentStatuses returns the full snapshot map.
func (t *AgentTracker) GetLatestAgentStatuses() map[string]models.AgentStatusSnapshot {
	return t.snapshots.All()
}

// Summary counts agents per status bucket for dashboard rollups.
func (t *AgentTracker) Summary() map[models.AgentStatus]int {
	summary := make(map[models.AgentStatus]int)
	for _, snap := range t.snapshots.All() {
		summary[snap.Status]++
	}
	return summary
}
