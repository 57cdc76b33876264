package store

import (
	"sync"

	"github.com/freshreach/opal-sync-monitor/internal/models"
)

// SnapshotStore is the single-writer-per-key state store behind the agent
// status tracker. Keeping it an interface lets the in-memory map be swapped
// for a distributed cache without touching call sites.
type SnapshotStore interface {
	Get(agentID string) (models.AgentStatusSnapshot, bool)
	Set(agentID string, snap models.AgentStatusSnapshot)
	All() map[string]models.AgentStatusSnapshot
}

// MemorySnapshotStore keeps agent snapshots in a mutex-guarded map. History
// is not retained here; it lives in the event store.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]models.AgentStatusSnapshot
}

// NewMemorySnapshotStore creates an empty in-memory snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		snapshots: make(map[string]models.AgentStatusSnapshot),
	}
}

func (m *MemorySnapshotStore) Get(agentID string) (models.AgentStatusSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[agentID]
	return snap, ok
}

func (m *MemorySnapshotStore) Set(agentID string, snap models.AgentStatusSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[agentID] = snap
}

// All returns a copy of the snapshot map so callers can iterate without
// holding the lock.
func (m *MemorySnapshotStore) All() map[string]models.AgentStatusSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]models.AgentStatusSnapshot, len(m.snapshots))
	for id, snap := range m.snapshots {
		out[id] = snap
	}
	return out
}
