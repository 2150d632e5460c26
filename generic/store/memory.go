// Package store provides RunStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/leave-ledger/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	runs []generic.RefreshRun
	byID map[generic.RunID]int
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[generic.RunID]int)}
}

// SaveRefreshRun appends a run. Append-only.
func (m *Memory) SaveRefreshRun(_ context.Context, run generic.RefreshRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Binary search for insertion point keeps runs ordered by start time
	i := sort.Search(len(m.runs), func(i int) bool {
		return m.runs[i].StartedAt.After(run.StartedAt)
	})
	m.runs = append(m.runs, generic.RefreshRun{})
	copy(m.runs[i+1:], m.runs[i:])
	m.runs[i] = run

	m.reindexLocked()
	return nil
}

func (m *Memory) reindexLocked() {
	for i, r := range m.runs {
		m.byID[r.ID] = i
	}
}

// ListRefreshRuns returns newest first.
func (m *Memory) ListRefreshRuns(_ context.Context, limit int) ([]generic.RefreshRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.runs)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]generic.RefreshRun, 0, n)
	for i := len(m.runs) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, m.runs[i])
	}
	return result, nil
}

func (m *Memory) GetRefreshRun(_ context.Context, id generic.RunID) (*generic.RefreshRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return nil, generic.ErrRunNotFound
	}
	run := m.runs[i]
	return &run, nil
}

// Len is the number of stored runs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}
