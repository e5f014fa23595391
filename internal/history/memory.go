package history

import (
	"context"
	"fmt"
	"slices"
	"sync"

	apperrors "github.com/ricesearch/matcheval/internal/pkg/errors"
)

// MemoryStore keeps runs in memory, dropping the oldest beyond maxRuns.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]*Run
	order   []string
	maxRuns int
}

// NewMemoryStore creates an in-memory store. maxRuns <= 0 keeps everything.
func NewMemoryStore(maxRuns int) *MemoryStore {
	return &MemoryStore{
		runs:    make(map[string]*Run),
		maxRuns: maxRuns,
	}
}

func (m *MemoryStore) Save(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[run.ID]; !exists {
		m.order = append(m.order, run.ID)
	}
	m.runs[run.ID] = cloneRun(run)

	for m.maxRuns > 0 && len(m.order) > m.maxRuns {
		delete(m.runs, m.order[0])
		m.order = m.order[1:]
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, apperrors.NotFoundError(fmt.Sprintf("run %s", id))
	}
	return cloneRun(run), nil
}

func (m *MemoryStore) List(_ context.Context, limit int) ([]*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := slices.Clone(m.order)
	slices.Reverse(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	runs := make([]*Run, 0, len(ids))
	for _, id := range ids {
		runs = append(runs, cloneRun(m.runs[id]))
	}
	return runs, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[id]; !ok {
		return apperrors.NotFoundError(fmt.Sprintf("run %s", id))
	}
	delete(m.runs, id)
	m.order = slices.DeleteFunc(m.order, func(other string) bool { return other == id })
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
