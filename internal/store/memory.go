package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crewgate/crewgate/internal/model"
)

// Compile-time interface satisfaction check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps jobs in a mutex-guarded map with insertion order preserved.
// It is the default backend; all job history is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]*model.Job
	order []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*model.Job)}
}

// Close implements Store; there is nothing to release.
func (m *MemoryStore) Close() error { return nil }

// CreateJob inserts a new job record.
func (m *MemoryStore) CreateJob(_ context.Context, j *model.Job) error {
	if j.ID == "" {
		return fmt.Errorf("job id is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[j.ID]; ok {
		return fmt.Errorf("job %s already exists", j.ID)
	}
	m.jobs[j.ID] = j.Clone()
	m.order = append(m.order, j.ID)
	return nil
}

// GetJob retrieves a job by ID. The returned record is a copy; mutations by
// the caller never reach the store.
func (m *MemoryStore) GetJob(_ context.Context, id string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j.Clone(), nil
}

// ListJobs returns all job records in insertion order.
func (m *MemoryStore) ListJobs(_ context.Context) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*model.Job, 0, len(m.order))
	for _, id := range m.order {
		if j, ok := m.jobs[id]; ok {
			jobs = append(jobs, j.Clone())
		}
	}
	return jobs, nil
}

// UpdateJobStatus transitions a job's status, stamping started_at on the move
// to running and completed_at on a terminal move.
func (m *MemoryStore) UpdateJobStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !model.ValidTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	j.Status = status
	switch {
	case status == model.StatusRunning:
		j.StartedAt = &now
	case model.Terminal(status):
		j.CompletedAt = &now
	}
	return nil
}

// UpdateJob applies a terminal outcome to the stored record. Writes are
// last-writer-wins per field.
func (m *MemoryStore) UpdateJob(_ context.Context, in *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[in.ID]
	if !ok {
		return ErrNotFound
	}
	if !model.ValidTransition(j.Status, in.Status) {
		return ErrInvalidTransition
	}

	j.Status = in.Status
	j.Result = in.Result
	j.Error = in.Error
	if in.DurationMS != nil {
		j.DurationMS = in.DurationMS
	}
	if in.StartedAt != nil {
		j.StartedAt = in.StartedAt
	}
	if in.CompletedAt != nil {
		j.CompletedAt = in.CompletedAt
	}
	return nil
}

// DeleteJob removes the record for id.
func (m *MemoryStore) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(m.jobs, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetJobStats aggregates counts and average duration over all records.
func (m *MemoryStore) GetJobStats(_ context.Context) (*JobStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &JobStats{CountByStatus: make(map[string]int)}
	var durSum, durCount int
	for _, j := range m.jobs {
		stats.Total++
		stats.CountByStatus[j.Status]++
		if j.DurationMS != nil {
			durSum += *j.DurationMS
			durCount++
		}
	}
	if durCount > 0 {
		stats.AvgDurationMS = float64(durSum) / float64(durCount)
	}
	return stats, nil
}

// DeleteFinishedBefore evicts terminal records older than cutoff.
func (m *MemoryStore) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int
	kept := m.order[:0]
	for _, id := range m.order {
		j := m.jobs[id]
		if j != nil && model.Terminal(j.Status) && j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return deleted, nil
}
