package store

import (
	"context"
	"errors"
	"time"

	"github.com/crewgate/crewgate/internal/model"
)

// ErrNotFound is returned when no job exists for the given identifier.
var ErrNotFound = errors.New("job not found")

// ErrInvalidTransition is returned when a status change would regress the job
// lifecycle, including any write to a record that already reached a terminal state.
var ErrInvalidTransition = errors.New("invalid status transition")

// JobStats holds aggregate execution statistics.
type JobStats struct {
	Total         int            `json:"total"`
	CountByStatus map[string]int `json:"count_by_status"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// Store defines the job registry operations. Implementations must be safe for
// concurrent use: the runner and request handlers touch the same records from
// different goroutines.
type Store interface {
	// CreateJob inserts a new pending record, visible to reads immediately.
	CreateJob(ctx context.Context, j *model.Job) error

	// GetJob returns the record for id, or ErrNotFound.
	GetJob(ctx context.Context, id string) (*model.Job, error)

	// ListJobs returns all records in insertion order.
	ListJobs(ctx context.Context) ([]*model.Job, error)

	// UpdateJobStatus transitions a record's status. Moving to running sets
	// started_at; moving to a terminal status sets completed_at.
	UpdateJobStatus(ctx context.Context, id, status string) error

	// UpdateJob writes a terminal outcome: status, result, and error are
	// taken from j; duration and timestamps left nil keep their stored value.
	UpdateJob(ctx context.Context, j *model.Job) error

	// DeleteJob removes the record for id, or returns ErrNotFound. It does
	// not stop in-flight execution.
	DeleteJob(ctx context.Context, id string) error

	// GetJobStats returns aggregate counts and the average duration of
	// finished jobs.
	GetJobStats(ctx context.Context) (*JobStats, error)

	// DeleteFinishedBefore removes terminal records whose completed_at is
	// before cutoff and reports how many were removed.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error)

	Close() error
}
