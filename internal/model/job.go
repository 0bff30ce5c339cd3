package model

import "time"

// Job status constants.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// validTransitions maps each status to the set of statuses it may transition to.
// Completed and failed are terminal: nothing leaves them.
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusRunning: true,
		StatusFailed:  true,
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Terminal reports whether the given status is final.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Job represents one crew execution, tracked from submission to terminal outcome.
// Exactly one of Result/Error is populated, and only once CompletedAt is set.
type Job struct {
	ID          string         `json:"job_id"`
	Status      string         `json:"status"`
	Inputs      map[string]any `json:"inputs,omitempty"`
	Result      string         `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	DurationMS  *int           `json:"duration_ms,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at"`
}

// Clone returns a copy of the job so callers never share store-owned memory.
func (j *Job) Clone() *Job {
	c := *j
	if j.Inputs != nil {
		c.Inputs = make(map[string]any, len(j.Inputs))
		for k, v := range j.Inputs {
			c.Inputs[k] = v
		}
	}
	return &c
}
