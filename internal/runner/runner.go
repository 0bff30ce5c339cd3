// Package runner executes jobs out-of-band from the request/response cycle.
// A bounded worker pool drains a queue of submitted jobs, drives each one
// through the crew provider exactly once, and reports the outcome into the
// store. Once dispatched a job cannot be aborted; deleting its record only
// removes tracking metadata.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crewgate/crewgate/internal/crew"
	"github.com/crewgate/crewgate/internal/model"
	"github.com/crewgate/crewgate/internal/store"
)

// ErrQueueFull is returned by Submit when the job queue is saturated.
var ErrQueueFull = errors.New("job queue is full")

// Pool defaults, used when configuration supplies non-positive values.
const (
	DefaultWorkers    = 4
	DefaultQueueDepth = 64
)

// task is what actually travels through the queue: the runner holds only the
// identifier and the inputs, never the record itself.
type task struct {
	id     string
	inputs map[string]any
}

// Runner is the asynchronous execution wrapper around the crew provider.
type Runner struct {
	store    store.Store
	provider crew.Provider
	logger   *slog.Logger
	queue    chan task
	workers  int
	wg       sync.WaitGroup
}

// New creates a runner. provider may be nil when the service starts degraded;
// Submit then refuses jobs with crew.ErrNotLoaded.
func New(s store.Store, p crew.Provider, logger *slog.Logger, workers, queueDepth int) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	return &Runner{
		store:    s,
		provider: p,
		logger:   logger,
		queue:    make(chan task, queueDepth),
		workers:  workers,
	}
}

// Start launches the worker pool.
func (r *Runner) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for t := range r.queue {
				r.execute(t)
			}
		}()
	}
}

// Stop closes the queue and blocks until in-flight jobs finish. Submit must
// not be called afterwards.
func (r *Runner) Stop() {
	close(r.queue)
	r.wg.Wait()
}

// Submit stores a pending record for the job and enqueues it for execution.
// The record is visible to reads before Submit returns.
func (r *Runner) Submit(ctx context.Context, j *model.Job) error {
	if r.provider == nil {
		return crew.ErrNotLoaded
	}

	if err := r.store.CreateJob(ctx, j); err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	select {
	case r.queue <- task{id: j.ID, inputs: j.Inputs}:
	default:
		// The record already exists; fail it so it does not sit pending forever.
		r.finishFailed(j.ID, ErrQueueFull.Error())
		return ErrQueueFull
	}

	jobsSubmitted.Inc()
	return nil
}

// ExecuteSync runs the crew on the caller's context without touching the
// registry. Used by the blocking submission endpoint.
func (r *Runner) ExecuteSync(ctx context.Context, inputs map[string]any) (string, error) {
	if r.provider == nil {
		return "", crew.ErrNotLoaded
	}
	return r.provider.Execute(ctx, inputs)
}

// execute runs a job's lifecycle on a worker, from running to its terminal state.
func (r *Runner) execute(t task) {
	if err := r.store.UpdateJobStatus(context.Background(), t.id, model.StatusRunning); err != nil {
		// The record was deleted while queued; there is nothing to report into.
		r.logger.Warn("job skipped before start", "job_id", t.id, "error", err)
		return
	}

	start := time.Now()
	result, err := r.provider.Execute(context.Background(), t.inputs)
	durationMS := int(time.Since(start).Milliseconds())
	jobDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		r.logger.Error("job failed", "job_id", t.id, "duration_ms", durationMS, "error", err)
		jobsFinished.WithLabelValues(model.StatusFailed).Inc()
		r.finishFailed(t.id, err.Error())
		return
	}

	now := time.Now().UTC()
	completed := &model.Job{
		ID:          t.id,
		Status:      model.StatusCompleted,
		Result:      result,
		DurationMS:  &durationMS,
		CompletedAt: &now,
	}
	if err := r.store.UpdateJob(context.Background(), completed); err != nil {
		r.logger.Error("failed to update completed job", "job_id", t.id, "error", err)
		return
	}

	jobsFinished.WithLabelValues(model.StatusCompleted).Inc()
	r.logger.Info("job completed", "job_id", t.id, "duration_ms", durationMS)
}

// finishFailed marks a job as failed with the given error message.
func (r *Runner) finishFailed(id, errMsg string) {
	now := time.Now().UTC()
	j := &model.Job{
		ID:          id,
		Status:      model.StatusFailed,
		Error:       errMsg,
		CompletedAt: &now,
	}
	if err := r.store.UpdateJob(context.Background(), j); err != nil {
		r.logger.Error("failed to update failed job", "job_id", id, "error", err)
	}
}
