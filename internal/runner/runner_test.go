package runner_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/crewgate/crewgate/internal/model"
	"github.com/crewgate/crewgate/internal/runner"
	"github.com/crewgate/crewgate/internal/store"
)

// stubProvider is a configurable crew provider for runner tests.
type stubProvider struct {
	result string
	err    error
	delay  time.Duration

	// block, when non-nil, makes Execute wait until the channel is closed.
	block chan struct{}

	mu    sync.Mutex
	calls int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Execute(ctx context.Context, _ map[string]any) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.block != nil {
		<-p.block
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return "", p.err
	}
	return p.result, nil
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newTestRunner(t *testing.T, p *stubProvider, workers, queueDepth int) (*runner.Runner, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	r := runner.New(s, p, logger, workers, queueDepth)
	r.Start()
	t.Cleanup(r.Stop)
	return r, s
}

func makeJob() *model.Job {
	return &model.Job{
		ID:        model.NewID(),
		Status:    model.StatusPending,
		Inputs:    map[string]any{"topic": "x"},
		CreatedAt: time.Now().UTC(),
	}
}

// waitForStatus polls the store until the job reaches the expected status.
func waitForStatus(t *testing.T, s store.Store, id, expected string, timeout time.Duration) *model.Job {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		j, err := s.GetJob(context.Background(), id)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if j.Status == expected {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach status %q within %v", id, expected, timeout)
	return nil
}

func TestSubmitHappyPath(t *testing.T) {
	p := &stubProvider{result: "crew report", delay: 10 * time.Millisecond}
	r, s := newTestRunner(t, p, 2, 16)

	j := makeJob()
	if err := r.Submit(context.Background(), j); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Visible as pending or running immediately, never terminal.
	got, err := s.GetJob(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if model.Terminal(got.Status) {
		t.Errorf("status = %q immediately after submit, want pending or running", got.Status)
	}
	if got.CompletedAt != nil {
		t.Errorf("CompletedAt = %v before terminal state, want nil", got.CompletedAt)
	}

	completed := waitForStatus(t, s, j.ID, model.StatusCompleted, 5*time.Second)
	if completed.Result != "crew report" {
		t.Errorf("Result = %q, want %q", completed.Result, "crew report")
	}
	if completed.Error != "" {
		t.Errorf("Error = %q, want empty", completed.Error)
	}
	if completed.CompletedAt == nil {
		t.Error("CompletedAt is nil")
	}
	if completed.StartedAt == nil {
		t.Error("StartedAt is nil")
	}
	if completed.DurationMS == nil {
		t.Error("DurationMS is nil")
	}
	if p.callCount() != 1 {
		t.Errorf("provider called %d times, want exactly once", p.callCount())
	}
}

func TestSubmitProviderFailure(t *testing.T) {
	p := &stubProvider{err: errors.New("crew crashed")}
	r, s := newTestRunner(t, p, 2, 16)

	j := makeJob()
	if err := r.Submit(context.Background(), j); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	failed := waitForStatus(t, s, j.ID, model.StatusFailed, 5*time.Second)
	if failed.Error != "crew crashed" {
		t.Errorf("Error = %q, want %q", failed.Error, "crew crashed")
	}
	if failed.Result != "" {
		t.Errorf("Result = %q, want empty on failure", failed.Result)
	}
	if failed.CompletedAt == nil {
		t.Error("CompletedAt is nil")
	}
}

func TestSubmitWithoutProvider(t *testing.T) {
	s := store.NewMemoryStore()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	r := runner.New(s, nil, logger, 1, 4)
	r.Start()
	t.Cleanup(r.Stop)

	err := r.Submit(context.Background(), makeJob())
	if err == nil {
		t.Fatal("Submit succeeded without a provider")
	}

	jobs, _ := s.ListJobs(context.Background())
	if len(jobs) != 0 {
		t.Errorf("len(jobs) = %d, want 0 when provider missing", len(jobs))
	}
}

func TestSubmitQueueFull(t *testing.T) {
	block := make(chan struct{})
	p := &stubProvider{result: "ok", block: block}
	r, s := newTestRunner(t, p, 1, 1)

	// First job occupies the single worker.
	first := makeJob()
	if err := r.Submit(context.Background(), first); err != nil {
		t.Fatalf("Submit first: %v", err)
	}
	waitForStatus(t, s, first.ID, model.StatusRunning, 5*time.Second)

	// Second job fills the queue buffer.
	second := makeJob()
	if err := r.Submit(context.Background(), second); err != nil {
		t.Fatalf("Submit second: %v", err)
	}

	// Third submission must be rejected and its record failed.
	third := makeJob()
	err := r.Submit(context.Background(), third)
	if !errors.Is(err, runner.ErrQueueFull) {
		t.Fatalf("Submit third error = %v, want ErrQueueFull", err)
	}
	rejected, getErr := s.GetJob(context.Background(), third.ID)
	if getErr != nil {
		t.Fatalf("GetJob rejected: %v", getErr)
	}
	if rejected.Status != model.StatusFailed {
		t.Errorf("rejected status = %q, want failed", rejected.Status)
	}

	// Release the worker; the first two jobs complete.
	close(block)
	waitForStatus(t, s, first.ID, model.StatusCompleted, 5*time.Second)
	waitForStatus(t, s, second.ID, model.StatusCompleted, 5*time.Second)
}

func TestSubmitConcurrentJobsIndependent(t *testing.T) {
	p := &stubProvider{result: "done", delay: 20 * time.Millisecond}
	r, s := newTestRunner(t, p, 4, 16)

	ids := make([]string, 5)
	for i := range ids {
		j := makeJob()
		ids[i] = j.ID
		if err := r.Submit(context.Background(), j); err != nil {
			t.Fatalf("Submit[%d]: %v", i, err)
		}
	}

	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate job id %s", id)
		}
		seen[id] = true
		completed := waitForStatus(t, s, id, model.StatusCompleted, 5*time.Second)
		if completed.Result != "done" {
			t.Errorf("job %s result = %q, want done", id, completed.Result)
		}
	}
}

func TestDeleteWhileQueuedSkipsExecution(t *testing.T) {
	block := make(chan struct{})
	p := &stubProvider{result: "ok", block: block}
	r, s := newTestRunner(t, p, 1, 4)

	// Occupy the worker so the next job stays queued.
	first := makeJob()
	if err := r.Submit(context.Background(), first); err != nil {
		t.Fatalf("Submit first: %v", err)
	}
	waitForStatus(t, s, first.ID, model.StatusRunning, 5*time.Second)

	queued := makeJob()
	if err := r.Submit(context.Background(), queued); err != nil {
		t.Fatalf("Submit queued: %v", err)
	}
	if err := s.DeleteJob(context.Background(), queued.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}

	close(block)
	waitForStatus(t, s, first.ID, model.StatusCompleted, 5*time.Second)

	// Give the worker a moment to drain the deleted task, then verify only
	// the first job ever reached the provider.
	time.Sleep(50 * time.Millisecond)
	if p.callCount() != 1 {
		t.Errorf("provider called %d times, want 1 (deleted job skipped)", p.callCount())
	}
}

func TestExecuteSync(t *testing.T) {
	p := &stubProvider{result: "sync result"}
	r, s := newTestRunner(t, p, 1, 4)

	result, err := r.ExecuteSync(context.Background(), map[string]any{"topic": "x"})
	if err != nil {
		t.Fatalf("ExecuteSync: %v", err)
	}
	if result != "sync result" {
		t.Errorf("result = %q, want %q", result, "sync result")
	}

	// Sync execution never creates a registry record.
	jobs, _ := s.ListJobs(context.Background())
	if len(jobs) != 0 {
		t.Errorf("len(jobs) = %d, want 0 after sync execution", len(jobs))
	}
}
