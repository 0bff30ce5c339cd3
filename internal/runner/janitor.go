package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/crewgate/crewgate/internal/store"
)

// DefaultSweepInterval is used when no interval is configured.
const DefaultSweepInterval = 10 * time.Minute

// Janitor evicts terminal job records older than the retention window so the
// registry does not grow without bound.
type Janitor struct {
	store     store.Store
	logger    *slog.Logger
	retention time.Duration
	interval  time.Duration
}

// NewJanitor creates a janitor. A retention of zero disables eviction.
func NewJanitor(s store.Store, logger *slog.Logger, retention, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{
		store:     s,
		logger:    logger,
		retention: retention,
		interval:  interval,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	if j.retention <= 0 {
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-j.retention)
			n, err := j.store.DeleteFinishedBefore(ctx, cutoff)
			if err != nil {
				j.logger.Error("retention sweep failed", "error", err)
				continue
			}
			if n > 0 {
				jobsEvicted.Add(float64(n))
				j.logger.Info("evicted finished jobs", "count", n, "cutoff", cutoff)
			}
		}
	}
}
