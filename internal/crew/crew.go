// Package crew defines the workload provider boundary: the external
// collaborator that actually executes a job. The service drives it as a
// single fallible call and never inspects its internals.
package crew

import (
	"context"
	"errors"
)

// ErrNotLoaded is returned when no provider could be resolved at startup.
var ErrNotLoaded = errors.New("crew provider not loaded")

// Provider executes one crew run per call.
type Provider interface {
	// Name identifies the provider for health and info endpoints.
	Name() string

	// Execute runs the crew once with the given inputs and returns its
	// result. The call may be slow; cancellation is honored only as far as
	// the underlying transport supports it.
	Execute(ctx context.Context, inputs map[string]any) (string, error)
}
