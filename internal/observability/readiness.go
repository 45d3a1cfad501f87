package observability

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// Readiness gates /readyz: not ready until MarkReady, not ready again after
// MarkNotReady, and otherwise ready only while every registered check passes.
type Readiness struct {
	ready  atomic.Bool
	checks map[string]Check
}

// NewReadiness creates a Readiness with named dependency checks.
func NewReadiness(checks map[string]Check) *Readiness {
	return &Readiness{checks: checks}
}

// MarkReady flips the service to ready once startup has finished.
func (r *Readiness) MarkReady() { r.ready.Store(true) }

// MarkNotReady is called when shutdown begins.
func (r *Readiness) MarkNotReady() { r.ready.Store(false) }

// CheckReadiness implements the readiness checker used by the /readyz handler.
func (r *Readiness) CheckReadiness(ctx context.Context) error {
	if !r.ready.Load() {
		return errors.New("service is not ready")
	}
	for name, check := range r.checks {
		if err := check(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
