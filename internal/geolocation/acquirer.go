// Package geolocation obtains a one-shot device position and classifies
// failures into actionable location errors.
package geolocation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/observability"
	"github.com/jonboulle/clockwork"
)

// DefaultTimeout bounds a single position request.
const DefaultTimeout = 15 * time.Second

// PositionOptions is the policy handed to a PositionSource.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration // 0 forbids cached fixes
}

// DefaultPositionOptions returns the fixed acquisition policy: high
// accuracy, 15s timeout, no cached fixes.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{
		HighAccuracy: true,
		Timeout:      DefaultTimeout,
		MaximumAge:   0,
	}
}

// Position is a single fix.
type Position struct {
	Lat       float64
	Lon       float64
	AccuracyM float64 // radius in meters, 0 when unknown
	Accuracy  domain.Accuracy
}

// PositionSource produces a device position. Implementations report
// platform failures as *domain.LocationError; any other error is treated as
// an unavailable position.
type PositionSource interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
}

// State is the acquirer lifecycle.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateSuccess
	StateDenied
	StateUnavailable
	StateTimeout
)

func (s State) String() string {
	switch s {
	case StateRequesting:
		return "requesting"
	case StateSuccess:
		return "success"
	case StateDenied:
		return "denied"
	case StateUnavailable:
		return "unavailable"
	case StateTimeout:
		return "timeout"
	default:
		return "idle"
	}
}

// Acquirer runs one position request against a source. It is one-shot:
// after a terminal state, Acquire returns ErrAlreadyAcquired.
type Acquirer struct {
	source  PositionSource
	opts    PositionOptions
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger

	mu    sync.Mutex
	state State
}

// ErrAlreadyAcquired is returned by a second Acquire on the same Acquirer.
var ErrAlreadyAcquired = errors.New("geolocation: acquirer already used")

// NewAcquirer creates an Acquirer with the default position options. A nil
// clock uses real time.
func NewAcquirer(source PositionSource, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Acquirer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Acquirer{
		source:  source,
		opts:    DefaultPositionOptions(),
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// State returns the current lifecycle state.
func (a *Acquirer) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Acquire requests a position. Failures are returned as *domain.LocationError
// with the matching kind; a source that produces nothing within the timeout
// measured on the acquirer's clock yields a timeout error. If ctx itself is
// canceled, ctx.Err() is returned and the acquirer goes back to idle.
func (a *Acquirer) Acquire(ctx context.Context) (Position, error) {
	a.mu.Lock()
	if a.state != StateIdle {
		a.mu.Unlock()
		return Position{}, ErrAlreadyAcquired
	}
	a.state = StateRequesting
	a.mu.Unlock()

	reqCtx, cancel := clockwork.WithTimeout(ctx, a.clock, a.opts.Timeout)
	defer cancel()

	type outcome struct {
		pos Position
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		pos, err := a.source.CurrentPosition(reqCtx, a.opts)
		done <- outcome{pos: pos, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-reqCtx.Done():
		out.err = domain.NewLocationError(domain.LocationTimeout, domain.CodeTimeout)
	}

	if out.err == nil {
		a.finish(StateSuccess)
		return out.pos, nil
	}
	if ctx.Err() != nil {
		a.setState(StateIdle)
		return Position{}, ctx.Err()
	}

	locErr := classify(out.err)
	a.logger.Info("geolocation failed", "kind", locErr.Kind, "code", locErr.Code, "error", out.err)
	a.finish(stateFor(locErr.Kind))
	return Position{}, locErr
}

func (a *Acquirer) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *Acquirer) finish(s State) {
	a.setState(s)
	if a.metrics != nil {
		a.metrics.GeolocationOutcomes.WithLabelValues(s.String()).Inc()
	}
}

func classify(err error) *domain.LocationError {
	var locErr *domain.LocationError
	if errors.As(err, &locErr) {
		return locErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewLocationError(domain.LocationTimeout, domain.CodeTimeout)
	}
	return domain.NewLocationError(domain.LocationUnavailable, domain.CodePositionUnavailable)
}

func stateFor(kind domain.LocationErrorKind) State {
	switch kind {
	case domain.LocationDenied:
		return StateDenied
	case domain.LocationTimeout:
		return StateTimeout
	default:
		return StateUnavailable
	}
}
