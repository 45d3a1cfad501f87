// Package ratelimit spaces outbound geocoding requests.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// MinInterval is the default spacing between consecutive provider requests.
const MinInterval = 100 * time.Millisecond

// Observer receives the time each caller spent waiting.
type Observer interface {
	ObserveWait(d time.Duration)
}

// Limiter releases callers no closer together than its interval. It has a
// single shared clock, not per-key buckets, and is safe for concurrent use.
// Callers are released in reservation order.
type Limiter struct {
	limiter  *rate.Limiter
	clock    clockwork.Clock
	observer Observer
}

// New creates a limiter with the given minimum interval. A nil clock uses
// real time; observer may be nil.
func New(interval time.Duration, clock clockwork.Clock, observer Observer) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = MinInterval
	}
	return &Limiter{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		clock:    clock,
		observer: observer,
	}
}

// Wait blocks until the caller may issue a request. It only fails when ctx
// is done first, in which case the reserved slot is handed back.
func (l *Limiter) Wait(ctx context.Context) error {
	now := l.clock.Now()
	r := l.limiter.ReserveN(now, 1)
	if !r.OK() {
		return errors.New("rate limiter: reservation exceeds burst")
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		l.observe(0)
		return nil
	}

	timer := l.clock.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.CancelAt(l.clock.Now())
		return ctx.Err()
	case <-timer.Chan():
		l.observe(delay)
		return nil
	}
}

func (l *Limiter) observe(d time.Duration) {
	if l.observer != nil {
		l.observer.ObserveWait(d)
	}
}
