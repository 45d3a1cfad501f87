package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (o *recordingObserver) ObserveWait(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.waits = append(o.waits, d)
}

func waitAsync(ctx context.Context, l *Limiter) <-chan error {
	done := make(chan error, 1)
	go func() { done <- l.Wait(ctx) }()
	return done
}

func TestLimiter_FirstCallImmediate(t *testing.T) {
	fc := clockwork.NewFakeClock()
	obs := &recordingObserver{}
	l := New(MinInterval, fc, obs)

	require.NoError(t, l.Wait(context.Background()))
	assert.Equal(t, []time.Duration{0}, obs.waits)
}

func TestLimiter_SecondCallWaitsForInterval(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fc := clockwork.NewFakeClock()
	l := New(MinInterval, fc, nil)
	require.NoError(t, l.Wait(ctx))

	done := waitAsync(ctx, l)
	require.NoError(t, fc.BlockUntilContext(ctx, 1))

	fc.Advance(50 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("second caller released before the interval elapsed")
	default:
	}

	fc.Advance(50 * time.Millisecond)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("second caller was never released")
	}
}

func TestLimiter_SpacedCallsDoNotWait(t *testing.T) {
	fc := clockwork.NewFakeClock()
	obs := &recordingObserver{}
	l := New(MinInterval, fc, obs)

	require.NoError(t, l.Wait(context.Background()))
	fc.Advance(MinInterval)
	require.NoError(t, l.Wait(context.Background()))

	assert.Equal(t, []time.Duration{0, 0}, obs.waits)
}

func TestLimiter_ContextCancelled(t *testing.T) {
	fc := clockwork.NewFakeClock()
	l := New(time.Second, fc, nil)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := waitAsync(ctx, l)
	require.NoError(t, fc.BlockUntilContext(context.Background(), 1))
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLimiter_IndependentInstances(t *testing.T) {
	fc := clockwork.NewFakeClock()
	a := New(MinInterval, fc, nil)
	b := New(MinInterval, fc, nil)
	obs := &recordingObserver{}
	b.observer = obs

	require.NoError(t, a.Wait(context.Background()))
	require.NoError(t, b.Wait(context.Background()))
	assert.Equal(t, []time.Duration{0}, obs.waits, "b must not share a's timestamp")
}

func TestNew_DefaultsInterval(t *testing.T) {
	l := New(0, nil, nil)
	assert.Equal(t, MinInterval, time.Duration(float64(time.Second)/float64(l.limiter.Limit())))
}
