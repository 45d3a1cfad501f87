package geocode

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/location-resolver/internal/domain"
	"github.com/couchcryptid/location-resolver/internal/observability"
	"github.com/jonboulle/clockwork"
)

// DebounceDelay is the quiet period after the last keystroke before a query
// is sent.
const DebounceDelay = 300 * time.Millisecond

// SearchFunc runs one search. (*Searcher).Search satisfies it.
type SearchFunc func(ctx context.Context, query string, limit int) []domain.SearchCandidate

// DebounceState is where a Debouncer sits in its cycle.
type DebounceState int

const (
	StateIdle DebounceState = iota
	StateDebouncing
	StateQuerying
)

func (s DebounceState) String() string {
	switch s {
	case StateDebouncing:
		return "debouncing"
	case StateQuerying:
		return "querying"
	default:
		return "idle"
	}
}

// Result is delivered once per query that reached the search function, or
// immediately for queries too short to search. Seq orders results; a
// consumer keeps only the result whose Seq equals Latest().
type Result struct {
	Seq        uint64
	Query      string
	Candidates []domain.SearchCandidate
}

// Debouncer collapses bursts of keystrokes into a single search. Each Submit
// cancels the pending timer and starts a new one; only input that stays
// unchanged for DebounceDelay is searched.
type Debouncer struct {
	ctx     context.Context
	cancel  context.CancelFunc
	search  SearchFunc
	deliver func(Result)
	clock   clockwork.Clock
	delay   time.Duration
	metrics *observability.Metrics

	mu    sync.Mutex
	seq   uint64
	timer clockwork.Timer
	state DebounceState
}

// NewDebouncer creates a Debouncer. deliver is called from a timer goroutine
// for debounced queries and from Submit for short ones; it must not block.
// Searches run under a context derived from ctx and canceled by Stop.
func NewDebouncer(ctx context.Context, search SearchFunc, deliver func(Result), clock clockwork.Clock, metrics *observability.Metrics) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Debouncer{
		ctx:     ctx,
		cancel:  cancel,
		search:  search,
		deliver: deliver,
		clock:   clock,
		delay:   DebounceDelay,
		metrics: metrics,
	}
}

// Submit registers new input and returns its sequence number. Queries below
// the minimum length are answered at once with no candidates and never
// reach the search function.
func (d *Debouncer) Submit(query string, limit int) uint64 {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.stopPendingLocked()

	if !domain.IsSearchable(query) {
		d.state = StateIdle
		d.mu.Unlock()
		d.deliver(Result{Seq: seq, Query: query, Candidates: []domain.SearchCandidate{}})
		return seq
	}

	d.state = StateDebouncing
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(seq, query, limit) })
	d.mu.Unlock()
	return seq
}

// Latest returns the sequence number of the most recent Submit.
func (d *Debouncer) Latest() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq
}

// IsCurrent reports whether seq belongs to the most recent Submit.
func (d *Debouncer) IsCurrent(seq uint64) bool {
	return d.Latest() == seq
}

// State returns the current cycle state.
func (d *Debouncer) State() DebounceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Stop cancels any pending timer and in-flight search.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.state = StateIdle
	d.mu.Unlock()
	d.cancel()
}

func (d *Debouncer) stopPendingLocked() {
	if d.timer == nil {
		return
	}
	if d.timer.Stop() && d.metrics != nil {
		d.metrics.SearchSuperseded.Inc()
	}
	d.timer = nil
}

func (d *Debouncer) fire(seq uint64, query string, limit int) {
	d.mu.Lock()
	if seq != d.seq || d.ctx.Err() != nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.state = StateQuerying
	d.mu.Unlock()

	candidates := d.search(d.ctx, query, limit)

	d.mu.Lock()
	if seq == d.seq && d.state == StateQuerying {
		d.state = StateIdle
	}
	d.mu.Unlock()

	if d.ctx.Err() != nil {
		return
	}
	d.deliver(Result{Seq: seq, Query: query, Candidates: candidates})
}
