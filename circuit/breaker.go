// Package circuit implements the per-endpoint circuit breaker.
//
// Each receiver endpoint gets its own CLOSED/OPEN/HALF_OPEN state machine.
// Retryable delivery failures are counted in a sliding window; when the
// threshold is reached the circuit opens and every attempt is rejected
// without a network call until the open period elapses, after which exactly
// one probe attempt is let through. Permanent (4xx) failures never count:
// they signal a sender-side configuration defect, not endpoint health.
//
// Breaker state lives in process memory only. A restart resets all circuits
// to CLOSED.
package circuit

import (
	"sync"
	"time"
)

// State is the health state of one endpoint's circuit.
type State string

const (
	// StateClosed lets attempts pass through freely.
	StateClosed State = "closed"

	// StateOpen rejects all attempts without a network call.
	StateOpen State = "open"

	// StateHalfOpen lets exactly one probe attempt through.
	StateHalfOpen State = "half_open"
)

// Config holds the breaker thresholds.
type Config struct {
	// Window is the sliding window over which failures are counted.
	Window time.Duration

	// FailureThreshold is the windowed failure count that opens the circuit.
	FailureThreshold int

	// OpenFor is how long an open circuit rejects attempts before allowing
	// a half-open probe.
	OpenFor time.Duration
}

// DefaultConfig returns the documented breaker defaults.
func DefaultConfig() Config {
	return Config{
		Window:           120 * time.Second,
		FailureThreshold: 5,
		OpenFor:          60 * time.Second,
	}
}

// Breaker is the state machine for a single endpoint.
type Breaker struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	state        State
	failureCount int
	windowStart  time.Time
	openedAt     time.Time
	probing      bool

	onTransition func(from, to State)
}

// NewBreaker creates a closed breaker. The now func is injectable for tests;
// pass nil for wall-clock time.
func NewBreaker(cfg Config, now func() time.Time) *Breaker {
	if now == nil {
		now = time.Now
	}
	b := &Breaker{
		cfg:   cfg,
		now:   now,
		state: StateClosed,
	}
	b.windowStart = now()
	return b
}

// Allow reports whether a delivery attempt may proceed. In the OPEN state it
// returns false until the open period has elapsed, at which point the next
// caller transitions the circuit to HALF_OPEN and is admitted as the single
// probe (probe=true). Concurrent callers during a probe are rejected.
//
// Callers must treat a probe attempt specially: any non-success probe
// outcome, including a permanent 4xx, reopens the circuit via RecordFailure.
func (b *Breaker) Allow() (allowed, probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true, false

	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.OpenFor {
			return false, false
		}
		b.transition(StateHalfOpen)
		b.probing = true
		return true, true

	case StateHalfOpen:
		// A probe is already in flight.
		return false, false
	}

	return false, false
}

// RecordSuccess reports a successful delivery. A successful half-open probe
// closes the circuit and resets the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probing = false
		b.failureCount = 0
		b.windowStart = b.now()
		b.transition(StateClosed)
	}
}

// RecordFailure reports a retryable delivery failure. In the CLOSED state it
// counts toward the windowed threshold; a failed half-open probe reopens the
// circuit and restarts the open timer.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()

	switch b.state {
	case StateClosed:
		// Expired window: start a fresh one before counting.
		if now.Sub(b.windowStart) >= b.cfg.Window {
			b.windowStart = now
			b.failureCount = 0
		}
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			b.openedAt = now
			b.transition(StateOpen)
		}

	case StateHalfOpen:
		b.probing = false
		b.openedAt = now
		b.transition(StateOpen)

	case StateOpen:
		// An attempt that was in flight when the circuit opened. Nothing to do.
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot is a point-in-time copy of breaker state for observability.
type Snapshot struct {
	State        State     `json:"state"`
	FailureCount int       `json:"failure_count"`
	WindowStart  time.Time `json:"window_start"`
	OpenedAt     time.Time `json:"opened_at,omitempty"`
}

// Snapshot returns a copy of the breaker's current state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:        b.state,
		FailureCount: b.failureCount,
		WindowStart:  b.windowStart,
		OpenedAt:     b.openedAt,
	}
}

// transition changes state and fires the hook. Caller holds b.mu.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onTransition != nil {
		b.onTransition(from, to)
	}
}
