package herald

import (
	"time"

	"github.com/deltacrown/herald/circuit"
	"github.com/deltacrown/herald/delivery"
)

// BackpressurePolicy controls what Publish does when the delivery queue is full.
type BackpressurePolicy = delivery.BackpressurePolicy

const (
	// BackpressureDrop rejects the event with ErrQueueFull. The producer is
	// never blocked; the drop is counted in metrics. This is the default.
	BackpressureDrop = delivery.BackpressureDrop

	// BackpressureBlock blocks Publish until queue space frees up or the
	// context is cancelled.
	BackpressureBlock = delivery.BackpressureBlock
)

// Config holds the configuration for a Herald instance.
type Config struct {
	// Enabled is the delivery kill switch. When false, Publish rejects new
	// events immediately; in-flight deliveries complete naturally.
	Enabled bool

	// ServiceName is stamped into envelope metadata and the User-Agent header.
	ServiceName string

	// Workers is the number of delivery worker goroutines.
	Workers int

	// QueueSize is the capacity of the bounded delivery queue.
	QueueSize int

	// Backpressure decides drop-vs-block when the queue is full.
	Backpressure BackpressurePolicy

	// RequestTimeout is the HTTP timeout per delivery attempt.
	RequestTimeout time.Duration

	// MaxAttempts is the maximum number of delivery attempts per event.
	MaxAttempts int

	// BackoffSchedule defines the delay before each attempt, indexed by
	// attempt number (attempt 1 waits BackoffSchedule[0], and so on).
	BackoffSchedule []time.Duration

	// Breaker configures the per-endpoint circuit breaker.
	Breaker circuit.Config

	// CacheTTL is the TTL for the catalog's in-memory event type cache.
	// Set to 0 to disable expiry.
	CacheTTL time.Duration
}

// DefaultBackoffSchedule is the delay before each delivery attempt.
// Attempt 1 goes out immediately; retries wait 2s then 4s.
var DefaultBackoffSchedule = []time.Duration{
	0,
	2 * time.Second,
	4 * time.Second,
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		ServiceName:     "deltacrown",
		Workers:         10,
		QueueSize:       1024,
		Backpressure:    BackpressureDrop,
		RequestTimeout:  10 * time.Second,
		MaxAttempts:     3,
		BackoffSchedule: DefaultBackoffSchedule,
		Breaker:         circuit.DefaultConfig(),
		CacheTTL:        30 * time.Second,
	}
}
