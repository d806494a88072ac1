package herald

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/deltacrown/herald/catalog"
	"github.com/deltacrown/herald/circuit"
	"github.com/deltacrown/herald/delivery"
	"github.com/deltacrown/herald/dlq"
	"github.com/deltacrown/herald/endpoint"
	"github.com/deltacrown/herald/journal"
	"github.com/deltacrown/herald/observability"
	"github.com/deltacrown/herald/ratelimit"
	"github.com/deltacrown/herald/store"
)

// Herald is the root outbound webhook delivery engine.
type Herald struct {
	config      Config
	store       store.Store
	catalog     *catalog.Catalog
	validator   *catalog.Validator
	endpointSvc *endpoint.Service
	journalSvc  *journal.Service
	dlqSvc      *dlq.Service
	breakers    *circuit.Registry
	limiter     *ratelimit.Limiter
	scheduler   *delivery.Scheduler
	engine      *delivery.Engine
	metrics     *observability.Metrics
	logger      *slog.Logger

	// enabled is the runtime kill switch, checked only at the Publish
	// boundary. Seeded from Config.Enabled.
	enabled atomic.Bool
}

// Option configures a Herald instance.
type Option func(*Herald) error

// New creates a new Herald with the given options.
func New(opts ...Option) (*Herald, error) {
	h := &Herald{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	if h.store == nil {
		return nil, ErrNoStore
	}
	h.wireServices()
	return h, nil
}

// WithStore sets the persistence backend for the Herald instance.
func WithStore(s store.Store) Option {
	return func(h *Herald) error {
		h.store = s
		return nil
	}
}

// WithLogger sets the structured logger for the Herald instance.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Herald) error {
		h.logger = logger
		return nil
	}
}

// WithMetrics sets the metric instruments. Defaults to a standalone
// in-process collector.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Herald) error {
		h.metrics = m
		return nil
	}
}

// WithServiceName sets the service identifier stamped into envelope metadata.
func WithServiceName(name string) Option {
	return func(h *Herald) error {
		h.config.ServiceName = name
		return nil
	}
}

// WithWorkers sets the number of delivery worker goroutines.
func WithWorkers(n int) Option {
	return func(h *Herald) error {
		h.config.Workers = n
		return nil
	}
}

// WithQueueSize sets the capacity of the bounded delivery queue.
func WithQueueSize(n int) Option {
	return func(h *Herald) error {
		h.config.QueueSize = n
		return nil
	}
}

// WithBackpressure sets the drop-vs-block policy for a full queue.
func WithBackpressure(p BackpressurePolicy) Option {
	return func(h *Herald) error {
		h.config.Backpressure = p
		return nil
	}
}

// WithRequestTimeout sets the HTTP timeout per delivery attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Herald) error {
		h.config.RequestTimeout = d
		return nil
	}
}

// WithMaxAttempts sets the maximum number of delivery attempts per event.
func WithMaxAttempts(n int) Option {
	return func(h *Herald) error {
		h.config.MaxAttempts = n
		return nil
	}
}

// WithBackoffSchedule sets the delay before each delivery attempt.
func WithBackoffSchedule(schedule []time.Duration) Option {
	return func(h *Herald) error {
		h.config.BackoffSchedule = schedule
		return nil
	}
}

// WithBreakerConfig sets the per-endpoint circuit breaker thresholds.
func WithBreakerConfig(cfg circuit.Config) Option {
	return func(h *Herald) error {
		h.config.Breaker = cfg
		return nil
	}
}

// WithCacheTTL sets the TTL for the catalog's in-memory event type cache.
func WithCacheTTL(d time.Duration) Option {
	return func(h *Herald) error {
		h.config.CacheTTL = d
		return nil
	}
}

// WithDisabled creates the Herald with the delivery kill switch off.
// Publish rejects events until SetEnabled(true) is called.
func WithDisabled() Option {
	return func(h *Herald) error {
		h.config.Enabled = false
		return nil
	}
}
