// Package observability provides metrics and tracing for Herald.
package observability

import (
	gu "github.com/xraph/go-utils/metrics"
)

// Metrics holds metric instruments for Herald, backed by any go-utils
// MetricFactory (e.g. metrics.NewMetricsCollector() for standalone usage).
type Metrics struct {
	EventsPublishedTotal Counter
	EventsDroppedTotal   Counter
	AttemptsTotal        Counter
	DeliveryLatency      Histogram
	CircuitTransitions   Counter
	CircuitRejections    Counter
	PermanentFailures    Counter
	QueueDepth           Gauge
	DLQSize              Gauge
}

// Aliases so callers don't import go-utils directly.
type (
	Counter   = gu.Counter
	Gauge     = gu.Gauge
	Histogram = gu.Histogram
)

// NewDefaultMetrics creates metric instruments backed by a standalone
// in-process collector. Used when no factory is wired in.
func NewDefaultMetrics() *Metrics {
	return NewMetrics(gu.NewMetricsCollector("herald"))
}

// NewMetrics creates Herald metric instruments using the supplied factory.
func NewMetrics(factory gu.MetricFactory) *Metrics {
	return &Metrics{
		EventsPublishedTotal: factory.Counter("herald_events_published_total"),
		EventsDroppedTotal:   factory.Counter("herald_events_dropped_total"),
		AttemptsTotal:        factory.Counter("herald_delivery_attempts_total"),
		DeliveryLatency:      factory.Histogram("herald_delivery_latency_seconds"),
		CircuitTransitions:   factory.Counter("herald_circuit_transitions_total"),
		CircuitRejections:    factory.Counter("herald_circuit_rejections_total"),
		PermanentFailures:    factory.Counter("herald_permanent_failures_total"),
		QueueDepth:           factory.Gauge("herald_queue_depth"),
		DLQSize:              factory.Gauge("herald_dlq_size"),
	}
}

// RecordAttempt records a delivery attempt with the given outcome and latency.
func (m *Metrics) RecordAttempt(outcome string, latencySeconds float64) {
	m.AttemptsTotal.WithLabels(map[string]string{"outcome": outcome}).Inc()
	m.DeliveryLatency.Observe(latencySeconds)
}

// RecordTransition records a circuit breaker state change.
func (m *Metrics) RecordTransition(from, to string) {
	m.CircuitTransitions.WithLabels(map[string]string{"from": from, "to": to}).Inc()
}
