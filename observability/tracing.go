package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/deltacrown/herald"

// Tracer provides OpenTelemetry tracing for Herald.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new Herald tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartAttemptSpan starts a new span for a delivery attempt.
func (t *Tracer) StartAttemptSpan(ctx context.Context, deliveryID, eventType, endpointID string, attempt int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "herald.delivery_attempt",
		trace.WithAttributes(
			attribute.String("herald.delivery_id", deliveryID),
			attribute.String("herald.event_type", eventType),
			attribute.String("herald.endpoint_id", endpointID),
			attribute.Int("herald.attempt", attempt),
		),
	)
}

// EndAttemptSpan ends an attempt span with result attributes.
func (t *Tracer) EndAttemptSpan(span trace.Span, outcome string, statusCode, latencyMs int) {
	span.SetAttributes(
		attribute.String("herald.outcome", outcome),
		attribute.Int("http.status_code", statusCode),
		attribute.Int("herald.latency_ms", latencyMs),
	)
	span.End()
}
