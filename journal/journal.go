// Package journal is the append-only delivery log.
//
// One row is recorded per delivery attempt plus one summary row per terminal
// event outcome. Rows deliberately carry no payload contents, no receiver
// response bodies, and no transport error text: only event type, delivery ID,
// endpoint ID, attempt number, outcome, status code, and latency. Operators
// compute success rate, latency percentiles, and circuit-open counts from
// this log, and it must stay PII-free.
package journal

import (
	"time"

	"github.com/google/uuid"

	"github.com/deltacrown/herald/id"
	"github.com/deltacrown/herald/internal/entity"
)

// Outcome classifies the result of a single delivery attempt.
type Outcome string

const (
	// OutcomeSuccess is a 2xx response.
	OutcomeSuccess Outcome = "success"

	// OutcomeRetryable is a 5xx response, network error, or timeout.
	OutcomeRetryable Outcome = "retryable_failure"

	// OutcomePermanent is a 4xx response. Never retried, never counted
	// toward circuit health.
	OutcomePermanent Outcome = "permanent_failure"

	// OutcomeCircuitRejected means the breaker rejected the attempt before
	// any network call was made.
	OutcomeCircuitRejected Outcome = "circuit_rejected"
)

// State is the terminal state of a delivery.
type State string

const (
	// StateDelivered means an attempt received a 2xx.
	StateDelivered State = "delivered"

	// StateFailedPermanent means an attempt received a 4xx.
	StateFailedPermanent State = "failed_permanent"

	// StateFailedExhausted means every allowed attempt failed retryably.
	StateFailedExhausted State = "failed_exhausted"

	// StateFailedCircuitOpen means the breaker rejected the delivery.
	StateFailedCircuitOpen State = "failed_circuit_open"
)

// Attempt is one recorded HTTP try (or circuit rejection) for a delivery.
type Attempt struct {
	entity.Entity

	// ID is the unique TypeID for this attempt row.
	ID id.ID `json:"id"`

	// DeliveryID is the stable UUIDv4 of the delivery this attempt belongs to.
	DeliveryID uuid.UUID `json:"delivery_id"`

	// EventType is the event type tag.
	EventType string `json:"event_type"`

	// EndpointID references the target endpoint.
	EndpointID id.ID `json:"endpoint_id"`

	// Number is the 1-based attempt counter.
	Number int `json:"number"`

	// SignedTimestamp is the unix-millisecond timestamp that was signed for
	// this attempt. Zero for circuit-rejected attempts (nothing was sent).
	SignedTimestamp int64 `json:"signed_timestamp,omitempty"`

	// Outcome is the attempt classification.
	Outcome Outcome `json:"outcome"`

	// StatusCode is the HTTP status, or 0 for network errors and rejections.
	StatusCode int `json:"status_code,omitempty"`

	// LatencyMs is the measured round-trip time.
	LatencyMs int `json:"latency_ms"`
}

// Summary is the terminal record for one delivery.
type Summary struct {
	entity.Entity

	// DeliveryID is the stable UUIDv4 of the delivery.
	DeliveryID uuid.UUID `json:"delivery_id"`

	// EventType is the event type tag.
	EventType string `json:"event_type"`

	// EndpointID references the target endpoint.
	EndpointID id.ID `json:"endpoint_id"`

	// State is the terminal delivery state.
	State State `json:"state"`

	// Attempts is the total number of attempts recorded.
	Attempts int `json:"attempts"`

	// CompletedAt is when the delivery reached its terminal state.
	CompletedAt time.Time `json:"completed_at"`
}

// ListOpts configures filtering and pagination for journal listing.
type ListOpts struct {
	Offset int
	Limit  int
}
