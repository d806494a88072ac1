// Package dlq preserves terminally failed deliveries for inspection and replay.
package dlq

import (
	"time"

	"github.com/google/uuid"

	"github.com/deltacrown/herald/id"
	"github.com/deltacrown/herald/internal/entity"
)

// Entry represents a terminally failed delivery in the dead letter queue.
//
// Unlike the journal, a DLQ entry keeps the frozen envelope body: replaying
// it must send byte-identical content under the original delivery ID so the
// receiver's dedup contract still holds.
type Entry struct {
	entity.Entity

	// ID is the unique TypeID for this DLQ entry.
	ID id.ID `json:"id"`

	// DeliveryID is the stable UUIDv4 of the failed delivery.
	DeliveryID uuid.UUID `json:"delivery_id"`

	// EventType is the event type tag.
	EventType string `json:"event_type"`

	// EndpointID references the target endpoint.
	EndpointID id.ID `json:"endpoint_id"`

	// TargetURL is the endpoint URL at the time of failure.
	TargetURL string `json:"target_url"`

	// Body is the frozen envelope body that failed to deliver.
	Body []byte `json:"body"`

	// State is the terminal state that routed this delivery here
	// (failed_exhausted or failed_permanent).
	State string `json:"state"`

	// LastStatusCode is the HTTP status code from the final attempt.
	LastStatusCode int `json:"last_status_code,omitempty"`

	// Error is the transport error from the final attempt, if any.
	Error string `json:"error,omitempty"`

	// Attempts is the total number of attempts made.
	Attempts int `json:"attempts"`

	// FailedAt is when the delivery permanently failed.
	FailedAt time.Time `json:"failed_at"`

	// ReplayedAt is set when the entry has been replayed.
	ReplayedAt *time.Time `json:"replayed_at,omitempty"`
}

// ListOpts configures filtering and pagination for DLQ listing.
type ListOpts struct {
	Offset     int
	Limit      int
	EndpointID *id.ID
	From       *time.Time
	To         *time.Time
}
