// Package envelope builds the canonical webhook wire envelope.
//
// The envelope is the JSON body `{"event": ..., "data": ..., "metadata": ...}`
// POSTed to receiver endpoints. It is serialized exactly once, at build time:
// the resulting bytes are frozen for the lifetime of the event so that every
// retry attempt signs and sends an identical body. Only the attempt timestamp
// (and therefore the signature) changes between attempts.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deltacrown/herald/id"
)

// Version is the wire protocol version stamped into envelope metadata.
const Version = "1.0"

// ErrNotSerializable is returned when the payload cannot be marshaled to
// JSON. The event is rejected synchronously and never enters the pipeline.
var ErrNotSerializable = errors.New("envelope: payload is not serializable")

// Metadata is the fixed trailer of every envelope.
type Metadata struct {
	// Timestamp is the envelope build instant in RFC3339 (not the per-attempt
	// signing timestamp, which lives in the X-Webhook-Timestamp header).
	Timestamp string `json:"timestamp"`

	// Service identifies the sending system.
	Service string `json:"service"`

	// Version is the wire protocol version.
	Version string `json:"version"`
}

// wire is the canonical envelope shape. Field order is fixed by the struct;
// map keys inside data are sorted by encoding/json. Together these make the
// serialization deterministic.
type wire struct {
	Event    string         `json:"event"`
	Data     map[string]any `json:"data"`
	Metadata Metadata       `json:"metadata"`
}

// Envelope is a built, frozen wire body for one logical event, before it is
// bound to any particular endpoint.
type Envelope struct {
	// Type is the event type tag (e.g. "payment_verified").
	Type string

	// Body is the canonical serialized envelope, frozen at build time.
	Body []byte

	// CreatedAt is the envelope build instant.
	CreatedAt time.Time
}

// Build serializes an event into its canonical envelope. If the payload is
// not serializable the event fails permanently and synchronously: no
// delivery is attempted and no retry is scheduled.
func Build(eventType string, payload map[string]any, service string) (*Envelope, error) {
	now := time.Now().UTC()

	body, err := json.Marshal(wire{
		Event: eventType,
		Data:  payload,
		Metadata: Metadata{
			Timestamp: now.Format(time.RFC3339),
			Service:   service,
			Version:   Version,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}

	return &Envelope{
		Type:      eventType,
		Body:      body,
		CreatedAt: now,
	}, nil
}

// Event is one deliverable webhook: an envelope bound to a target endpoint
// with its stable delivery ID. The delivery ID is generated once and reused
// verbatim across every retry attempt; it is the receiver's dedup key.
type Event struct {
	// DeliveryID is the stable UUIDv4 sent as X-Webhook-Id.
	DeliveryID uuid.UUID

	// Type is the event type tag.
	Type string

	// Body is the frozen canonical body shared with the envelope.
	Body []byte

	// CreatedAt is the envelope build instant.
	CreatedAt time.Time

	// EndpointID references the target endpoint.
	EndpointID id.ID

	// TargetURL is the destination, resolved at build time and fixed for
	// the event's lifetime.
	TargetURL string
}

// Bind creates a deliverable Event targeting one endpoint. Each bound event
// gets its own delivery ID; the body bytes are shared, not copied.
func (env *Envelope) Bind(endpointID id.ID, targetURL string) *Event {
	return &Event{
		DeliveryID: uuid.New(),
		Type:       env.Type,
		Body:       env.Body,
		CreatedAt:  env.CreatedAt,
		EndpointID: endpointID,
		TargetURL:  targetURL,
	}
}
