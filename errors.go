package herald

import (
	"errors"

	"github.com/deltacrown/herald/delivery"
)

// Sentinel errors returned by Herald operations.
var (
	// ErrNoStore is returned when a Herald is created without a store.
	ErrNoStore = errors.New("herald: store is required")

	// ErrDisabled is returned by Publish when the delivery kill switch is off.
	ErrDisabled = errors.New("herald: webhook delivery is disabled")

	// ErrQueueFull is returned by Publish when the delivery queue is at
	// capacity and the backpressure policy is to drop.
	ErrQueueFull = delivery.ErrQueueFull

	// ErrPayloadNotSerializable is returned when an event payload cannot be
	// serialized to the wire envelope. The event never enters the pipeline.
	ErrPayloadNotSerializable = errors.New("herald: payload is not serializable")

	// ErrEndpointNotFound is returned when an endpoint cannot be found.
	ErrEndpointNotFound = errors.New("herald: endpoint not found")

	// ErrEventTypeNotFound is returned when an event type is not registered in the catalog.
	ErrEventTypeNotFound = errors.New("herald: event type not found")

	// ErrEventTypeDeprecated is returned when publishing an event with a deprecated type.
	ErrEventTypeDeprecated = errors.New("herald: event type is deprecated")

	// ErrPayloadValidationFailed is returned when event data fails JSON Schema validation.
	ErrPayloadValidationFailed = errors.New("herald: payload validation failed")

	// ErrStoreClosed is returned when a store operation is attempted after the store is closed.
	ErrStoreClosed = errors.New("herald: store is closed")

	// ErrMigrationFailed is returned when a database migration fails.
	ErrMigrationFailed = errors.New("herald: migration failed")

	// ErrDLQNotFound is returned when a DLQ entry cannot be found.
	ErrDLQNotFound = errors.New("herald: dlq entry not found")
)
