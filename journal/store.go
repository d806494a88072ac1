package journal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/deltacrown/herald/id"
)

// Store defines the persistence contract for the delivery log.
// Both row kinds are append-only; nothing is ever updated in place.
type Store interface {
	// AppendAttempt records one delivery attempt.
	AppendAttempt(ctx context.Context, a *Attempt) error

	// AppendSummary records the terminal outcome of a delivery.
	AppendSummary(ctx context.Context, s *Summary) error

	// ListAttemptsByDelivery returns all attempts for a delivery ID,
	// ordered by attempt number.
	ListAttemptsByDelivery(ctx context.Context, deliveryID uuid.UUID) ([]*Attempt, error)

	// ListAttemptsByEndpoint returns attempt history for an endpoint,
	// newest first.
	ListAttemptsByEndpoint(ctx context.Context, epID id.ID, opts ListOpts) ([]*Attempt, error)

	// ListAttemptsSince returns attempts recorded at or after the given
	// instant. Feeds operator stats.
	ListAttemptsSince(ctx context.Context, since time.Time) ([]*Attempt, error)

	// ListSummariesSince returns summaries recorded at or after the given
	// instant.
	ListSummariesSince(ctx context.Context, since time.Time) ([]*Summary, error)
}
