package dlq

import (
	"context"
	"time"

	"github.com/deltacrown/herald/id"
)

// Store defines the persistence contract for the dead letter queue.
type Store interface {
	// Push appends a DLQ entry.
	Push(ctx context.Context, e *Entry) error

	// GetDLQ returns a DLQ entry by ID.
	GetDLQ(ctx context.Context, dlqID id.ID) (*Entry, error)

	// ListDLQ returns DLQ entries matching the given options, newest first.
	ListDLQ(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// MarkReplayed stamps an entry as replayed.
	MarkReplayed(ctx context.Context, dlqID id.ID, at time.Time) error

	// PurgeDLQ removes entries that failed before the given instant and
	// returns how many were removed.
	PurgeDLQ(ctx context.Context, before time.Time) (int64, error)

	// CountDLQ returns the total number of DLQ entries.
	CountDLQ(ctx context.Context) (int64, error)
}
