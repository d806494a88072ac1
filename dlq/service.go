package dlq

import (
	"context"
	"log/slog"
	"time"

	"github.com/deltacrown/herald/id"
)

// Service manages the dead letter queue.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new DLQ service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Push appends an entry for a terminally failed delivery.
func (svc *Service) Push(ctx context.Context, e *Entry) error {
	return svc.store.Push(ctx, e)
}

// Get returns a DLQ entry by ID.
func (svc *Service) Get(ctx context.Context, dlqID id.ID) (*Entry, error) {
	return svc.store.GetDLQ(ctx, dlqID)
}

// List returns DLQ entries matching the given options.
func (svc *Service) List(ctx context.Context, opts ListOpts) ([]*Entry, error) {
	return svc.store.ListDLQ(ctx, opts)
}

// MarkReplayed stamps an entry as replayed.
func (svc *Service) MarkReplayed(ctx context.Context, dlqID id.ID) error {
	return svc.store.MarkReplayed(ctx, dlqID, time.Now().UTC())
}

// Purge removes entries that failed before the given instant.
func (svc *Service) Purge(ctx context.Context, before time.Time) (int64, error) {
	return svc.store.PurgeDLQ(ctx, before)
}

// Count returns the total number of DLQ entries.
func (svc *Service) Count(ctx context.Context) (int64, error) {
	return svc.store.CountDLQ(ctx)
}
