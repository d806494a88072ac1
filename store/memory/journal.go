package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/deltacrown/herald/id"
	"github.com/deltacrown/herald/journal"
)

// AppendAttempt records one delivery attempt.
func (s *Store) AppendAttempt(ctx context.Context, a *journal.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	cp := *a
	s.attempts = append(s.attempts, &cp)
	return nil
}

// AppendSummary records the terminal outcome of a delivery.
func (s *Store) AppendSummary(ctx context.Context, sum *journal.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	cp := *sum
	s.summaries = append(s.summaries, &cp)
	return nil
}

// ListAttemptsByDelivery returns attempts for a delivery, ordered by number.
func (s *Store) ListAttemptsByDelivery(ctx context.Context, deliveryID uuid.UUID) ([]*journal.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var out []*journal.Attempt
	for _, a := range s.attempts {
		if a.DeliveryID == deliveryID {
			cp := *a
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// ListAttemptsByEndpoint returns attempt history for an endpoint, newest first.
func (s *Store) ListAttemptsByEndpoint(ctx context.Context, epID id.ID, opts journal.ListOpts) ([]*journal.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var out []*journal.Attempt
	for _, a := range s.attempts {
		if a.EndpointID == epID {
			cp := *a
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, opts.Offset, opts.Limit), nil
}

// ListAttemptsSince returns attempts recorded at or after the given instant.
func (s *Store) ListAttemptsSince(ctx context.Context, since time.Time) ([]*journal.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var out []*journal.Attempt
	for _, a := range s.attempts {
		if !a.CreatedAt.Before(since) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListSummariesSince returns summaries recorded at or after the given instant.
func (s *Store) ListSummariesSince(ctx context.Context, since time.Time) ([]*journal.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var out []*journal.Summary
	for _, sum := range s.summaries {
		if !sum.CreatedAt.Before(since) {
			cp := *sum
			out = append(out, &cp)
		}
	}
	return out, nil
}
