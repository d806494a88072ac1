package memory

import (
	"context"
	"sort"
	"time"

	herald "github.com/deltacrown/herald"
	"github.com/deltacrown/herald/dlq"
	"github.com/deltacrown/herald/id"
)

func cloneEntry(e *dlq.Entry) *dlq.Entry {
	out := *e
	if e.Body != nil {
		out.Body = append([]byte(nil), e.Body...)
	}
	if e.ReplayedAt != nil {
		at := *e.ReplayedAt
		out.ReplayedAt = &at
	}
	return &out
}

// Push appends a DLQ entry.
func (s *Store) Push(ctx context.Context, e *dlq.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.deadLetter[e.ID.String()] = cloneEntry(e)
	return nil
}

// GetDLQ returns a DLQ entry by ID.
func (s *Store) GetDLQ(ctx context.Context, dlqID id.ID) (*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	e, ok := s.deadLetter[dlqID.String()]
	if !ok {
		return nil, herald.ErrDLQNotFound
	}
	return cloneEntry(e), nil
}

// ListDLQ returns DLQ entries matching the options, newest failure first.
func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	out := make([]*dlq.Entry, 0, len(s.deadLetter))
	for _, e := range s.deadLetter {
		if opts.EndpointID != nil && e.EndpointID != *opts.EndpointID {
			continue
		}
		if opts.From != nil && e.FailedAt.Before(*opts.From) {
			continue
		}
		if opts.To != nil && e.FailedAt.After(*opts.To) {
			continue
		}
		out = append(out, cloneEntry(e))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FailedAt.Equal(out[j].FailedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].FailedAt.After(out[j].FailedAt)
	})
	return paginate(out, opts.Offset, opts.Limit), nil
}

// MarkReplayed stamps an entry as replayed.
func (s *Store) MarkReplayed(ctx context.Context, dlqID id.ID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	e, ok := s.deadLetter[dlqID.String()]
	if !ok {
		return herald.ErrDLQNotFound
	}
	e.ReplayedAt = &at
	e.UpdatedAt = at
	return nil
}

// PurgeDLQ removes entries that failed before the given instant.
func (s *Store) PurgeDLQ(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var purged int64
	for key, e := range s.deadLetter {
		if e.FailedAt.Before(before) {
			delete(s.deadLetter, key)
			purged++
		}
	}
	return purged, nil
}

// CountDLQ returns the total number of DLQ entries.
func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return int64(len(s.deadLetter)), nil
}
