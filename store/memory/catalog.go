package memory

import (
	"context"
	"sort"
	"time"

	herald "github.com/deltacrown/herald"
	"github.com/deltacrown/herald/catalog"
	"github.com/deltacrown/herald/id"
)

func cloneEventType(et *catalog.EventType) *catalog.EventType {
	out := *et
	if et.Metadata != nil {
		out.Metadata = make(map[string]string, len(et.Metadata))
		for k, v := range et.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// RegisterType upserts an event type by definition name.
func (s *Store) RegisterType(ctx context.Context, et *catalog.EventType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	// Re-registering keeps the original identity so stored references
	// (journal rows, endpoint subscriptions) stay valid.
	if existing, ok := s.eventTypes[et.Definition.Name]; ok {
		et.ID = existing.ID
		et.CreatedAt = existing.CreatedAt
		et.UpdatedAt = time.Now().UTC()
	}

	s.eventTypes[et.Definition.Name] = cloneEventType(et)
	return nil
}

// GetType returns an event type by name.
func (s *Store) GetType(ctx context.Context, name string) (*catalog.EventType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	et, ok := s.eventTypes[name]
	if !ok {
		return nil, herald.ErrEventTypeNotFound
	}
	return cloneEventType(et), nil
}

// GetTypeByID returns an event type by its TypeID.
func (s *Store) GetTypeByID(ctx context.Context, etID id.ID) (*catalog.EventType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	for _, et := range s.eventTypes {
		if et.ID == etID {
			return cloneEventType(et), nil
		}
	}
	return nil, herald.ErrEventTypeNotFound
}

// ListTypes returns registered event types sorted by name.
func (s *Store) ListTypes(ctx context.Context, opts catalog.ListOpts) ([]*catalog.EventType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	out := make([]*catalog.EventType, 0, len(s.eventTypes))
	for _, et := range s.eventTypes {
		if et.IsDeprecated && !opts.IncludeDeprecated {
			continue
		}
		if opts.Group != "" && et.Definition.Group != opts.Group {
			continue
		}
		out = append(out, cloneEventType(et))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Definition.Name < out[j].Definition.Name
	})
	return paginate(out, opts.Offset, opts.Limit), nil
}

// DeleteType deprecates an event type. The row is kept so history stays
// interpretable.
func (s *Store) DeleteType(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	et, ok := s.eventTypes[name]
	if !ok {
		return herald.ErrEventTypeNotFound
	}

	now := time.Now().UTC()
	et.IsDeprecated = true
	et.DeprecatedAt = &now
	et.UpdatedAt = now
	return nil
}
