package memory

import (
	"context"
	"sort"
	"time"

	herald "github.com/deltacrown/herald"
	"github.com/deltacrown/herald/catalog"
	"github.com/deltacrown/herald/endpoint"
	"github.com/deltacrown/herald/id"
)

func cloneEndpoint(ep *endpoint.Endpoint) *endpoint.Endpoint {
	out := *ep
	if ep.EventTypes != nil {
		out.EventTypes = append([]string(nil), ep.EventTypes...)
	}
	if ep.Metadata != nil {
		out.Metadata = make(map[string]string, len(ep.Metadata))
		for k, v := range ep.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// CreateEndpoint persists a new endpoint.
func (s *Store) CreateEndpoint(ctx context.Context, ep *endpoint.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.endpoints[ep.ID.String()] = cloneEndpoint(ep)
	return nil
}

// GetEndpoint returns an endpoint by ID.
func (s *Store) GetEndpoint(ctx context.Context, epID id.ID) (*endpoint.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	ep, ok := s.endpoints[epID.String()]
	if !ok {
		return nil, herald.ErrEndpointNotFound
	}
	return cloneEndpoint(ep), nil
}

// UpdateEndpoint replaces an existing endpoint.
func (s *Store) UpdateEndpoint(ctx context.Context, ep *endpoint.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	key := ep.ID.String()
	existing, ok := s.endpoints[key]
	if !ok {
		return herald.ErrEndpointNotFound
	}

	ep.CreatedAt = existing.CreatedAt
	ep.UpdatedAt = time.Now().UTC()
	s.endpoints[key] = cloneEndpoint(ep)
	return nil
}

// DeleteEndpoint removes an endpoint.
func (s *Store) DeleteEndpoint(ctx context.Context, epID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	key := epID.String()
	if _, ok := s.endpoints[key]; !ok {
		return herald.ErrEndpointNotFound
	}
	delete(s.endpoints, key)
	return nil
}

// ListEndpoints returns endpoints sorted by creation time, oldest first.
func (s *Store) ListEndpoints(ctx context.Context, opts endpoint.ListOpts) ([]*endpoint.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	out := make([]*endpoint.Endpoint, 0, len(s.endpoints))
	for _, ep := range s.endpoints {
		if opts.Enabled != nil && ep.Enabled != *opts.Enabled {
			continue
		}
		out = append(out, cloneEndpoint(ep))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return paginate(out, opts.Offset, opts.Limit), nil
}

// Resolve returns all enabled endpoints whose subscription patterns match
// the event type.
func (s *Store) Resolve(ctx context.Context, eventType string) ([]*endpoint.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var out []*endpoint.Endpoint
	for _, ep := range s.endpoints {
		if !ep.Enabled {
			continue
		}
		for _, pattern := range ep.EventTypes {
			if catalog.Match(pattern, eventType) {
				out = append(out, cloneEndpoint(ep))
				break
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// SetEnabled flips the endpoint's enabled flag.
func (s *Store) SetEnabled(ctx context.Context, epID id.ID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	ep, ok := s.endpoints[epID.String()]
	if !ok {
		return herald.ErrEndpointNotFound
	}
	ep.Enabled = enabled
	ep.UpdatedAt = time.Now().UTC()
	return nil
}
