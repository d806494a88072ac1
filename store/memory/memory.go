// Package memory is the in-memory Store backend. It is the default for
// tests and works for single-process deployments that can tolerate losing
// history on restart.
package memory

import (
	"context"
	"sync"

	herald "github.com/deltacrown/herald"
	"github.com/deltacrown/herald/catalog"
	"github.com/deltacrown/herald/dlq"
	"github.com/deltacrown/herald/endpoint"
	"github.com/deltacrown/herald/journal"
)

// Store holds everything in process memory behind one RWMutex. Reads return
// copies so callers can't mutate stored state.
type Store struct {
	mu     sync.RWMutex
	closed bool

	eventTypes map[string]*catalog.EventType // keyed by definition name
	endpoints  map[string]*endpoint.Endpoint // keyed by endpoint ID
	attempts   []*journal.Attempt
	summaries  []*journal.Summary
	deadLetter map[string]*dlq.Entry // keyed by DLQ entry ID
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		eventTypes: make(map[string]*catalog.EventType),
		endpoints:  make(map[string]*endpoint.Endpoint),
		deadLetter: make(map[string]*dlq.Entry),
	}
}

// Migrate is a no-op for the in-memory backend.
func (s *Store) Migrate(ctx context.Context) error {
	return nil
}

// Ping reports whether the store is usable.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return herald.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Subsequent operations fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// checkOpen must be called with at least a read lock held.
func (s *Store) checkOpen() error {
	if s.closed {
		return herald.ErrStoreClosed
	}
	return nil
}

// paginate applies offset/limit to a result slice. A limit of 0 means no limit.
func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
