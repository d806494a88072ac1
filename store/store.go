// Package store defines the composite persistence contract for Herald.
//
// A backend implements every sub-store (catalog, endpoints, journal, DLQ)
// plus lifecycle. Three backends ship with Herald: store/memory for tests
// and single-process setups, store/redis, and store/postgres.
package store

import (
	"context"

	"github.com/deltacrown/herald/catalog"
	"github.com/deltacrown/herald/dlq"
	"github.com/deltacrown/herald/endpoint"
	"github.com/deltacrown/herald/journal"
)

// Store is the full persistence interface a Herald backend implements.
type Store interface {
	catalog.Store
	endpoint.Store
	journal.Store
	dlq.Store

	// Migrate creates or upgrades the backend's schema and indexes.
	// Safe to call on every boot.
	Migrate(ctx context.Context) error

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
