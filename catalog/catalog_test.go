package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deltacrown/herald"
	"github.com/deltacrown/herald/catalog"
	"github.com/deltacrown/herald/store/memory"
)

func ctx() context.Context { return context.Background() }

func newCatalog() *catalog.Catalog {
	s := memory.New()
	return catalog.NewCatalog(s, catalog.Config{CacheTTL: 30 * time.Second}, nil)
}

func TestCatalogRegisterAndGet(t *testing.T) {
	c := newCatalog()

	et, err := c.RegisterType(ctx(), catalog.Definition{
		Name:        "payment_verified",
		Description: "Payment verified by an admin",
		Group:       "payments",
	})
	if err != nil {
		t.Fatal(err)
	}
	if et.ID.String() == "" {
		t.Fatal("expected non-empty ID")
	}

	got, err := c.GetType(ctx(), "payment_verified")
	if err != nil {
		t.Fatal(err)
	}
	if got.Definition.Name != "payment_verified" {
		t.Fatalf("got %q", got.Definition.Name)
	}
}

func TestCatalogCacheHit(t *testing.T) {
	c := newCatalog()

	_, err := c.RegisterType(ctx(), catalog.Definition{Name: "match_started"})
	if err != nil {
		t.Fatal(err)
	}

	// First call populates cache.
	got1, _ := c.GetType(ctx(), "match_started")
	// Second call should return same pointer (cache hit).
	got2, _ := c.GetType(ctx(), "match_started")

	if got1 != got2 {
		t.Fatal("expected cache hit (same pointer)")
	}
}

func TestCatalogCacheTTLExpiry(t *testing.T) {
	s := memory.New()
	c := catalog.NewCatalog(s, catalog.Config{CacheTTL: 1 * time.Millisecond}, nil)

	_, err := c.RegisterType(ctx(), catalog.Definition{Name: "bracket_updated"})
	if err != nil {
		t.Fatal(err)
	}

	// Wait for cache to expire.
	time.Sleep(5 * time.Millisecond)

	// Should still find it (re-read from store).
	_, err = c.GetType(ctx(), "bracket_updated")
	if err != nil {
		t.Fatal("expected to re-read from store after TTL, got:", err)
	}
}

func TestCatalogGetNotFound(t *testing.T) {
	c := newCatalog()

	_, err := c.GetType(ctx(), "does_not_exist")
	if !errors.Is(err, herald.ErrEventTypeNotFound) {
		t.Fatalf("expected ErrEventTypeNotFound, got %v", err)
	}
}

func TestCatalogUpsert(t *testing.T) {
	c := newCatalog()

	_, err := c.RegisterType(ctx(), catalog.Definition{
		Name:        "payment_verified",
		Description: "v1",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.RegisterType(ctx(), catalog.Definition{
		Name:        "payment_verified",
		Description: "v2",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, _ := c.GetType(ctx(), "payment_verified")
	if got.Definition.Description != "v2" {
		t.Fatalf("expected v2, got %q", got.Definition.Description)
	}
}

func TestCatalogDeleteDeprecates(t *testing.T) {
	c := newCatalog()

	_, _ = c.RegisterType(ctx(), catalog.Definition{Name: "registration_opened"})

	if err := c.DeleteType(ctx(), "registration_opened"); err != nil {
		t.Fatal(err)
	}

	// The type survives as deprecated so history stays interpretable.
	got, err := c.GetType(ctx(), "registration_opened")
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsDeprecated {
		t.Fatal("deleted type should be marked deprecated")
	}
	if got.DeprecatedAt == nil {
		t.Fatal("deprecated type should carry its deprecation instant")
	}
}

func TestCatalogListExcludesDeprecated(t *testing.T) {
	c := newCatalog()

	_, _ = c.RegisterType(ctx(), catalog.Definition{Name: "payment_verified"})
	_, _ = c.RegisterType(ctx(), catalog.Definition{Name: "match_started"})
	_ = c.DeleteType(ctx(), "match_started")

	types, err := c.ListTypes(ctx(), catalog.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 1 || types[0].Definition.Name != "payment_verified" {
		t.Fatalf("unexpected list: %+v", types)
	}

	all, err := c.ListTypes(ctx(), catalog.ListOpts{IncludeDeprecated: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 with deprecated included, got %d", len(all))
	}
}

func TestCatalogInvalidateCache(t *testing.T) {
	c := newCatalog()

	_, _ = c.RegisterType(ctx(), catalog.Definition{Name: "payout_processed"})

	// Get to populate cache.
	_, _ = c.GetType(ctx(), "payout_processed")

	// Invalidate.
	c.InvalidateCache()

	// Should still work (re-reads from store).
	_, err := c.GetType(ctx(), "payout_processed")
	if err != nil {
		t.Fatal(err)
	}
}

func TestCatalogWarmCache(t *testing.T) {
	s := memory.New()
	c := catalog.NewCatalog(s, catalog.Config{CacheTTL: 30 * time.Second}, nil)

	_, _ = c.RegisterType(ctx(), catalog.Definition{Name: "payment_verified"})

	c.InvalidateCache()
	if err := c.WarmCache(ctx()); err != nil {
		t.Fatal(err)
	}

	got1, _ := c.GetType(ctx(), "payment_verified")
	got2, _ := c.GetType(ctx(), "payment_verified")
	if got1 != got2 {
		t.Fatal("warmed cache should serve repeated lookups")
	}
}

func TestCatalogRegisterWithMetadata(t *testing.T) {
	c := newCatalog()

	et, err := c.RegisterType(ctx(), catalog.Definition{Name: "payment_verified"},
		catalog.WithMetadata(map[string]string{"owner": "payments-team"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if et.Metadata["owner"] != "payments-team" {
		t.Fatal("expected metadata")
	}
}
