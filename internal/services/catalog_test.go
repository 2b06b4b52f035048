package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/studiobuilderapp/studiobuilder/internal/cache"
	"github.com/studiobuilderapp/studiobuilder/internal/catalog"
	"github.com/studiobuilderapp/studiobuilder/internal/kv"
	"github.com/studiobuilderapp/studiobuilder/internal/models"
)

type countingCache struct {
	mu      sync.Mutex
	inner   cache.Provider
	gets    int
	sets    int
	deletes int
}

func newCountingCache(t *testing.T) *countingCache {
	t.Helper()
	inner, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("NewMemoryProvider() error: %v", err)
	}
	return &countingCache{inner: inner}
}

func (c *countingCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.inner.Get(ctx, key)
}

func (c *countingCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.inner.Set(ctx, key, value, ttl)
}

func (c *countingCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.inner.Delete(ctx, key)
}

func (c *countingCache) Close() error { return c.inner.Close() }

func testRates() *catalog.RateTable {
	return &catalog.RateTable{
		Currency:    "TZS",
		DefaultRate: 15000,
		StorageDevices: []catalog.StorageDevice{
			{Type: models.StorageHDD, Capacities: []catalog.StorageCapacity{{CapacityGB: 500, Price: 110000}}},
		},
	}
}

func newCatalogFixture(t *testing.T) (*CatalogService, *catalog.Repository, *countingCache) {
	t.Helper()

	repo := catalog.NewRepository(kv.NewMemoryStore())
	cacheProvider := newCountingCache(t)
	service := NewCatalogService(repo, testRates(), cacheProvider, nil)
	return service, repo, cacheProvider
}

func seedCatalog(t *testing.T, repo *catalog.Repository) *models.Product {
	t.Helper()
	ctx := context.Background()

	if err := repo.SaveCategory(ctx, &models.Category{ID: "daw", Name: "DAWs", SortOrder: 1}); err != nil {
		t.Fatalf("SaveCategory() error: %v", err)
	}
	product := &models.Product{
		ID:         "p1",
		CategoryID: "daw",
		Name:       "Reaper",
		FileSizeGB: 1.5,
		Price:      30000,
		LibraryPacks: []models.LibraryPack{
			{ID: "lp1", Name: "Drum Kit Vol 1", FileSizeGB: 12, Price: 10000},
		},
	}
	if err := repo.SaveProduct(ctx, product); err != nil {
		t.Fatalf("SaveProduct() error: %v", err)
	}
	return product
}

func TestStorefrontCaching(t *testing.T) {
	t.Parallel()

	service, repo, cacheProvider := newCatalogFixture(t)
	seedCatalog(t, repo)
	ctx := context.Background()

	view, err := service.Storefront(ctx)
	if err != nil {
		t.Fatalf("Storefront() error: %v", err)
	}
	if len(view.Products) != 1 || len(view.Categories) != 1 {
		t.Fatalf("Storefront() = %d products, %d categories; want 1 and 1", len(view.Products), len(view.Categories))
	}
	if view.Currency != "TZS" || len(view.StorageDevices) != 1 {
		t.Fatalf("Storefront() price table missing: %+v", view)
	}

	if _, err := service.Storefront(ctx); err != nil {
		t.Fatalf("second Storefront() error: %v", err)
	}
	if cacheProvider.sets != 1 {
		t.Fatalf("cache written %d times, want 1; second read should come from cache", cacheProvider.sets)
	}

	service.Invalidate(ctx)
	if cacheProvider.deletes != 1 {
		t.Fatalf("cache deleted %d times, want 1", cacheProvider.deletes)
	}

	if _, err := service.Storefront(ctx); err != nil {
		t.Fatalf("Storefront() after invalidate error: %v", err)
	}
	if cacheProvider.sets != 2 {
		t.Fatalf("cache written %d times after invalidate, want 2", cacheProvider.sets)
	}
}

func TestResolveSelection(t *testing.T) {
	t.Parallel()

	service, repo, _ := newCatalogFixture(t)
	seedCatalog(t, repo)
	ctx := context.Background()

	items, err := service.ResolveSelection(ctx, []string{"p1"}, []string{"lp1"})
	if err != nil {
		t.Fatalf("ResolveSelection() error: %v", err)
	}
	if len(items.Products) != 1 || items.Products[0].ID != "p1" {
		t.Fatalf("products = %+v, want p1", items.Products)
	}
	if len(items.LibraryPacks) != 1 || items.LibraryPacks[0].ID != "lp1" {
		t.Fatalf("packs = %+v, want lp1", items.LibraryPacks)
	}
}

func TestResolveSelectionErrors(t *testing.T) {
	t.Parallel()

	service, repo, _ := newCatalogFixture(t)
	seedCatalog(t, repo)
	ctx := context.Background()

	tests := []struct {
		name     string
		products []string
		packs    []string
	}{
		{name: "unknown product", products: []string{"nope"}},
		{name: "duplicate product", products: []string{"p1", "p1"}},
		{name: "pack without its product", products: []string{}, packs: []string{"lp1"}},
		{name: "unknown pack", products: []string{"p1"}, packs: []string{"nope"}},
		{name: "same pack twice", products: []string{"p1"}, packs: []string{"lp1", "lp1"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := service.ResolveSelection(ctx, tc.products, tc.packs)
			var userErr UserError
			if !errors.As(err, &userErr) {
				t.Fatalf("ResolveSelection() error = %v, want UserError", err)
			}
		})
	}
}
