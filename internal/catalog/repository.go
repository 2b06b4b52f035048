// Package catalog manages products, categories, and pricing for the studio
// builder storefront.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/studiobuilderapp/studiobuilder/internal/kv"
	"github.com/studiobuilderapp/studiobuilder/internal/models"
)

var ErrNotFound = errors.New("catalog entry not found")

// Repository persists catalog entities as JSON blobs in the kv store under
// product:<id> and category:<id> keys.
type Repository struct {
	store kv.Store
}

func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.get(ctx, kv.ProductKey(id), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) ListProducts(ctx context.Context) ([]models.Product, error) {
	records, err := r.store.List(ctx, kv.ProductPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]models.Product, 0, len(records))
	for _, record := range records {
		var product models.Product
		if err := json.Unmarshal(record.Value, &product); err != nil {
			return nil, fmt.Errorf("failed to decode product %q: %w", record.Key, err)
		}
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (r *Repository) SaveProduct(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	return r.set(ctx, kv.ProductKey(product.ID), product)
}

func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, kv.ProductKey(id)); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := r.get(ctx, kv.CategoryKey(id), &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	records, err := r.store.List(ctx, kv.CategoryPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories := make([]models.Category, 0, len(records))
	for _, record := range records {
		var category models.Category
		if err := json.Unmarshal(record.Value, &category); err != nil {
			return nil, fmt.Errorf("failed to decode category %q: %w", record.Key, err)
		}
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].SortOrder < categories[j].SortOrder })
	return categories, nil
}

func (r *Repository) SaveCategory(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	return r.set(ctx, kv.CategoryKey(category.ID), category)
}

func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, kv.CategoryKey(id)); err != nil {
		return fmt.Errorf("failed to delete category %s: %w", id, err)
	}
	return nil
}

func (r *Repository) get(ctx context.Context, key string, out any) error {
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to fetch %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return nil
}

func (r *Repository) set(ctx context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	if err := r.store.Set(ctx, key, encoded); err != nil {
		return fmt.Errorf("failed to persist %q: %w", key, err)
	}
	return nil
}
