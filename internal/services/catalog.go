package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/studiobuilderapp/studiobuilder/internal/cache"
	"github.com/studiobuilderapp/studiobuilder/internal/catalog"
	"github.com/studiobuilderapp/studiobuilder/internal/logging"
	"github.com/studiobuilderapp/studiobuilder/internal/models"
)

const storefrontCacheTTL = 5 * time.Minute

// StorefrontView is everything the builder UI needs to render the catalog:
// categories, products, and the storage/shipping price table.
type StorefrontView struct {
	Categories     []models.Category       `json:"categories"`
	Products       []models.Product        `json:"products"`
	StorageDevices []catalog.StorageDevice `json:"storage_devices"`
	Currency       string                  `json:"currency"`
}

// CatalogService serves the storefront view, cached because the catalog is
// read on every page load and only changes on admin edits.
type CatalogService struct {
	repo   *catalog.Repository
	rates  *catalog.RateTable
	cache  cache.Provider
	logger *slog.Logger
}

func NewCatalogService(repo *catalog.Repository, rates *catalog.RateTable, cacheProvider cache.Provider, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		rates:  rates,
		cache:  cacheProvider,
		logger: logger,
	}
}

func (s *CatalogService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

func (s *CatalogService) Storefront(ctx context.Context) (*StorefrontView, error) {
	logger := s.loggerFromContext(ctx)

	if cached, err := s.cache.Get(ctx, cache.CatalogKey()); err == nil {
		var view StorefrontView
		decodeErr := json.Unmarshal([]byte(cached), &view)
		if decodeErr == nil {
			return &view, nil
		}
		logger.Warn("discarding undecodable cached catalog", "error", decodeErr)
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	view := &StorefrontView{
		Categories:     categories,
		Products:       products,
		StorageDevices: s.rates.StorageDevices,
		Currency:       s.rates.Currency,
	}

	if encoded, err := json.Marshal(view); err == nil {
		if err := s.cache.Set(ctx, cache.CatalogKey(), string(encoded), storefrontCacheTTL); err != nil {
			logger.Warn("failed to cache catalog", "error", err)
		}
	}

	return view, nil
}

// ResolveSelection turns the ids picked in the builder into an item snapshot.
// Pack ids must belong to one of the selected products; prices and sizes are
// frozen into the snapshot so later catalog edits cannot change a placed
// order.
func (s *CatalogService) ResolveSelection(ctx context.Context, productIDs, packIDs []string) (models.OrderItems, error) {
	var items models.OrderItems

	packsByID := make(map[string]models.LibraryPack)
	seen := make(map[string]bool)
	for _, id := range productIDs {
		if seen[id] {
			return models.OrderItems{}, UserError{Message: "Duplicate product in selection."}
		}
		seen[id] = true

		product, err := s.repo.GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return models.OrderItems{}, UserError{Message: "Selection contains an unknown product."}
			}
			return models.OrderItems{}, err
		}
		items.Products = append(items.Products, *product)
		for _, pack := range product.LibraryPacks {
			packsByID[pack.ID] = pack
		}
	}

	for _, id := range packIDs {
		pack, ok := packsByID[id]
		if !ok {
			return models.OrderItems{}, UserError{Message: "Library pack does not belong to any selected product."}
		}
		items.LibraryPacks = append(items.LibraryPacks, pack)
		delete(packsByID, id)
	}

	return items, nil
}

// Invalidate drops the cached view; the next Storefront call rebuilds it.
func (s *CatalogService) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.CatalogKey()); err != nil {
		s.loggerFromContext(ctx).Warn("failed to invalidate catalog cache", "error", err)
	}
}
