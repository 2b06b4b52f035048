package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/studiobuilderapp/studiobuilder/internal/catalog"
	"github.com/studiobuilderapp/studiobuilder/internal/logging"
	"github.com/studiobuilderapp/studiobuilder/internal/models"
	"github.com/studiobuilderapp/studiobuilder/internal/observability"
	"github.com/studiobuilderapp/studiobuilder/internal/orders"
)

// UserError carries a message safe to show to the admin UI verbatim.
type UserError struct {
	Message string
}

func (e UserError) Error() string {
	return e.Message
}

type paymentOrchestrator interface {
	Reconcile(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID) error
}

type catalogInvalidator interface {
	Invalidate(ctx context.Context)
}

// AdminService backs the admin area: order oversight and catalog management.
// It never talks to the gateway directly; payment actions go through the
// orchestrator so the same idempotence rules apply.
type AdminService struct {
	orderRepo   orderRepository
	catalogRepo *catalog.Repository
	payments    paymentOrchestrator
	storefront  catalogInvalidator
	logger      *slog.Logger
}

func NewAdminService(
	orderRepo orderRepository,
	catalogRepo *catalog.Repository,
	payments paymentOrchestrator,
	storefront catalogInvalidator,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		orderRepo:   orderRepo,
		catalogRepo: catalogRepo,
		payments:    payments,
		storefront:  storefront,
		logger:      logger,
	}
}

func (s *AdminService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

func (s *AdminService) ListOrders(ctx context.Context) ([]*models.Order, error) {
	return s.orderRepo.ListAll(ctx)
}

func (s *AdminService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.orderRepo.Get(ctx, orderID)
}

// MarkCompleted records fulfilment of a paid order. Repeating the call is a
// no-op; any other starting state is a conflict.
func (s *AdminService) MarkCompleted(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.StatusCompleted {
		return order, nil
	}
	if order.Status != models.StatusPaid {
		return nil, fmt.Errorf("%w: cannot complete order in status %s",
			orders.ErrInvalidStatusTransition, order.Status)
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, orderID, models.StatusCompleted, orders.StatusUpdate{})
	if err != nil {
		return nil, err
	}

	meter.Count("order.completed", 1)
	logger.Info("order marked completed", "order_id", orderID)
	return updated, nil
}

// BeginProcessing flags that the payment window is open for an order, so the
// admin list distinguishes carts that reached the gateway iframe from ones
// that never did.
func (s *AdminService) BeginProcessing(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.StatusProcessing {
		return order, nil
	}
	return s.orderRepo.UpdateStatus(ctx, orderID, models.StatusProcessing, orders.StatusUpdate{})
}

// CancelOrder cancels any non-terminal order. Orders that reached the gateway
// are cancelled through the orchestrator so the provider side is voided too;
// orders that never got a tracking id are cancelled locally.
func (s *AdminService) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status.Terminal() {
		if order.Status == models.StatusCancelled {
			return nil
		}
		return fmt.Errorf("%w: order is %s", orders.ErrInvalidStatusTransition, order.Status)
	}

	if order.GatewayTrackingID != "" {
		if err := s.payments.Cancel(ctx, orderID); err != nil {
			return err
		}
	} else {
		if _, err := s.orderRepo.UpdateStatus(ctx, orderID, models.StatusCancelled, orders.StatusUpdate{}); err != nil {
			return err
		}
	}

	meter.Count("admin.order.cancelled", 1)
	logger.Info("order cancelled by admin", "order_id", orderID)
	return nil
}

// ReconcileOrder forces a status check against the gateway, the same path the
// customer-facing triggers use.
func (s *AdminService) ReconcileOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.payments.Reconcile(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotInitiated) {
			return nil, UserError{Message: "Order never reached the payment gateway; there is nothing to reconcile."}
		}
		return nil, err
	}
	return order, nil
}

func (s *AdminService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	logger := s.loggerFromContext(ctx)

	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.Status.Terminal() {
		return UserError{Message: "Only completed or cancelled orders can be deleted."}
	}

	if err := s.orderRepo.Delete(ctx, orderID); err != nil {
		return err
	}
	logger.Info("order deleted", "order_id", orderID, "status", order.Status)
	return nil
}

func (s *AdminService) SaveProduct(ctx context.Context, product *models.Product) error {
	if strings.TrimSpace(product.Name) == "" {
		return UserError{Message: "Product name is required."}
	}
	if product.FileSizeGB < 0 || product.Price < 0 {
		return UserError{Message: "Product size and price must not be negative."}
	}
	if product.CategoryID != "" {
		if _, err := s.catalogRepo.GetCategory(ctx, product.CategoryID); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return UserError{Message: "Product references an unknown category."}
			}
			return err
		}
	}

	if err := s.catalogRepo.SaveProduct(ctx, product); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)

	meter := observability.MeterFromContext(ctx)
	meter.Count("catalog.product.saved", 1, sentry.WithAttributes(
		attribute.String("category_id", product.CategoryID),
	))
	return nil
}

func (s *AdminService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.catalogRepo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *AdminService) SaveCategory(ctx context.Context, category *models.Category) error {
	if strings.TrimSpace(category.Name) == "" {
		return UserError{Message: "Category name is required."}
	}

	if err := s.catalogRepo.SaveCategory(ctx, category); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *AdminService) DeleteCategory(ctx context.Context, id string) error {
	products, err := s.catalogRepo.ListProducts(ctx)
	if err != nil {
		return err
	}
	for _, product := range products {
		if product.CategoryID == id {
			return UserError{Message: "Category still has products; move or delete them first."}
		}
	}

	if err := s.catalogRepo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *AdminService) invalidateCatalog(ctx context.Context) {
	if s.storefront != nil {
		s.storefront.Invalidate(ctx)
	}
}
