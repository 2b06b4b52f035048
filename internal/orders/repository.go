// Package orders provides durable CRUD for order records on top of the kv
// store. All status writes go through UpdateStatus, which serializes
// read-modify-write per order id and enforces the transition rules.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/studiobuilderapp/studiobuilder/internal/kv"
	"github.com/studiobuilderapp/studiobuilder/internal/models"
)

var (
	// ErrNotFound means no order record exists for the given id.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidStatusTransition means the requested status change would
	// violate the order state machine (including regressing a terminal state).
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	// ErrTrackingIDConflict means a write tried to replace an existing
	// gateway tracking id with a different one. One order maps to at most one
	// provider transaction; a conflict signals a merchant-reference collision.
	ErrTrackingIDConflict = errors.New("gateway tracking id conflict")
)

type Repository struct {
	store  kv.Store
	logger *slog.Logger
	locks  keyedLocks
}

func NewRepository(store kv.Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Repository{store: store, logger: logger}
}

type CreateInput struct {
	Customer       models.Customer
	Items          models.OrderItems
	Storage        models.StorageSelection
	TotalStorageGB float64
	TotalAmount    float64
	Currency       string
}

// Create assigns a fresh id, stamps createdAt, persists the record with
// status pending_payment, and returns it. On persistence failure the caller
// must not assume the order exists.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	order := &models.Order{
		ID:             uuid.New(),
		Customer:       input.Customer,
		Items:          input.Items,
		Storage:        input.Storage,
		TotalStorageGB: input.TotalStorageGB,
		TotalAmount:    input.TotalAmount,
		Currency:       input.Currency,
		Status:         models.StatusPendingPayment,
		CreatedAt:      time.Now().UTC(),
	}

	if err := r.persist(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Get fetches an order by id. Absence is reported as ErrNotFound so callers
// can distinguish "no such order" from "store unavailable".
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	raw, err := r.store.Get(ctx, kv.OrderKey(id.String()))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %s: %w", id, err)
	}

	var order models.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", id, err)
	}
	return &order, nil
}

// StatusUpdate carries the optional denormalized payment fields written
// alongside a status change.
type StatusUpdate struct {
	PaymentMethod    models.PaymentMethod
	TrackingID       string
	ConfirmationCode string
}

// UpdateStatus performs a locked read-modify-write of the order's status and
// payment fields. Writes that would regress a terminal state or skip a
// transition return ErrInvalidStatusTransition; same-status writes are
// idempotent no-ops for the status itself. A tracking id, once set, is never
// cleared and never replaced with a different value.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, update StatusUpdate) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown order status %q", status)
	}

	unlock := r.locks.lock(id.String())
	defer unlock()

	order, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !models.ValidTransition(order.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s for order %s", ErrInvalidStatusTransition, order.Status, status, id)
	}

	if update.TrackingID != "" {
		if order.GatewayTrackingID != "" && order.GatewayTrackingID != update.TrackingID {
			r.logger.Error("refusing to overwrite gateway tracking id",
				"order_id", id,
				"existing_tracking_id", order.GatewayTrackingID,
				"new_tracking_id", update.TrackingID)
			return nil, fmt.Errorf("%w: order %s already tracks %s", ErrTrackingIDConflict, id, order.GatewayTrackingID)
		}
		order.GatewayTrackingID = update.TrackingID
	}
	if update.PaymentMethod != "" {
		order.PaymentMethod = update.PaymentMethod
	}
	if update.ConfirmationCode != "" {
		order.ConfirmationCode = update.ConfirmationCode
	}
	if status == models.StatusPaid && order.PaidAt.IsZero() {
		order.PaidAt = time.Now().UTC()
	}
	order.Status = status

	if err := r.persist(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListAll returns every order, most recent first. Admin listing only; a full
// prefix scan is fine at this scale.
func (r *Repository) ListAll(ctx context.Context) ([]*models.Order, error) {
	records, err := r.store.List(ctx, kv.OrderPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	result := make([]*models.Order, 0, len(records))
	for _, record := range records {
		var order models.Order
		if err := json.Unmarshal(record.Value, &order); err != nil {
			r.logger.Warn("skipping undecodable order record", "key", record.Key, "error", err)
			continue
		}
		result = append(result, &order)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Delete removes an order record. Admin-only, terminal action.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	unlock := r.locks.lock(id.String())
	defer unlock()

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, kv.OrderKey(id.String())); err != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, err)
	}
	return nil
}

func (r *Repository) persist(ctx context.Context, order *models.Order) error {
	encoded, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order %s: %w", order.ID, err)
	}
	if err := r.store.Set(ctx, kv.OrderKey(order.ID.String()), encoded); err != nil {
		return fmt.Errorf("failed to persist order %s: %w", order.ID, err)
	}
	return nil
}
