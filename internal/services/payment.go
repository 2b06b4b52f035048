package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/studiobuilderapp/studiobuilder/internal/cache"
	"github.com/studiobuilderapp/studiobuilder/internal/catalog"
	"github.com/studiobuilderapp/studiobuilder/internal/logging"
	"github.com/studiobuilderapp/studiobuilder/internal/models"
	"github.com/studiobuilderapp/studiobuilder/internal/observability"
	"github.com/studiobuilderapp/studiobuilder/internal/orders"
	"github.com/studiobuilderapp/studiobuilder/internal/pesapal"
)

// ErrNotInitiated means reconcile/cancel was requested for an order that was
// never handed to the gateway (no tracking id). Caller misuse, not retryable.
var ErrNotInitiated = errors.New("order has no gateway tracking id")

type orderRepository interface {
	Create(ctx context.Context, input orders.CreateInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, update orders.StatusUpdate) (*models.Order, error)
	ListAll(ctx context.Context) ([]*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type gatewayClient interface {
	SubmitOrder(ctx context.Context, order pesapal.OrderRequest) (*pesapal.OrderResponse, error)
	GetTransactionStatus(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error)
	CancelOrder(ctx context.Context, trackingID string) (*pesapal.CancelResult, error)
}

type orderPricer interface {
	ComputeTotals(items models.OrderItems, storage models.StorageSelection, destination string) (catalog.Totals, error)
}

// PaymentConfig carries the request-shaping knobs injected at construction.
type PaymentConfig struct {
	Currency        string
	CallbackURL     string
	CancellationURL string
	Branch          string
	CountryCode     string
}

// PaymentService drives an order from creation through its terminal state
// against the payment gateway. Reconcile is the single entry point for every
// status trigger (redirect callback, postMessage relay, IPN, manual poll) and
// is safe to call concurrently for the same order.
type PaymentService struct {
	orderRepo   orderRepository
	gateway     gatewayClient
	pricer      orderPricer
	emailSender OrderEmailSender
	statusCache cache.Provider
	cfg         PaymentConfig
	logger      *slog.Logger
}

func NewPaymentService(orderRepo orderRepository, gateway gatewayClient, pricer orderPricer, emailSender OrderEmailSender, statusCache cache.Provider, cfg PaymentConfig, logger *slog.Logger) *PaymentService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}
	return &PaymentService{
		orderRepo:   orderRepo,
		gateway:     gateway,
		pricer:      pricer,
		emailSender: emailSender,
		statusCache: statusCache,
		cfg:         cfg,
		logger:      logger,
	}
}

func (s *PaymentService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type InitiateInput struct {
	Customer    models.Customer
	Items       models.OrderItems
	Storage     models.StorageSelection
	Description string
}

type InitiateResult struct {
	Order       *models.Order
	RedirectURL string
}

// Initiate prices the selection, creates the order record, and submits it to
// the gateway with the order id as merchant reference. On submission failure
// the order stays pending_payment with no tracking id; the recovery path is a
// fresh Initiate, which creates a new order record. A provider-side
// transaction may already exist in that window, which reconciliation against
// the gateway would surface.
func (s *PaymentService) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.payment.initiate",
		sentry.WithOpName("service.payment"),
		sentry.WithDescription("Initiate"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	totals, err := s.pricer.ComputeTotals(input.Items, input.Storage, input.Customer.Location)
	if err != nil {
		meter.Count("order.initiate.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "pricing_failed"),
		))
		// Pricer failures describe problems with the shopper's own selection.
		return nil, UserError{Message: err.Error()}
	}

	order, err := s.orderRepo.Create(ctx, orders.CreateInput{
		Customer:       input.Customer,
		Items:          input.Items,
		Storage:        input.Storage,
		TotalStorageGB: totals.StorageGB,
		TotalAmount:    totals.Amount,
		Currency:       s.cfg.Currency,
	})
	if err != nil {
		meter.Count("order.initiate.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "order_create_failed"),
		))
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	meter.Count("order.created", 1)

	description := strings.TrimSpace(input.Description)
	if description == "" {
		itemCount := len(input.Items.Products) + len(input.Items.LibraryPacks)
		description = fmt.Sprintf("Studio Builder Order - %d items", itemCount)
	}

	submission, err := s.gateway.SubmitOrder(ctx, s.buildOrderRequest(order, description))
	if err != nil {
		meter.Count("order.initiate.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "gateway_submit_failed"),
		))
		logger.Warn("gateway rejected order submission, order left pending without tracking id",
			"order_id", order.ID, "error", err)
		return nil, fmt.Errorf("failed to submit order %s to gateway: %w", order.ID, err)
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, order.ID, models.StatusPendingPayment, orders.StatusUpdate{
		PaymentMethod: models.PaymentMethodPesapal,
		TrackingID:    submission.TrackingID,
	})
	if err != nil {
		// The provider already accepted the order; only the local tracking-id
		// write failed. Surface the tracking id so the operator can reconcile.
		logger.Error("failed to attach tracking id after gateway accepted order",
			"order_id", order.ID, "tracking_id", submission.TrackingID, "error", err)
		return nil, fmt.Errorf("gateway accepted order %s (tracking id %s) but local update failed: %w",
			order.ID, submission.TrackingID, err)
	}

	meter.Count("payment.initiated", 1)
	logger.Info("payment initiated", "order_id", updated.ID, "tracking_id", updated.GatewayTrackingID)

	return &InitiateResult{Order: updated, RedirectURL: submission.RedirectURL}, nil
}

func (s *PaymentService) buildOrderRequest(order *models.Order, description string) pesapal.OrderRequest {
	firstName, lastName := splitName(order.Customer.Name)
	return pesapal.OrderRequest{
		ID:              order.ID.String(),
		Currency:        order.Currency,
		Amount:          order.TotalAmount,
		Description:     description,
		CallbackURL:     s.cfg.CallbackURL,
		CancellationURL: s.cfg.CancellationURL,
		Branch:          s.cfg.Branch,
		BillingAddress: pesapal.BillingAddress{
			EmailAddress: order.Customer.Email,
			CountryCode:  s.cfg.CountryCode,
			FirstName:    firstName,
			LastName:     lastName,
			City:         order.Customer.Location,
		},
		RedirectMode: "PARENT_WINDOW",
	}
}

// Reconcile queries the gateway for the order's transaction outcome and
// applies it to the local record. It is idempotent: repeated calls with the
// same remote outcome converge on the same final state, and a local terminal
// state always wins over a stale remote report.
func (s *PaymentService) Reconcile(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.payment.reconcile",
		sentry.WithOpName("service.payment"),
		sentry.WithDescription("Reconcile"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.GatewayTrackingID == "" {
		return nil, fmt.Errorf("%w: order %s", ErrNotInitiated, orderID)
	}

	status, err := s.transactionStatus(ctx, order.GatewayTrackingID)
	if err != nil {
		// Transport and provider failures are retryable and never interpreted
		// as a status change.
		meter.Count("payment.reconcile.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "status_query_failed"),
		))
		return nil, fmt.Errorf("failed to query transaction status for order %s: %w", orderID, err)
	}

	target, ok := statusForCode(status.StatusCode)
	if !ok {
		logger.Info("gateway reported non-actionable status",
			"order_id", orderID, "status_code", int(status.StatusCode), "description", status.Description)
		return order, nil
	}

	if order.Status == target {
		return order, nil
	}
	if order.Status.Terminal() {
		logger.Warn("gateway outcome would regress terminal order state, keeping local state",
			"order_id", orderID, "local_status", order.Status, "gateway_status", status.StatusCode.String())
		meter.Count("payment.reconcile.anomaly", 1, sentry.WithAttributes(
			attribute.String("reason", "terminal_regression"),
		))
		return order, nil
	}
	// A paid order stays paid when the payment-in-flight outcome is replayed;
	// only admin fulfilment moves it forward.
	if order.Status == models.StatusPaid && target != models.StatusCancelled {
		return order, nil
	}

	update := orders.StatusUpdate{}
	if target == models.StatusPaid {
		update.PaymentMethod = models.PaymentMethodPesapal
		update.ConfirmationCode = status.ConfirmationCode
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, orderID, target, update)
	if err != nil {
		if errors.Is(err, orders.ErrInvalidStatusTransition) {
			// A concurrent trigger won the race; the stored state is the
			// truth and this call converges on it.
			logger.Info("concurrent reconciliation already applied a different outcome",
				"order_id", orderID, "attempted_status", target, "error", err)
			return s.orderRepo.Get(ctx, orderID)
		}
		return nil, err
	}

	meter.Count("payment.reconciled", 1, sentry.WithAttributes(
		attribute.String("status", string(updated.Status)),
	))
	logger.Info("order reconciled",
		"order_id", orderID, "status", updated.Status, "gateway_status", status.StatusCode.String())

	if updated.Status == models.StatusPaid && order.Status != models.StatusPaid {
		if emailErr := s.emailSender.SendOrderConfirmation(ctx, updated); emailErr != nil {
			logger.Error("failed to send order confirmation email", "order_id", orderID, "error", emailErr)
		}
	}

	return updated, nil
}

// Cancel cancels the provider-side transaction and marks the local order
// cancelled. A provider refusal (typically "already completed") is reported
// but does not abort the local cancellation; Reconcile remains the source of
// truth if the payment actually went through.
func (s *PaymentService) Cancel(ctx context.Context, orderID uuid.UUID) error {
	span := sentry.StartSpan(
		ctx,
		"service.payment.cancel",
		sentry.WithOpName("service.payment"),
		sentry.WithDescription("Cancel"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", orders.ErrInvalidStatusTransition, orderID, order.Status)
	}
	if order.GatewayTrackingID == "" {
		return fmt.Errorf("%w: order %s", ErrNotInitiated, orderID)
	}

	result, err := s.gateway.CancelOrder(ctx, order.GatewayTrackingID)
	if err != nil {
		message := ""
		if result != nil {
			message = result.Message
		}
		logger.Warn("gateway did not accept cancellation, cancelling locally anyway",
			"order_id", orderID, "gateway_message", message, "error", err)
	}

	if _, err := s.orderRepo.UpdateStatus(ctx, orderID, models.StatusCancelled, orders.StatusUpdate{}); err != nil {
		return fmt.Errorf("failed to mark order %s cancelled: %w", orderID, err)
	}

	meter.Count("payment.cancelled", 1)
	logger.Info("order cancelled", "order_id", orderID)
	return nil
}

// reconcileMemoTTL bounds how long a gateway status answer is reused. The
// redirect callback, the postMessage relay, and the IPN usually fire within a
// couple of seconds of each other for the same transaction.
const reconcileMemoTTL = 10 * time.Second

// transactionStatus queries the gateway, memoizing successful answers briefly
// so a burst of triggers for the same transaction costs one remote call.
func (s *PaymentService) transactionStatus(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error) {
	if s.statusCache == nil {
		return s.gateway.GetTransactionStatus(ctx, trackingID)
	}

	key := cache.ReconcileKey(trackingID)
	if cached, err := s.statusCache.Get(ctx, key); err == nil {
		var status pesapal.TransactionStatus
		if json.Unmarshal([]byte(cached), &status) == nil {
			return &status, nil
		}
	}

	status, err := s.gateway.GetTransactionStatus(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	// Only final outcomes are memoized; an in-flight answer must not mask a
	// completion that lands moments later.
	if status.StatusCode == pesapal.StatusCompleted || status.StatusCode == pesapal.StatusReversed {
		if encoded, err := json.Marshal(status); err == nil {
			_ = s.statusCache.Set(ctx, key, string(encoded), reconcileMemoTTL)
		}
	}
	return status, nil
}

func statusForCode(code pesapal.PaymentStatus) (models.OrderStatus, bool) {
	switch code {
	case pesapal.StatusCompleted:
		return models.StatusPaid, true
	case pesapal.StatusFailed:
		// Failed payments keep the order open so the shopper can retry.
		return models.StatusPendingPayment, true
	case pesapal.StatusReversed:
		return models.StatusCancelled, true
	default:
		return "", false
	}
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(strings.TrimSpace(full))
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
