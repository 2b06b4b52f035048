package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/studiobuilderapp/studiobuilder/internal/models"
	"github.com/studiobuilderapp/studiobuilder/internal/orders"
	"github.com/studiobuilderapp/studiobuilder/internal/services"
)

type orderStatusResponse struct {
	Order *models.Order `json:"order"`
}

// PaymentCallback handles the gateway redirect after the shopper finishes the
// payment flow. The merchant reference carries our order id; the tracking id
// is logged for correlation but the reconcile runs off the stored one.
func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	trackingID := strings.TrimSpace(r.URL.Query().Get("OrderTrackingId"))
	merchantRef := strings.TrimSpace(r.URL.Query().Get("OrderMerchantReference"))

	orderID, err := uuid.Parse(merchantRef)
	if err != nil {
		logger.Warn("payment callback with unparseable merchant reference",
			"merchant_reference", merchantRef, "tracking_id", trackingID)
		h.writeError(w, r, http.StatusBadRequest, "Invalid merchant reference")
		return
	}

	order, err := h.paymentService.Reconcile(ctx, orderID)
	if err != nil {
		h.reconcileError(w, r, orderID, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, orderStatusResponse{Order: order})
}

// PaymentCancelled is the gateway's abandon-payment return URL. The order is
// still reconciled: shoppers sometimes land here after paying.
func (h *Handlers) PaymentCancelled(w http.ResponseWriter, r *http.Request) {
	h.PaymentCallback(w, r)
}

type paymentEventRequest struct {
	OrderTrackingID        string `json:"order_tracking_id" validate:"omitempty,max=100"`
	OrderMerchantReference string `json:"order_merchant_reference" validate:"required,uuid"`
}

// PaymentEvent is the relay for the payment iframe's postMessage signal. The
// browser reports completion here so the order is reconciled even when the
// redirect back to us never happens.
func (h *Handlers) PaymentEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req paymentEventRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	orderID, err := uuid.Parse(req.OrderMerchantReference)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid merchant reference")
		return
	}

	order, err := h.paymentService.Reconcile(ctx, orderID)
	if err != nil {
		h.reconcileError(w, r, orderID, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, orderStatusResponse{Order: order})
}

type ipnRequest struct {
	OrderTrackingID        string `json:"OrderTrackingId"`
	OrderMerchantReference string `json:"OrderMerchantReference"`
	OrderNotificationType  string `json:"OrderNotificationType"`
}

type ipnResponse struct {
	OrderNotificationType  string `json:"orderNotificationType"`
	OrderTrackingID        string `json:"orderTrackingId"`
	OrderMerchantReference string `json:"orderMerchantReference"`
	Status                 int    `json:"status"`
}

// PaymentIPN receives the gateway's server-to-server change notifications.
// The gateway retries on a non-200 acknowledgement status, so transient
// reconcile failures report 500 in the body to get the retry.
func (h *Handlers) PaymentIPN(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	var req ipnRequest
	if err := h.decodeIPN(r, &req); err != nil {
		logger.Warn("undecodable IPN payload", "error", err)
		h.writeError(w, r, http.StatusBadRequest, "Invalid IPN payload")
		return
	}

	ack := ipnResponse{
		OrderNotificationType:  req.OrderNotificationType,
		OrderTrackingID:        req.OrderTrackingID,
		OrderMerchantReference: req.OrderMerchantReference,
		Status:                 http.StatusOK,
	}

	orderID, err := uuid.Parse(strings.TrimSpace(req.OrderMerchantReference))
	if err != nil {
		// Not one of ours; acknowledge so the gateway stops retrying.
		logger.Warn("IPN with unknown merchant reference",
			"merchant_reference", req.OrderMerchantReference, "tracking_id", req.OrderTrackingID)
		h.writeJSON(w, r, http.StatusOK, ack)
		return
	}

	if _, err := h.paymentService.Reconcile(ctx, orderID); err != nil {
		switch {
		case errors.Is(err, orders.ErrNotFound), errors.Is(err, services.ErrNotInitiated):
			logger.Warn("IPN for unreconcilable order", "order_id", orderID, "error", err)
		default:
			logger.Error("IPN reconcile failed", "order_id", orderID, "error", err)
			ack.Status = http.StatusInternalServerError
		}
	}

	h.writeJSON(w, r, http.StatusOK, ack)
}

// OrderStatus returns the stored order without touching the gateway.
func (h *Handlers) OrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}

	order, err := h.adminService.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			h.writeError(w, r, http.StatusNotFound, "Order not found")
			return
		}
		h.loggerFromContext(r.Context()).Error("failed to load order", "order_id", orderID, "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to load order")
		return
	}

	h.writeJSON(w, r, http.StatusOK, orderStatusResponse{Order: order})
}

// OrderReconcile is the manual poll trigger the builder UI calls while the
// payment window is open.
func (h *Handlers) OrderReconcile(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}

	order, err := h.paymentService.Reconcile(r.Context(), orderID)
	if err != nil {
		h.reconcileError(w, r, orderID, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, orderStatusResponse{Order: order})
}

// OrderCancel lets the shopper abandon an open order.
func (h *Handlers) OrderCancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if err := h.paymentService.Cancel(ctx, orderID); err != nil {
		switch {
		case errors.Is(err, orders.ErrNotFound):
			h.writeError(w, r, http.StatusNotFound, "Order not found")
		case errors.Is(err, services.ErrNotInitiated):
			h.writeError(w, r, http.StatusConflict, "Order has not started payment")
		case errors.Is(err, orders.ErrInvalidStatusTransition):
			h.writeError(w, r, http.StatusConflict, "Order can no longer be cancelled")
		default:
			h.loggerFromContext(ctx).Error("cancel failed", "order_id", orderID, "error", err)
			h.writeError(w, r, http.StatusInternalServerError, "Failed to cancel order")
		}
		return
	}

	order, err := h.adminService.GetOrder(ctx, orderID)
	if err != nil {
		h.writeJSON(w, r, http.StatusOK, map[string]string{"status": string(models.StatusCancelled)})
		return
	}
	h.writeJSON(w, r, http.StatusOK, orderStatusResponse{Order: order})
}

func (h *Handlers) reconcileError(w http.ResponseWriter, r *http.Request, orderID uuid.UUID, err error) {
	logger := h.loggerFromContext(r.Context())
	switch {
	case errors.Is(err, orders.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, "Order not found")
	case errors.Is(err, services.ErrNotInitiated):
		h.writeError(w, r, http.StatusConflict, "Order has not started payment")
	default:
		logger.Error("reconcile failed", "order_id", orderID, "error", err)
		h.writeError(w, r, http.StatusBadGateway, "Payment status check failed; please retry")
	}
}

func (h *Handlers) orderIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid order id")
		return uuid.Nil, false
	}
	return orderID, true
}
