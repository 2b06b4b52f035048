package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/studiobuilderapp/studiobuilder/internal/catalog"
	"github.com/studiobuilderapp/studiobuilder/internal/models"
	"github.com/studiobuilderapp/studiobuilder/internal/orders"
	"github.com/studiobuilderapp/studiobuilder/internal/services"
)

func (h *Handlers) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.adminService.ListOrders(r.Context())
	if err != nil {
		h.loggerFromContext(r.Context()).Error("failed to list orders", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to list orders")
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{"orders": list})
}

func (h *Handlers) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	h.OrderStatus(w, r)
}

func (h *Handlers) AdminCompleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}

	order, err := h.adminService.MarkCompleted(r.Context(), orderID)
	if err != nil {
		h.adminOrderError(w, r, err, "Failed to complete order")
		return
	}
	h.writeJSON(w, r, http.StatusOK, orderStatusResponse{Order: order})
}

func (h *Handlers) AdminProcessOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}

	order, err := h.adminService.BeginProcessing(r.Context(), orderID)
	if err != nil {
		h.adminOrderError(w, r, err, "Failed to update order")
		return
	}
	h.writeJSON(w, r, http.StatusOK, orderStatusResponse{Order: order})
}

func (h *Handlers) AdminCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if err := h.adminService.CancelOrder(ctx, orderID); err != nil {
		h.adminOrderError(w, r, err, "Failed to cancel order")
		return
	}

	order, err := h.adminService.GetOrder(ctx, orderID)
	if err != nil {
		h.writeJSON(w, r, http.StatusOK, map[string]string{"status": string(models.StatusCancelled)})
		return
	}
	h.writeJSON(w, r, http.StatusOK, orderStatusResponse{Order: order})
}

func (h *Handlers) AdminReconcileOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}

	order, err := h.adminService.ReconcileOrder(r.Context(), orderID)
	if err != nil {
		var userErr services.UserError
		if errors.As(err, &userErr) {
			h.writeError(w, r, http.StatusConflict, userErr.Message)
			return
		}
		h.reconcileError(w, r, orderID, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, orderStatusResponse{Order: order})
}

func (h *Handlers) AdminDeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.adminService.DeleteOrder(r.Context(), orderID); err != nil {
		h.adminOrderError(w, r, err, "Failed to delete order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type productRequest struct {
	ID           string               `json:"id" validate:"omitempty,max=100"`
	CategoryID   string               `json:"category_id" validate:"omitempty,max=100"`
	Name         string               `json:"name" validate:"required,min=1,max=200"`
	Description  string               `json:"description" validate:"omitempty,max=2000"`
	FileSizeGB   float64              `json:"file_size_gb" validate:"gte=0"`
	IsFree       bool                 `json:"is_free"`
	Price        float64              `json:"price" validate:"gte=0"`
	Features     []string             `json:"features" validate:"omitempty,dive,max=200"`
	LibraryPacks []models.LibraryPack `json:"library_packs"`
}

func (h *Handlers) AdminSaveProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	product := &models.Product{
		ID:           req.ID,
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		Description:  req.Description,
		FileSizeGB:   req.FileSizeGB,
		IsFree:       req.IsFree,
		Price:        req.Price,
		Features:     req.Features,
		LibraryPacks: req.LibraryPacks,
	}
	if err := h.adminService.SaveProduct(r.Context(), product); err != nil {
		h.adminCatalogError(w, r, err, "Failed to save product")
		return
	}
	h.writeJSON(w, r, http.StatusOK, product)
}

func (h *Handlers) AdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.adminService.DeleteProduct(r.Context(), id); err != nil {
		h.adminCatalogError(w, r, err, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	ID          string `json:"id" validate:"omitempty,max=100"`
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Icon        string `json:"icon" validate:"omitempty,max=100"`
	HelperText  string `json:"helper_text" validate:"omitempty,max=500"`
	SortOrder   int    `json:"sort_order"`
}

func (h *Handlers) AdminSaveCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	category := &models.Category{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		HelperText:  req.HelperText,
		SortOrder:   req.SortOrder,
	}
	if err := h.adminService.SaveCategory(r.Context(), category); err != nil {
		h.adminCatalogError(w, r, err, "Failed to save category")
		return
	}
	h.writeJSON(w, r, http.StatusOK, category)
}

func (h *Handlers) AdminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.adminService.DeleteCategory(r.Context(), id); err != nil {
		h.adminCatalogError(w, r, err, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) adminOrderError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var userErr services.UserError
	switch {
	case errors.Is(err, orders.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, "Order not found")
	case errors.Is(err, orders.ErrInvalidStatusTransition):
		h.writeError(w, r, http.StatusConflict, err.Error())
	case errors.As(err, &userErr):
		h.writeError(w, r, http.StatusConflict, userErr.Message)
	default:
		h.loggerFromContext(r.Context()).Error("admin order action failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, fallback)
	}
}

func (h *Handlers) adminCatalogError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var userErr services.UserError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, "Not found")
	case errors.As(err, &userErr):
		h.writeError(w, r, http.StatusBadRequest, userErr.Message)
	default:
		h.loggerFromContext(r.Context()).Error("admin catalog action failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, fallback)
	}
}
