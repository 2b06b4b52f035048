package handlers

import (
	"errors"
	"net/http"

	"github.com/studiobuilderapp/studiobuilder/internal/models"
	"github.com/studiobuilderapp/studiobuilder/internal/services"
)

type checkoutCustomer struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Location string `json:"location" validate:"required,min=2,max=120"`
}

type checkoutStorage struct {
	Type       string  `json:"type" validate:"required,oneof=usb hdd sata-ssd nvme-ssd"`
	CapacityGB float64 `json:"capacity_gb" validate:"required,gt=0"`
}

type checkoutRequest struct {
	Customer       checkoutCustomer `json:"customer"`
	ProductIDs     []string         `json:"product_ids" validate:"required,min=1,dive,required"`
	LibraryPackIDs []string         `json:"library_pack_ids" validate:"omitempty,dive,required"`
	Storage        checkoutStorage  `json:"storage"`
	Description    string           `json:"description" validate:"omitempty,max=200"`
}

type checkoutResponse struct {
	Order       *models.Order `json:"order"`
	RedirectURL string        `json:"redirect_url"`
}

// Catalog serves the storefront view the builder UI renders from.
func (h *Handlers) Catalog(w http.ResponseWriter, r *http.Request) {
	view, err := h.catalogService.Storefront(r.Context())
	if err != nil {
		h.loggerFromContext(r.Context()).Error("failed to load storefront", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to load catalog")
		return
	}
	h.writeJSON(w, r, http.StatusOK, view)
}

// Checkout creates an order for the selection and starts the payment,
// returning the order and the gateway redirect URL for the payment iframe.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	var req checkoutRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.catalogService.ResolveSelection(ctx, req.ProductIDs, req.LibraryPackIDs)
	if err != nil {
		var userErr services.UserError
		if errors.As(err, &userErr) {
			h.writeError(w, r, http.StatusBadRequest, userErr.Message)
			return
		}
		logger.Error("failed to resolve selection", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to resolve selection")
		return
	}

	result, err := h.paymentService.Initiate(ctx, services.InitiateInput{
		Customer: models.Customer{
			Name:     req.Customer.Name,
			Email:    req.Customer.Email,
			Location: req.Customer.Location,
		},
		Items: items,
		Storage: models.StorageSelection{
			Type:       models.StorageType(req.Storage.Type),
			CapacityGB: req.Storage.CapacityGB,
		},
		Description: req.Description,
	})
	if err != nil {
		var userErr services.UserError
		if errors.As(err, &userErr) {
			h.writeError(w, r, http.StatusBadRequest, userErr.Message)
			return
		}
		logger.Error("checkout failed", "error", err)
		h.writeError(w, r, http.StatusBadGateway, "Failed to start payment; please try again")
		return
	}

	h.writeJSON(w, r, http.StatusCreated, checkoutResponse{
		Order:       result.Order,
		RedirectURL: result.RedirectURL,
	})
}
