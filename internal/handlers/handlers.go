package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/studiobuilderapp/studiobuilder/internal/auth"
	"github.com/studiobuilderapp/studiobuilder/internal/config"
	"github.com/studiobuilderapp/studiobuilder/internal/kv"
	"github.com/studiobuilderapp/studiobuilder/internal/logging"
	"github.com/studiobuilderapp/studiobuilder/internal/services"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// Handlers provides the HTTP surface of the storefront: the builder API, the
// payment reconciliation triggers, and the admin back office.
type Handlers struct {
	config         *config.Config
	store          kv.Store
	catalogService *services.CatalogService
	paymentService *services.PaymentService
	adminService   *services.AdminService
	authManager    *auth.Manager
	validate       *validator.Validate
	logger         *slog.Logger
}

type Dependencies struct {
	Config         *config.Config
	Store          kv.Store
	CatalogService *services.CatalogService
	PaymentService *services.PaymentService
	AdminService   *services.AdminService
	AuthManager    *auth.Manager
	Logger         *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("handlers dependencies: store is required")
	}
	if deps.CatalogService == nil {
		return nil, fmt.Errorf("handlers dependencies: catalogService is required")
	}
	if deps.PaymentService == nil {
		return nil, fmt.Errorf("handlers dependencies: paymentService is required")
	}
	if deps.AdminService == nil {
		return nil, fmt.Errorf("handlers dependencies: adminService is required")
	}
	if deps.AuthManager == nil {
		return nil, fmt.Errorf("handlers dependencies: authManager is required")
	}

	return &Handlers{
		config:         deps.Config,
		store:          deps.Store,
		catalogService: deps.CatalogService,
		paymentService: deps.PaymentService,
		adminService:   deps.AdminService,
		authManager:    deps.AuthManager,
		validate:       validator.New(),
		logger:         logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.store.Ping(ctx); err != nil {
		logger.Error("store health check failed", "error", err)
		http.Error(w, "Store unhealthy", http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, r, status, map[string]string{"error": message})
}

// decodeIPN reads a bounded JSON body without rejecting unknown fields; the
// gateway adds fields to its notification payload without notice.
func (h *Handlers) decodeIPN(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("invalid notification body: %w", err)
	}
	return nil
}

// decodeJSON reads a bounded JSON body into dst and runs struct validation.
func (h *Handlers) decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBodyBytes)
	defer body.Close()

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("invalid request body: %w", err)
		}
		return fmt.Errorf("request validation failed: %w", err)
	}
	return nil
}
