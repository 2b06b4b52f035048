package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/studiobuilderapp/studiobuilder/internal/config"
	"github.com/studiobuilderapp/studiobuilder/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.MetricsContext)
	r.Use(h.SecurityHeaders)

	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	// Gateway return URLs; also hit by shoppers' browsers after payment.
	r.HandleFunc("/payment/callback", h.PaymentCallback).Methods("GET").Name("payment.callback")
	r.HandleFunc("/payment/cancelled", h.PaymentCancelled).Methods("GET").Name("payment.cancelled")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/catalog", h.Catalog).Methods("GET").Name("api.catalog")
	api.HandleFunc("/checkout", h.Checkout).Methods("POST").Name("api.checkout")
	api.HandleFunc("/payment/events", h.PaymentEvent).Methods("POST").Name("api.payment.events")
	api.HandleFunc("/payment/ipn", h.PaymentIPN).Methods("POST").Name("api.payment.ipn")
	api.HandleFunc("/orders/{id}", h.OrderStatus).Methods("GET").Name("api.orders.get")
	api.HandleFunc("/orders/{id}/reconcile", h.OrderReconcile).Methods("POST").Name("api.orders.reconcile")
	api.HandleFunc("/orders/{id}/cancel", h.OrderCancel).Methods("POST").Name("api.orders.cancel")

	r.HandleFunc("/admin/login", h.AdminLogin).Methods("POST").Name("admin.login")

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(h.RequireAdmin)
	admin.Use(h.RequireSameOrigin)
	admin.HandleFunc("/orders", h.AdminListOrders).Methods("GET").Name("admin.orders")
	admin.HandleFunc("/orders/{id}", h.AdminGetOrder).Methods("GET").Name("admin.orders.get")
	admin.HandleFunc("/orders/{id}", h.AdminDeleteOrder).Methods("DELETE").Name("admin.orders.delete")
	admin.HandleFunc("/orders/{id}/complete", h.AdminCompleteOrder).Methods("POST").Name("admin.orders.complete")
	admin.HandleFunc("/orders/{id}/process", h.AdminProcessOrder).Methods("POST").Name("admin.orders.process")
	admin.HandleFunc("/orders/{id}/cancel", h.AdminCancelOrder).Methods("POST").Name("admin.orders.cancel")
	admin.HandleFunc("/orders/{id}/reconcile", h.AdminReconcileOrder).Methods("POST").Name("admin.orders.reconcile")
	admin.HandleFunc("/products", h.AdminSaveProduct).Methods("POST").Name("admin.products.save")
	admin.HandleFunc("/products/{id}", h.AdminDeleteProduct).Methods("DELETE").Name("admin.products.delete")
	admin.HandleFunc("/categories", h.AdminSaveCategory).Methods("POST").Name("admin.categories.save")
	admin.HandleFunc("/categories/{id}", h.AdminDeleteCategory).Methods("DELETE").Name("admin.categories.delete")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r
}
