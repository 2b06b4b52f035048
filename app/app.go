package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/studiobuilderapp/studiobuilder/internal/auth"
	"github.com/studiobuilderapp/studiobuilder/internal/cache"
	"github.com/studiobuilderapp/studiobuilder/internal/catalog"
	"github.com/studiobuilderapp/studiobuilder/internal/config"
	"github.com/studiobuilderapp/studiobuilder/internal/email"
	"github.com/studiobuilderapp/studiobuilder/internal/handlers"
	"github.com/studiobuilderapp/studiobuilder/internal/kv"
	"github.com/studiobuilderapp/studiobuilder/internal/observability"
	"github.com/studiobuilderapp/studiobuilder/internal/orders"
	"github.com/studiobuilderapp/studiobuilder/internal/pesapal"
	"github.com/studiobuilderapp/studiobuilder/internal/services"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Store         kv.Store
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	store, err := kv.NewStore(startupCtx, kv.Config{
		Provider:    cfg.KVProvider,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize kv store: %w", err)
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		closeStore(logger, store)
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	rates, err := catalog.LoadRateTable(cfg.ShippingRatesPath)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		closeStore(logger, store)
		return nil, fmt.Errorf("failed to load shipping rates: %w", err)
	}

	authManager, err := auth.NewManager(cfg.AdminKey, cfg.JWTSigningKey, cfg.AdminSessionTTL)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		closeStore(logger, store)
		return nil, fmt.Errorf("failed to initialize auth manager: %w", err)
	}

	emailProvider, err := email.NewProvider(email.Config{
		Provider: cfg.EmailProvider,
		APIKey:   cfg.EmailAPIKey,
		From:     cfg.EmailFrom,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		closeStore(logger, store)
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}

	gateway := pesapal.NewClient(
		pesapal.ClientConfig{
			BaseURL:        cfg.PesapalBaseURL,
			ConsumerKey:    cfg.PesapalConsumerKey,
			ConsumerSecret: cfg.PesapalConsumerSecret,
			NotificationID: cfg.PesapalIPNID,
		},
		observability.NewHTTPClient(cfg.PesapalTimeout),
		logger.With("component", "pesapal_client"),
	)

	orderRepo := orders.NewRepository(store, logger.With("component", "order_repository"))
	catalogRepo := catalog.NewRepository(store)
	pricer := catalog.NewPricer(rates)

	catalogService := services.NewCatalogService(catalogRepo, rates, cacheProvider, logger.With("component", "catalog_service"))
	emailSender := services.NewProviderOrderEmailSender(emailProvider)
	paymentService := services.NewPaymentService(
		orderRepo,
		gateway,
		pricer,
		emailSender,
		cacheProvider,
		services.PaymentConfig{
			Currency:        cfg.Currency,
			CallbackURL:     cfg.CallbackURL(),
			CancellationURL: cfg.CancellationURL(),
			Branch:          "Studio Builder - Online",
			CountryCode:     "TZ",
		},
		logger.With("component", "payment_service"),
	)
	adminService := services.NewAdminService(
		orderRepo,
		catalogRepo,
		paymentService,
		catalogService,
		logger.With("component", "admin_service"),
	)

	h, err := handlers.New(handlers.Dependencies{
		Config:         cfg,
		Store:          store,
		CatalogService: catalogService,
		PaymentService: paymentService,
		AdminService:   adminService,
		AuthManager:    authManager,
		Logger:         logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		closeStore(logger, store)
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		Store:         store,
		CacheProvider: cacheProvider,
		Handlers:      h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.Store != nil {
		closeStore(a.Logger, a.Store)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	case "text", "":
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level: cfg.LogLevel,
		}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel}))
}

func closeStore(logger *slog.Logger, store kv.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil && logger != nil {
		logger.Warn("failed to close kv store", "error", err)
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
