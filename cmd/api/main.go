package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/marketplace-payments/api"
	"github.com/josh-kwaku/marketplace-payments/internal/bus"
	"github.com/josh-kwaku/marketplace-payments/internal/config"
	"github.com/josh-kwaku/marketplace-payments/internal/events"
	"github.com/josh-kwaku/marketplace-payments/internal/handler"
	"github.com/josh-kwaku/marketplace-payments/internal/idempotency"
	"github.com/josh-kwaku/marketplace-payments/internal/logging"
	"github.com/josh-kwaku/marketplace-payments/internal/metrics"
	"github.com/josh-kwaku/marketplace-payments/internal/middleware"
	"github.com/josh-kwaku/marketplace-payments/internal/processor"
	"github.com/josh-kwaku/marketplace-payments/internal/repository"
	"github.com/josh-kwaku/marketplace-payments/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("payments-api", cfg.LogLevel, cfg.AppEnv)

	if err := cfg.ValidateStore(); err != nil {
		logger.Error("invalid store config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("api exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	b, err := bus.Open(cfg.BusOptions(), logger)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer b.Close()

	if cfg.StripeWebhookSecret == "" {
		logger.Warn("STRIPE_WEBHOOK_SECRET is not set; every webhook will be rejected")
	}

	var receipts *processor.ReceiptClient
	if cfg.StripeAPIKey != "" {
		receipts = processor.NewReceiptClient(cfg.StripeAPIKey)
	} else {
		logger.Warn("STRIPE_API_KEY is not set; receipts fall back to the placeholder")
	}

	guard := idempotency.NewGuard(store)
	webhooks := service.NewWebhookProcessor(
		processor.NewVerifier(cfg.StripeSignatureTolerance, cfg.OrderMetadataKey),
		guard,
		service.NewResolver(receiptLookup(receipts), cfg.ReceiptLookupTimeout),
		events.NewPublisher(b).WithTimeout(cfg.PublishTimeout),
		cfg.StripeWebhookSecret,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	webhookHandler := handler.NewWebhookHandler(webhooks)
	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"idempotency_store": guard,
		"bus":               b,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /ready", healthHandler.Readiness)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("GET /docs", handler.ServeDocs())
	mux.HandleFunc("GET /docs/openapi.yaml", handler.ServeSpec(api.OpenAPISpec))
	mux.HandleFunc("POST /webhooks/processor", webhookHandler.ReceiveProcessorWebhook)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           middleware.Chain(mux, middleware.Tracing, middleware.Logging, middleware.Recovery),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server started", "addr", addr, "bus", cfg.BusDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		idempotency.NewJanitor(store, cfg.IdempotencyRetention, cfg.IdempotencySweepInterval, logger).Start(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (idempotency.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is not set; using the in-memory idempotency store")
		return repository.NewMemoryProcessedEventStore(), func() {}, nil
	}

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, cfg.PoolConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("openStore: %w", err)
	}
	return repository.NewProcessedEventRepository(db), func() { db.Close() }, nil
}

// receiptLookup keeps a nil client from becoming a non-nil interface.
func receiptLookup(c *processor.ReceiptClient) service.ReceiptLookup {
	if c == nil {
		return nil
	}
	return c
}
