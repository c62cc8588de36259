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

	"github.com/josh-kwaku/marketplace-payments/internal/bus"
	"github.com/josh-kwaku/marketplace-payments/internal/config"
	"github.com/josh-kwaku/marketplace-payments/internal/events"
	"github.com/josh-kwaku/marketplace-payments/internal/handler"
	"github.com/josh-kwaku/marketplace-payments/internal/logging"
	"github.com/josh-kwaku/marketplace-payments/internal/metrics"
	"github.com/josh-kwaku/marketplace-payments/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("notification-dispatcher", cfg.LogLevel, cfg.AppEnv)

	if err := run(cfg, logger); err != nil {
		logger.Error("dispatcher exited", "error", err)
		os.Exit(1)
	}
	logger.Info("dispatcher stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := bus.Open(cfg.BusOptions(), logger)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer b.Close()

	dispatcher := notify.NewDispatcher(events.NewPublisher(b).WithTimeout(cfg.PublishTimeout), logger)
	router, err := notify.Routes(dispatcher)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if err := router.Run(ctx, b); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	logger.Info("dispatcher subscribed", "subjects", router.Subjects(), "group", cfg.ConsumerGroup)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	health := handler.NewHealthHandler(map[string]handler.Pinger{"bus": b})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.Liveness)
	mux.HandleFunc("GET /ready", health.Readiness)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down dispatcher")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
