// main is the entry point of the Workforce API.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file (plus environment overrides)
//  2. Initialise the logger
//  3. Open the record store (SQLite file or PostgreSQL)
//  4. Build the event sinks (log, and Kafka when brokers are configured)
//  5. Register HTTP routes behind request-id, logging and recovery middleware
//  6. Serve until SIGINT/SIGTERM, then shut down gracefully
//
// RUNNING THE SERVER:
//
//	go run ./cmd/workforce-api --config=config/local.yaml
//
// or:
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/workforce-api
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aanand-mishra/workforce-api/internal/config"
	"github.com/aanand-mishra/workforce-api/internal/events"
	"github.com/aanand-mishra/workforce-api/internal/http/handlers/worker"
	"github.com/aanand-mishra/workforce-api/internal/http/middleware"
	"github.com/aanand-mishra/workforce-api/internal/logger"
	"github.com/aanand-mishra/workforce-api/internal/storage"
	"github.com/aanand-mishra/workforce-api/internal/storage/gormstore"
	"github.com/aanand-mishra/workforce-api/internal/storage/sqlite"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	zlog, err := logger.New(cfg.Env, cfg.Log)
	if err != nil {
		log.Fatalf("cannot initialise logger: %s", err)
	}
	defer zlog.Sync()

	zlog.Info("starting workforce-api",
		zap.String("env", cfg.Env),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 3. Initialise Storage ─────────────────────────────────────────────
	// Everything below main only sees the storage.Storage interface.
	store, err := openStorage(ctx, cfg.Storage, zlog)
	if err != nil {
		zlog.Fatal("failed to initialise storage", zap.Error(err))
	}
	defer store.Close()

	zlog.Info("storage initialised", zap.String("driver", cfg.Storage.Driver))

	// ── 4. Event Sinks ────────────────────────────────────────────────────
	sinks := events.Multi{events.NewLogSink(zlog)}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, zlog)
		defer producer.Close()
		sinks = append(sinks, producer)

		zlog.Info("publishing worker events to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	// ── 5. Register HTTP Routes ───────────────────────────────────────────
	router := http.NewServeMux()
	worker.NewHandler(store, sinks).RegisterRoutes(router)

	server := &http.Server{
		Addr: cfg.HTTPServer.Addr,
		Handler: middleware.Chain(router,
			middleware.RequestID,
			middleware.Logging(zlog),
			middleware.Recover(zlog),
		),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// ── 6. Serve ──────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server started", zap.String("address", cfg.HTTPServer.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		zlog.Info("shutdown signal received, stopping server...")
	case err := <-errCh:
		if err != nil {
			zlog.Error("server encountered an error", zap.Error(err))
		}
	}

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
	// Stop accepting connections and let in-flight requests finish; the
	// deferred calls then flush the event producer and close the store.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("failed to shutdown server gracefully", zap.Error(err))
		return
	}

	zlog.Info("server stopped gracefully")
}

func openStorage(ctx context.Context, cfg config.Storage, zlog *zap.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
		return sqlite.New(cfg.Path)
	case config.DriverPostgres:
		return gormstore.NewPostgres(ctx, gormstore.PostgresConfig{
			DSN:            cfg.DSN,
			ConnectTimeout: cfg.ConnectTimeout,
		}, zlog)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
