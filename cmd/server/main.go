package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/game-stock/internal/adapter/handler"
	"github.com/rl1809/game-stock/internal/adapter/messaging"
	"github.com/rl1809/game-stock/internal/adapter/storage"
	"github.com/rl1809/game-stock/internal/config"
	"github.com/rl1809/game-stock/internal/core/service"
	"github.com/rl1809/game-stock/internal/logging"
	"github.com/rl1809/game-stock/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()

	logger := logging.NewLogger(logging.Config{Format: cfg.Log.Format, Level: cfg.Log.Level}).
		With(logging.FieldService, cfg.Metrics.ServiceName)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder, metricsHandler, shutdownMetrics, err := metrics.Setup(ctx, metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		ServiceName:  cfg.Metrics.ServiceName,
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,
	})
	if err != nil {
		return err
	}

	// Store
	dialect, err := storage.ParseDialect(cfg.Store.Driver)
	if err != nil {
		return err
	}
	db, err := storage.OpenDB(ctx, dialect, cfg.Store.DSN, cfg.Store.MaxOpenConns, cfg.Store.MaxIdleConns)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to store", "driver", dialect.DriverName())

	store := storage.NewSQLAdapter(db, dialect)
	if cfg.Store.Migrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}
	if cfg.Store.Seed {
		if err := store.Seed(ctx); err != nil {
			return err
		}
		logger.Info("store seeded")
	}

	purchaseOpts := []service.PurchaseOption{
		service.WithLogger(logger),
		service.WithRecorder(recorder),
	}

	// Redis idempotency is optional
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: 100,
		})
		defer rdb.Close()

		idempotency := storage.NewRedisAdapter(rdb, cfg.Redis.IdempotencyTTL)
		if err := idempotency.Ping(ctx); err != nil {
			return err
		}
		purchaseOpts = append(purchaseOpts, service.WithIdempotency(idempotency))
		logger.Info("connected to redis", "addr", cfg.Redis.Addr)
	}

	// Kafka events are optional
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()

		purchaseOpts = append(purchaseOpts, service.WithPublisher(publisher))
		logger.Info("publishing purchase events", "topic", cfg.Kafka.Topic)
	}

	svc := handler.Services{
		Sessions:   service.NewSessions(),
		Catalog:    service.NewCatalogService(store, logger, recorder),
		Basket:     service.NewBasketService(logger, recorder),
		Purchases:  service.NewPurchaseService(store, purchaseOpts...),
		AdminToken: cfg.AdminToken,
	}
	if svc.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN is not set, privileged sessions are disabled")
	}

	// gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.LoggingInterceptor(logger)))
	handler.NewGRPCHandler(svc, logger).Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	// HTTP server
	api := http.NewServeMux()
	handler.NewHTTPHandler(svc, logger).Register(api)

	root := http.NewServeMux()
	if metricsHandler != nil {
		root.Handle("GET /metrics", metricsHandler)
	}
	root.Handle("/", http.TimeoutHandler(api, cfg.RequestTimeout, `{"error":"request timed out"}`))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.LoggingMiddleware(logger, recorder, root),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", "error", err)
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	if err := shutdownMetrics(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown", "error", err)
	}
	return nil
}
