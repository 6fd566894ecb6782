// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/unclebandit/crm-backend/internal/config"
	"github.com/unclebandit/crm-backend/internal/controller"
	"github.com/unclebandit/crm-backend/internal/db"
	"github.com/unclebandit/crm-backend/internal/handler"
	"github.com/unclebandit/crm-backend/internal/logger"
	"github.com/unclebandit/crm-backend/internal/queue"
	"github.com/unclebandit/crm-backend/internal/service"
)

func main() {
	// Load .env
	envErr := godotenv.Load()

	cfg := config.LoadEnv()

	zapLogger, err := logger.NewZapLogger(logger.FromConfig(cfg))
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if envErr != nil {
		zapLogger.Info("No .env file found, relying on OS environment variables")
	}

	if err := cfg.Validate(); err != nil {
		zapLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init DB
	store, err := db.Connect(ctx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	q, err := newQueue(cfg.AMQP, zapLogger)
	if err != nil {
		_ = store.Close(context.Background())
		zapLogger.Fatal("Failed to set up event queue", zap.Error(err))
	}

	customerService := service.NewCustomerService(store.Customers, q, zapLogger)
	customerController := &controller.CustomerController{
		CustomerService: customerService,
		Logger:          zapLogger,
	}

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handler.NewRouter(customerController, zapLogger),
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info("Server running", zap.String("addr", srv.Addr), zap.String("store", store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		zapLogger.Info("Shutting down")
	case err := <-serveErr:
		if err != nil {
			zapLogger.Error("Server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP shutdown failed", zap.Error(err))
	}
	if err := q.Close(); err != nil {
		zapLogger.Error("Queue close failed", zap.Error(err))
	}
	if err := store.Close(shutdownCtx); err != nil {
		zapLogger.Error("Database disconnect failed", zap.Error(err))
	}

	zapLogger.Info("Server stopped")
}

// newQueue publishes to RabbitMQ when AMQP_URL is set. Otherwise events stay
// in-process and are only logged.
func newQueue(cfg config.AMQPConfig, logger *zap.Logger) (queue.Queue, error) {
	if cfg.URL != "" {
		q, err := queue.NewAMQPQueue(cfg.URL, cfg.Exchange, cfg.Queue, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Publishing customer events to RabbitMQ", zap.String("exchange", cfg.Exchange))
		return q, nil
	}

	q := queue.NewInMemoryQueue(logger)
	if err := queue.SubscribeEventLogger(q, logger); err != nil {
		return nil, err
	}
	return q, nil
}
