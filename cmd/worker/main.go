// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/unclebandit/crm-backend/internal/config"
	"github.com/unclebandit/crm-backend/internal/logger"
	"github.com/unclebandit/crm-backend/internal/queue"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	zapLogger, err := logger.NewZapLogger(logger.FromConfig(cfg))
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if cfg.AMQP.URL == "" {
		zapLogger.Fatal("AMQP_URL environment variable is not set")
	}

	// Connect to RabbitMQ
	q, err := queue.NewAMQPQueue(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer q.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, q, q.NotifyClose(), zapLogger); err != nil {
		zapLogger.Error("Worker stopped", zap.Error(err))
		return
	}
	zapLogger.Info("Worker stopped")
}

// run subscribes the event logger and blocks until ctx is done or the
// broker connection drops.
func run(ctx context.Context, q queue.Queue, closed <-chan *amqp.Error, logger *zap.Logger) error {
	if err := queue.SubscribeEventLogger(q, logger); err != nil {
		return err
	}

	logger.Info("Worker running, waiting for customer events")

	select {
	case <-ctx.Done():
		return nil
	case amqpErr, ok := <-closed:
		if !ok || amqpErr == nil {
			return fmt.Errorf("broker connection closed")
		}
		return fmt.Errorf("broker connection closed: %w", amqpErr)
	}
}
