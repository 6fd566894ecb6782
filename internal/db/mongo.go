package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/unclebandit/crm-backend/internal/config"
	"github.com/unclebandit/crm-backend/internal/repository"
)

func connectMongo(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	monitor := &mongoMonitor{logger: logger, database: cfg.Name}
	clientOptions := options.Client().ApplyURI(cfg.URI).SetMonitor(monitor.CommandMonitor())

	ctxWithTimeout, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctxWithTimeout, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	// Connect does not block for server discovery
	if err := client.Ping(ctxWithTimeout, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	logger.Info("Connected to MongoDB",
		zap.String("database", cfg.Name),
		zap.String("collection", cfg.Collection),
	)

	return &Store{
		Driver: DriverMongo,
		Customers: &repository.MongoCustomerRepository{
			Collection: client.Database(cfg.Name).Collection(cfg.Collection),
		},
		close: client.Disconnect,
	}, nil
}
