// cmd/seeder/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/unclebandit/crm-backend/internal/config"
	"github.com/unclebandit/crm-backend/internal/db"
	"github.com/unclebandit/crm-backend/internal/logger"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/service"
)

func main() {
	cfg := loadConfig()

	seedFile := flag.String("file", cfg.Seeder.File, "JSON array of customers to insert")
	flag.Parse()

	zapLogger, err := logger.NewZapLogger(logger.FromConfig(cfg))
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if err := cfg.Validate(); err != nil {
		zapLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx := context.Background()
	store, err := db.Connect(ctx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = store.Close(ctx) }()

	f, err := os.Open(*seedFile)
	if err != nil {
		zapLogger.Fatal("Failed to open seed file", zap.String("file", *seedFile), zap.Error(err))
	}
	defer f.Close()

	svc := service.NewCustomerService(store.Customers, nil, zapLogger)
	n, err := seedCustomers(ctx, svc, f)
	if err != nil {
		zapLogger.Fatal("Seeding failed", zap.String("file", *seedFile), zap.Int("inserted", n), zap.Error(err))
	}

	zapLogger.Info("Database seeding completed successfully", zap.String("file", *seedFile), zap.Int("inserted", n))
}

// loadConfig reads .env before the environment so both feed the flag defaults.
func loadConfig() *config.Config {
	_ = godotenv.Load()
	return config.LoadEnv()
}

// seedCustomers inserts every customer in the JSON array read from r and
// returns how many were inserted before the first failure.
func seedCustomers(ctx context.Context, svc *service.CustomerService, r io.Reader) (int, error) {
	var customers []*model.Customer
	if err := json.NewDecoder(r).Decode(&customers); err != nil {
		return 0, fmt.Errorf("decode seed file: %w", err)
	}

	for i, c := range customers {
		if c == nil {
			return i, fmt.Errorf("customer %d: not an object", i)
		}
		if _, err := svc.CreateCustomer(ctx, c); err != nil {
			return i, fmt.Errorf("customer %d: %w", i, err)
		}
	}
	return len(customers), nil
}
