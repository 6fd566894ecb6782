package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"
	"go.uber.org/zap"

	"github.com/unclebandit/crm-backend/internal/config"
	"github.com/unclebandit/crm-backend/internal/repository"
)

func connectPostgres(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	driverName, err := otelsql.Register("postgres",
		otelsql.AllowRoot(),
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsClose(),
		otelsql.TraceRowsAffected(),
		otelsql.WithDatabaseName(cfg.Name),
		otelsql.WithSystem(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("register instrumented postgres driver: %w", err)
	}

	db, err := sql.Open(driverName, cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctxWithTimeout); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := otelsql.RecordStats(db, otelsql.WithSystem(semconv.DBSystemPostgreSQL)); err != nil {
		logger.Warn("Could not record database stats", zap.Error(err))
	}

	repo := &repository.PostgresCustomerRepository{DB: db, Table: cfg.Collection}
	if err := repo.EnsureSchema(ctxWithTimeout); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create customers table: %w", err)
	}

	logger.Info("Connected to PostgreSQL", zap.String("table", cfg.Collection))

	return &Store{
		Driver:    DriverPostgres,
		Customers: repo,
		close: func(context.Context) error {
			return db.Close()
		},
	}, nil
}
