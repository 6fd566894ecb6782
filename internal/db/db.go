// internal/db/db.go
package db

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/unclebandit/crm-backend/internal/config"
	"github.com/unclebandit/crm-backend/internal/repository"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Store is the process-wide handle on the customers collection.
// It is built once at startup, before the HTTP listener exists.
type Store struct {
	Driver    string
	Customers repository.CustomerRepositoryInterface

	close func(ctx context.Context) error
}

// Close releases the underlying connection.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// DriverFor picks the store implementation from the connection string scheme.
func DriverFor(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse database uri: %w", err)
	}

	switch u.Scheme {
	case "mongodb", "mongodb+srv":
		return DriverMongo, nil
	case "postgres", "postgresql":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database uri scheme %q", u.Scheme)
	}
}

// Connect opens the store named by cfg.URI, pings it and returns a ready
// customers repository. There is no retry: callers treat any error as fatal.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, config.ErrMissingDatabaseURI
	}

	driver, err := DriverFor(cfg.URI)
	if err != nil {
		return nil, err
	}

	switch driver {
	case DriverMongo:
		return connectMongo(ctx, cfg, logger)
	default:
		return connectPostgres(ctx, cfg, logger)
	}
}
