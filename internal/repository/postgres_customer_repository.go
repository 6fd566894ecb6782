package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
)

// PostgresCustomerRepository stores each customer as a JSONB document,
// with the id and creation time kept in their own columns.
type PostgresCustomerRepository struct {
	DB    *sql.DB
	Table string
}

func (r *PostgresCustomerRepository) table() string {
	return pq.QuoteIdentifier(r.Table)
}

// EnsureSchema creates the customers table if it does not exist yet.
func (r *PostgresCustomerRepository) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
            doc        jsonb NOT NULL DEFAULT '{}'::jsonb,
            created_at timestamptz NOT NULL DEFAULT now()
        )
    `, r.table())
	_, err := r.DB.ExecContext(ctx, query)
	return err
}

func (r *PostgresCustomerRepository) ListAll(ctx context.Context) ([]*model.Customer, error) {
	query := fmt.Sprintf(`SELECT id, doc, created_at FROM %s`, r.table())
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []*model.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *PostgresCustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	doc, err := json.Marshal(c.Document())
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (doc, created_at) VALUES ($1, $2) RETURNING id`, r.table())
	return r.DB.QueryRowContext(ctx, query, doc, c.CreatedAt).Scan(&c.ID)
}

func (r *PostgresCustomerRepository) Update(ctx context.Context, id string, update model.CustomerUpdate) (*model.Customer, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, appErrors.NewInvalidCustomerID(id, err)
	}

	var row *sql.Row
	if update.IsEmpty() {
		query := fmt.Sprintf(`SELECT id, doc, created_at FROM %s WHERE id = $1`, r.table())
		row = r.DB.QueryRowContext(ctx, query, uid.String())
	} else {
		patch, err := json.Marshal(update.Fields())
		if err != nil {
			return nil, err
		}
		query := fmt.Sprintf(`
            UPDATE %s SET doc = doc || $2::jsonb
            WHERE id = $1
            RETURNING id, doc, created_at
        `, r.table())
		row = r.DB.QueryRowContext(ctx, query, uid.String(), patch)
	}

	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCustomerNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *PostgresCustomerRepository) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return appErrors.NewInvalidCustomerID(id, err)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table())
	res, err := r.DB.ExecContext(ctx, query, uid.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewCustomerNotFound(id)
	}
	return nil
}

func (r *PostgresCustomerRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(s rowScanner) (*model.Customer, error) {
	var (
		id        string
		raw       []byte
		createdAt time.Time
	)
	if err := s.Scan(&id, &raw, &createdAt); err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode customer %s: %w", id, err)
	}
	return model.FromDocument(id, createdAt.UTC(), doc), nil
}
