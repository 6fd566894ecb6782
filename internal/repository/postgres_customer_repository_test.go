package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
)

const testCustomerID = "0b6f3c1e-8f2a-4d5b-9c3e-2a1d4f6b7c8d"

func newPostgresRepo(t *testing.T) (*PostgresCustomerRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &PostgresCustomerRepository{DB: db, Table: "customers"}, mock
}

func TestPostgresCustomerRepository_ListAll(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, doc, created_at FROM "customers"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc", "created_at"}).
			AddRow(testCustomerID, []byte(`{"name":"Ada","email":"a@x.com","phone":"555","tier":"gold"}`), created))

	got, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, testCustomerID, got[0].ID)
	assert.Equal(t, strPtr("Ada"), got[0].Name)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.Equal(t, map[string]any{"tier": "gold"}, got[0].Attributes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCustomerRepository_ListAllEmpty(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectQuery(`SELECT id, doc, created_at FROM`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc", "created_at"}))

	got, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPostgresCustomerRepository_Create(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	created := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "customers" (doc, created_at) VALUES ($1, $2) RETURNING id`)).
		WithArgs([]byte(`{"name":"Ada"}`), created).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testCustomerID))

	c := &model.Customer{Name: strPtr("Ada"), CreatedAt: created}
	require.NoError(t, repo.Create(context.Background(), c))

	assert.Equal(t, testCustomerID, c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCustomerRepository_CreateKeepsEmptyStrings(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	created := time.Now().UTC()
	empty, email := "", "a@x.com"

	mock.ExpectQuery(`INSERT INTO "customers"`).
		WithArgs([]byte(`{"email":"a@x.com","name":"","phone":""}`), created).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testCustomerID))

	c := &model.Customer{Name: &empty, Email: &email, Phone: &empty, CreatedAt: created}
	require.NoError(t, repo.Create(context.Background(), c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCustomerRepository_Update(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		desc    string
		id      string
		update  model.CustomerUpdate
		prepare func(mock sqlmock.Sqlmock)
		want    *model.Customer
		wantErr any
	}{
		{
			desc:   "merges present fields",
			id:     testCustomerID,
			update: model.CustomerUpdate{Name: strPtr("Ada L.")},
			prepare: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE "customers" SET doc = doc \|\| \$2::jsonb`).
					WithArgs(testCustomerID, []byte(`{"name":"Ada L."}`)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "doc", "created_at"}).
						AddRow(testCustomerID, []byte(`{"name":"Ada L.","email":"a@x.com"}`), created))
			},
			want: &model.Customer{ID: testCustomerID, Name: strPtr("Ada L."), Email: strPtr("a@x.com"), CreatedAt: created, Attributes: map[string]any{}},
		},
		{
			desc:   "unknown id",
			id:     testCustomerID,
			update: model.CustomerUpdate{Phone: strPtr("1")},
			prepare: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE "customers"`).WillReturnError(sql.ErrNoRows)
			},
			wantErr: new(*appErrors.ErrCustomerNotFound),
		},
		{
			desc:   "empty update selects",
			id:     testCustomerID,
			update: model.CustomerUpdate{},
			prepare: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, doc, created_at FROM "customers" WHERE id = $1`)).
					WithArgs(testCustomerID).
					WillReturnRows(sqlmock.NewRows([]string{"id", "doc", "created_at"}).
						AddRow(testCustomerID, []byte(`{}`), created))
			},
			want: &model.Customer{ID: testCustomerID, CreatedAt: created, Attributes: map[string]any{}},
		},
		{
			desc:    "malformed id",
			id:      "abc",
			update:  model.CustomerUpdate{Name: strPtr("x")},
			prepare: func(sqlmock.Sqlmock) {},
			wantErr: new(*appErrors.ErrInvalidCustomerID),
		},
	}

	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			repo, mock := newPostgresRepo(t)
			tc.prepare(mock)

			got, err := repo.Update(context.Background(), tc.id, tc.update)
			if tc.wantErr != nil {
				assert.ErrorAs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresCustomerRepository_Delete(t *testing.T) {
	tests := []struct {
		desc    string
		result  sql.Result
		err     error
		wantErr any
	}{
		{desc: "deleted", result: sqlmock.NewResult(0, 1)},
		{desc: "not found", result: sqlmock.NewResult(0, 0), wantErr: new(*appErrors.ErrCustomerNotFound)},
	}

	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			repo, mock := newPostgresRepo(t)
			mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "customers" WHERE id = $1`)).
				WithArgs(testCustomerID).
				WillReturnResult(tc.result)

			err := repo.Delete(context.Background(), testCustomerID)
			if tc.wantErr != nil {
				assert.ErrorAs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresCustomerRepository_DeleteStoreError(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	boom := errors.New("connection reset")

	mock.ExpectExec(`DELETE FROM`).WillReturnError(boom)

	assert.ErrorIs(t, repo.Delete(context.Background(), testCustomerID), boom)
}

func TestPostgresCustomerRepository_EnsureSchema(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "customers"`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
