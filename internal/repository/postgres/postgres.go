package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/GooferByte/wellness-rewards/internal/repository"

	"github.com/lib/pq"
)

// ErrSchemaMissing is returned when the key-value table has not been created.
var ErrSchemaMissing = errors.New("ledger_kv table does not exist; run EnsureSchema")

// Repository implements repository.Store backed by a PostgreSQL key-value table.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureSchema creates the key-value table if it is missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS ledger_kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure ledger_kv: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, repository.ErrEmptyKey
	}
	const query = `SELECT value FROM ledger_kv WHERE key = $1`
	var value string
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, classify("get "+key, err)
	}
	return value, true, nil
}

// Set upserts the value in a single statement, so a write either lands whole or not at all.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return repository.ErrEmptyKey
	}
	const query = `
		INSERT INTO ledger_kv (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, value, r.now()); err != nil {
		return classify("set "+key, err)
	}
	return nil
}

func classify(op string, err error) error {
	if isUndefinedTable(err) {
		return fmt.Errorf("%s: %w", op, ErrSchemaMissing)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUndefinedTable(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	return false
}
