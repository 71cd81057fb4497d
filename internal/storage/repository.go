// Package storage is the local SQLite layer for the small amount of state
// that must survive restarts: per-trip budgets and user preferences such as
// the selected display currency. Trips and expenses themselves live in the
// remote document store and are never persisted here.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"budgetfy/internal/budget"
	"budgetfy/internal/core"

	_ "modernc.org/sqlite"
)

// PrefTargetCurrency is the preference key holding the persisted display
// currency selection as JSON.
const PrefTargetCurrency = "target_currency"

// ErrNoPreference reports a preference key with no stored value.
var ErrNoPreference = errors.New("no preference set")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveBudget implements budget.Repository.
func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (trip_id, amount, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(trip_id) DO UPDATE SET
			amount = excluded.amount,
			updated_at = CURRENT_TIMESTAMP`,
		b.TripID, b.Amount)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved", "trip_id", b.TripID, "amount", b.Amount)
	return nil
}

// GetBudget implements budget.Repository.
func (r *SQLiteRepository) GetBudget(ctx context.Context, tripID string) (core.Budget, error) {
	b := core.Budget{TripID: tripID}
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM budgets WHERE trip_id = ?`, tripID).Scan(&b.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, budget.ErrNoBudget
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("select budget: %w", err)
	}
	return b, nil
}

// DeleteBudget implements budget.Repository.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, tripID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE trip_id = ?`, tripID); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

// SetPreference stores an opaque value under key, overwriting any previous
// value.
func (r *SQLiteRepository) SetPreference(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("upsert preference %s: %w", key, err)
	}
	return nil
}

// GetPreference returns the stored value for key, or ErrNoPreference.
func (r *SQLiteRepository) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoPreference
	}
	if err != nil {
		return "", fmt.Errorf("select preference %s: %w", key, err)
	}
	return value, nil
}

// DeletePreference removes the stored value for key. Missing keys are a
// no-op.
func (r *SQLiteRepository) DeletePreference(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete preference %s: %w", key, err)
	}
	return nil
}
