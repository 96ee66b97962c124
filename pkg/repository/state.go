package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// StateRepository keeps small operational values like the last ingest time of a source
type StateRepository struct {
	db *sqlx.DB
}

// NewStateRepository creates a new state repository
func NewStateRepository(db *sqlx.DB) *StateRepository {
	return &StateRepository{db: db}
}

// Get retrieves a value, missing keys give an empty string
func (r *StateRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.GetContext(ctx, &value, "SELECT value FROM state WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get state %s: %w", key, err)
	}
	return value, nil
}

// Set stores a value
func (r *StateRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

// LastIngest returns the time of the last ingest of the source, zero time if never
func (r *StateRepository) LastIngest(ctx context.Context, source string) (time.Time, error) {
	v, err := r.Get(ctx, "ingest:"+source)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last ingest of %s: %w", source, err)
	}
	return ts, nil
}

// SetLastIngest stores the time of the last ingest of the source
func (r *StateRepository) SetLastIngest(ctx context.Context, source string, ts time.Time) error {
	return r.Set(ctx, "ingest:"+source, ts.UTC().Format(time.RFC3339))
}
