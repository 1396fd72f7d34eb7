// Package repository provides the PostgreSQL persistence of client profile
// key-value stores.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStorageRepository stores profile key-value pairs in the
// local_storage table.
type PostgresStorageRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresStorageRepository creates a repository on top of db.
// db must be a valid *sql.DB connected to a migrated PostgreSQL instance.
func NewPostgresStorageRepository(db *sql.DB) *PostgresStorageRepository {
	return &PostgresStorageRepository{DB: db}
}

// Get returns the value stored under key for the profile. A missing row is
// reported as ok == false with a nil error.
func (r *PostgresStorageRepository) Get(ctx context.Context, profile, key string) (string, bool, error) {
	var value string
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT value FROM local_storage WHERE profile_id = $1 AND key = $2`,
		profile, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts the value and refreshes updated_at, which the stale-row
// cleaner relies on.
func (r *PostgresStorageRepository) Set(ctx context.Context, profile, key, value string) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO local_storage (profile_id, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (profile_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		profile, key, value,
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Remove deletes the key for the profile.
func (r *PostgresStorageRepository) Remove(ctx context.Context, profile, key string) error {
	_, err := r.DB.ExecContext(
		ctx,
		`DELETE FROM local_storage WHERE profile_id = $1 AND key = $2`,
		profile, key,
	)
	if err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}
