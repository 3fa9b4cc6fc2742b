package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/CreativeUnicorns/navsync"
)

// sqlOpenFunc is a package-level variable that can be overridden for testing.
var sqlOpenFunc = sql.Open

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS navsync_local_store (
			key TEXT NOT NULL PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	upsertSQL = `
		INSERT INTO navsync_local_store (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET value = $2, updated_at = $3
	`

	selectSQL = `SELECT value FROM navsync_local_store WHERE key = $1`

	selectKeysSQL = `SELECT key FROM navsync_local_store WHERE key LIKE $1 ESCAPE '\'`

	deleteSQL = `DELETE FROM navsync_local_store WHERE key = $1`
)

// PostgresStorage is a LocalStore persisted in PostgreSQL.
type PostgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage connects using connString and creates the table if needed.
func NewPostgresStorage(connString string) (*PostgresStorage, error) {
	db, err := sqlOpenFunc("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: postgres: failed to ping database: %v", navsync.ErrStorageUnavailable, err)
	}

	storage := &PostgresStorage{db: db}
	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to run migrations: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) migrate() error {
	if _, err := s.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("postgres: failed to execute create table statement: %w", err)
	}
	return nil
}

// Get returns navsync.ErrKeyNotFound when key is absent.
func (s *PostgresStorage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, selectSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", navsync.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres: failed to get key '%s': %w", key, err)
	}
	return value, nil
}

// Set stores or replaces the value of key.
func (s *PostgresStorage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return navsync.ErrInvalidInput
	}
	if _, err := s.db.ExecContext(ctx, upsertSQL, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("postgres: failed to execute upsert for key '%s': %w", key, err)
	}
	return nil
}

// Delete returns navsync.ErrKeyNotFound when key is absent.
func (s *PostgresStorage) Delete(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, deleteSQL, key)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete key '%s': %w", key, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to get affected rows for key '%s': %w", key, err)
	}
	if rows == 0 {
		return navsync.ErrKeyNotFound
	}
	return nil
}

// Keys lists every key starting with prefix.
func (s *PostgresStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, selectKeysSQL, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query keys with prefix '%s': %w", prefix, err)
	}
	return scanKeys(rows)
}

// Close closes the database connection.
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
