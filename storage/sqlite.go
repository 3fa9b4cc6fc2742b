package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/CreativeUnicorns/navsync"
)

const (
	sqliteCreateTableSQL = `
		CREATE TABLE IF NOT EXISTS navsync_local_store (
			key TEXT NOT NULL PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`

	sqliteUpsertSQL = `
		INSERT INTO navsync_local_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	sqliteSelectSQL = `SELECT value FROM navsync_local_store WHERE key = ?`

	sqliteSelectKeysSQL = `SELECT key FROM navsync_local_store WHERE key LIKE ? ESCAPE '\'`

	sqliteDeleteSQL = `DELETE FROM navsync_local_store WHERE key = ?`
)

// SQLiteStorage is a LocalStore persisted in a SQLite file.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens the database at dbPath and creates the table if needed.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping sqlite database: %v", navsync.ErrStorageUnavailable, err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) migrate() error {
	_, err := s.db.Exec(sqliteCreateTableSQL)
	return err
}

// Get returns navsync.ErrKeyNotFound when key is absent.
func (s *SQLiteStorage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, sqliteSelectSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", navsync.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key %q: %w", key, err)
	}
	return value, nil
}

// Set stores or replaces the value of key.
func (s *SQLiteStorage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return navsync.ErrInvalidInput
	}
	if _, err := s.db.ExecContext(ctx, sqliteUpsertSQL, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}

// Delete returns navsync.ErrKeyNotFound when key is absent.
func (s *SQLiteStorage) Delete(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, sqliteDeleteSQL, key)
	if err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return navsync.ErrKeyNotFound
	}
	return nil
}

// Keys lists every key starting with prefix.
func (s *SQLiteStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectKeysSQL, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	return scanKeys(rows)
}

// Close closes the SQLite database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func scanKeys(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return keys, nil
}
