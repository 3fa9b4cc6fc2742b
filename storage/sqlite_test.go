package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupSQLiteTest creates a new SQLite database for testing and returns the storage and a cleanup function.
func setupSQLiteTest(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	dbPath := fmt.Sprintf("test_navsync_%d.db", time.Now().UnixNano())
	storage, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err, "Failed to initialize SQLiteStorage")

	cleanup := func() {
		require.NoError(t, storage.Close(), "Failed to close storage")
		require.NoError(t, os.Remove(dbPath), "Failed to remove test database")
	}
	return storage, cleanup
}

func TestSQLiteStorage(t *testing.T) {
	storage, cleanup := setupSQLiteTest(t)
	defer cleanup()

	exerciseLocalStore(t, storage)
}

func TestSQLiteStorage_PersistsAcrossReopen(t *testing.T) {
	dbPath := fmt.Sprintf("test_navsync_reopen_%d.db", time.Now().UnixNano())
	defer os.Remove(dbPath)

	first, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.Set(context.Background(), "backup_1", "payload"))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer second.Close()
	v, err := second.Get(context.Background(), "backup_1")
	require.NoError(t, err)
	assert.Equal(t, "payload", v)
}

func TestSQLiteStorage_ClosedDB(t *testing.T) {
	storage, cleanup := setupSQLiteTest(t)
	defer cleanup()
	require.NoError(t, storage.db.Close())

	_, err := storage.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, storage.Set(context.Background(), "k", "v"))
	_, err = storage.Keys(context.Background(), "")
	assert.Error(t, err)
}
