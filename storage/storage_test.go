package storage

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreativeUnicorns/navsync"
)

func TestLikePrefix(t *testing.T) {
	assert.Equal(t, "backup%", likePrefix("backup"))
	assert.Equal(t, `backup\_%`, likePrefix("backup_"))
	assert.Equal(t, `a\%b\\%`, likePrefix(`a%b\`))
}

// exerciseLocalStore runs the behaviour shared by every backend.
func exerciseLocalStore(t *testing.T, s navsync.LocalStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, navsync.ErrKeyNotFound)
	assert.ErrorIs(t, s.Set(ctx, "", "x"), navsync.ErrInvalidInput)

	require.NoError(t, s.Set(ctx, navsync.LastSyncKey, "2024-01-01T00:00:00Z"))
	require.NoError(t, s.Set(ctx, "backup_1", `{"a":1}`))
	require.NoError(t, s.Set(ctx, "backup_2", `{"a":2}`))
	require.NoError(t, s.Set(ctx, "backupX", "not a backup"))
	require.NoError(t, s.Set(ctx, "backup_1", `{"a":10}`))

	v, err := s.Get(ctx, "backup_1")
	require.NoError(t, err)
	assert.Equal(t, `{"a":10}`, v)

	keys, err := s.Keys(ctx, "backup_")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"backup_1", "backup_2"}, keys)

	require.NoError(t, s.Delete(ctx, "backup_1"))
	assert.ErrorIs(t, s.Delete(ctx, "backup_1"), navsync.ErrKeyNotFound)

	keys, err = s.Keys(ctx, "backup_")
	require.NoError(t, err)
	assert.Equal(t, []string{"backup_2"}, keys)
}
