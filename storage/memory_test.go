package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()
	exerciseLocalStore(t, s)

	require.NoError(t, s.Close())
	keys, err := s.Keys(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
