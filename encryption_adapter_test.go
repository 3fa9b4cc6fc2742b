package navsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptionAdapter(t *testing.T) {
	var enc Encrypter
	adapter, err := NewEncryptionAdapterWithKey([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	enc = adapter

	sealed, err := enc.Encrypt("backup body")
	require.NoError(t, err)
	plain, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "backup body", plain)

	_, err = NewEncryptionAdapterWithKey([]byte("short"))
	assert.Error(t, err)
}
