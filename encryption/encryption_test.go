package encryption

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "this-is-a-32-byte-key-for-test!!"

func TestNewSealer(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{name: "valid key", key: testKey},
		{name: "longer than minimum", key: strings.Repeat("a", MinKeyLength+10)},
		{name: "too short", key: "short", wantErr: ErrInvalidKeyLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSealer([]byte(tt.key))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestNewSealerFromEnv(t *testing.T) {
	t.Setenv(EnvKeyName, "")
	_, err := NewSealerFromEnv()
	assert.ErrorIs(t, err, ErrKeyNotFound)

	t.Setenv(EnvKeyName, testKey)
	s, err := NewSealerFromEnv()
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer([]byte(testKey))
	require.NoError(t, err)

	payload := `{"navigation":[],"site":{"basic":{"title":"x"}}}`
	sealed, err := s.Encrypt(payload)
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.NotContains(t, sealed, "navigation")

	again, err := s.Encrypt(payload)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per call")

	plain, err := s.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, payload, plain)
}

func TestSealer_DecryptPlainPassthrough(t *testing.T) {
	s, err := NewSealer([]byte(testKey))
	require.NoError(t, err)
	out, err := s.Decrypt(`{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)
}

func TestSealer_DecryptFailures(t *testing.T) {
	s, err := NewSealer([]byte(testKey))
	require.NoError(t, err)
	other, err := NewSealer([]byte(strings.Repeat("b", 40)))
	require.NoError(t, err)

	_, err = s.Decrypt(Prefix + "!!!not-base64")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = s.Decrypt(Prefix + "AAAA")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	sealed, err := other.Encrypt("secret")
	require.NoError(t, err)
	_, err = s.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
