// Package encryption seals backup snapshots with AES-256-GCM before they are
// written to a local store.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// MinKeyLength is the minimum accepted length of the key material.
	MinKeyLength = 32
	// EnvKeyName is the environment variable holding the backup key.
	EnvKeyName = "NAVSYNC_BACKUP_KEY"
	// Prefix marks sealed payloads so plain and sealed backups can coexist.
	Prefix = "enc:v1:"
)

var (
	ErrInvalidKeyLength  = errors.New("backup key must be at least 32 bytes")
	ErrKeyNotFound       = errors.New("backup key not found in environment variable " + EnvKeyName)
	ErrEncryptionFailed  = errors.New("encryption operation failed")
	ErrDecryptionFailed  = errors.New("decryption operation failed")
	ErrInvalidCiphertext = errors.New("invalid ciphertext: too short or malformed")
)

// Sealer encrypts and decrypts backup payloads.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealerFromEnv builds a Sealer from EnvKeyName.
func NewSealerFromEnv() (*Sealer, error) {
	key := os.Getenv(EnvKeyName)
	if key == "" {
		return nil, ErrKeyNotFound
	}
	return NewSealer([]byte(key))
}

// NewSealer derives a 256-bit key from keyMaterial with SHA-256.
func NewSealer(keyMaterial []byte) (*Sealer, error) {
	if len(keyMaterial) < MinKeyLength {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d", ErrInvalidKeyLength, len(keyMaterial), MinKeyLength)
	}
	key := sha256.Sum256(keyMaterial)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cipher: %v", ErrEncryptionFailed, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create GCM: %v", ErrEncryptionFailed, err)
	}
	return &Sealer{aead: aead}, nil
}

// Encrypt returns Prefix followed by the base64 nonce||ciphertext.
func (s *Sealer) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: failed to generate nonce: %v", ErrEncryptionFailed, err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Payloads without Prefix are returned unchanged.
func (s *Sealer) Decrypt(payload string) (string, error) {
	if !IsSealed(payload) {
		return payload, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload, Prefix))
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %v", ErrDecryptionFailed, err)
	}
	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrInvalidCiphertext
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to decrypt: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// IsSealed reports whether payload was produced by Encrypt.
func IsSealed(payload string) bool {
	return strings.HasPrefix(payload, Prefix)
}
