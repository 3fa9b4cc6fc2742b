package navsync

import (
	"github.com/CreativeUnicorns/navsync/encryption"
)

// EncryptionAdapter exposes an encryption.Sealer as an Encrypter for backups.
type EncryptionAdapter struct {
	sealer *encryption.Sealer
}

// NewEncryptionAdapter reads the backup key from the environment.
func NewEncryptionAdapter() (*EncryptionAdapter, error) {
	s, err := encryption.NewSealerFromEnv()
	if err != nil {
		return nil, err
	}
	return &EncryptionAdapter{sealer: s}, nil
}

// NewEncryptionAdapterWithKey builds an adapter from explicit key material.
func NewEncryptionAdapterWithKey(key []byte) (*EncryptionAdapter, error) {
	s, err := encryption.NewSealer(key)
	if err != nil {
		return nil, err
	}
	return &EncryptionAdapter{sealer: s}, nil
}

func (e *EncryptionAdapter) Encrypt(plaintext string) (string, error) {
	return e.sealer.Encrypt(plaintext)
}

func (e *EncryptionAdapter) Decrypt(payload string) (string, error) {
	return e.sealer.Decrypt(payload)
}
