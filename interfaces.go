// Package navsync defines interfaces for the remote store, local persistence and encryption.
package navsync

import (
	"context"
)

// RemoteStore is the versioned file store that owns the content documents.
// Every method fails with one of ErrNotFound, ErrConflict, ErrRateLimited,
// ErrUnauthorized, ErrForbidden or ErrTransport (possibly wrapped).
type RemoteStore interface {
	GetFileContent(ctx context.Context, path string) (string, error)
	CreateFile(ctx context.Context, path, content, message string) (Revision, error)
	UpdateFile(ctx context.Context, path, content, message string) (Revision, error)
	DeleteFile(ctx context.Context, path, message string) (Revision, error)
	// ListCommits returns at most limit commits, newest first.
	ListCommits(ctx context.Context, limit int) ([]Commit, error)
}

// LocalStore defines the methods required for a local key-value backend.
// It holds backups and the last sync marker. Get returns ErrKeyNotFound for
// missing keys.
type LocalStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Keys lists every key starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Encrypter seals values before they reach a LocalStore.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
