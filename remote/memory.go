// Package remote provides RemoteStore implementations: an in-memory versioned
// store and a client for the GitHub contents API.
package remote

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/CreativeUnicorns/navsync"
)

var (
	_ navsync.RemoteStore = (*MemoryStore)(nil)
	_ navsync.RemoteStore = (*GitHubStore)(nil)
)

// Operation names passed to a FaultFunc.
const (
	OpGet         = "get"
	OpCreate      = "create"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpListCommits = "list_commits"
)

// FaultFunc lets tests inject failures. A non-nil return aborts the call.
type FaultFunc func(op, path string) error

type file struct {
	content string
	sha     string
}

// MemoryStore is a versioned RemoteStore kept in memory. Every write records
// a commit.
type MemoryStore struct {
	mu      sync.RWMutex
	files   map[string]file
	commits []navsync.Commit
	seq     int
	now     func() time.Time
	fault   FaultFunc
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func WithFault(f FaultFunc) MemoryOption {
	return func(s *MemoryStore) {
		s.fault = f
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		files: make(map[string]file),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFault replaces the fault hook. Pass nil to clear it.
func (s *MemoryStore) SetFault(f FaultFunc) {
	s.mu.Lock()
	s.fault = f
	s.mu.Unlock()
}

func (s *MemoryStore) check(op, path string) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op, path)
}

func (s *MemoryStore) GetFileContent(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(OpGet, path); err != nil {
		return "", err
	}
	f, ok := s.files[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", navsync.ErrNotFound, path)
	}
	return f.content, nil
}

// CreateFile fails with ErrConflict when path already exists.
func (s *MemoryStore) CreateFile(ctx context.Context, path, content, message string) (navsync.Revision, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpCreate, path); err != nil {
		return "", err
	}
	if _, ok := s.files[path]; ok {
		return "", fmt.Errorf("%w: %s already exists", navsync.ErrConflict, path)
	}
	return s.commitLocked(path, content, message, false), nil
}

// UpdateFile fails with ErrNotFound when path does not exist.
func (s *MemoryStore) UpdateFile(ctx context.Context, path, content, message string) (navsync.Revision, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpUpdate, path); err != nil {
		return "", err
	}
	if _, ok := s.files[path]; !ok {
		return "", fmt.Errorf("%w: %s", navsync.ErrNotFound, path)
	}
	return s.commitLocked(path, content, message, false), nil
}

func (s *MemoryStore) DeleteFile(ctx context.Context, path, message string) (navsync.Revision, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpDelete, path); err != nil {
		return "", err
	}
	if _, ok := s.files[path]; !ok {
		return "", fmt.Errorf("%w: %s", navsync.ErrNotFound, path)
	}
	return s.commitLocked(path, "", message, true), nil
}

func (s *MemoryStore) commitLocked(path, content, message string, remove bool) navsync.Revision {
	s.seq++
	sum := sha1.Sum([]byte(path + "\x00" + content + "\x00" + strconv.Itoa(s.seq)))
	sha := hex.EncodeToString(sum[:])
	if remove {
		delete(s.files, path)
	} else {
		s.files[path] = file{content: content, sha: sha}
	}
	s.commits = append(s.commits, navsync.Commit{SHA: sha, Message: message, AuthorDate: s.now()})
	return navsync.Revision(sha)
}

// ListCommits returns at most limit commits, newest first. A limit of zero or
// less returns every commit.
func (s *MemoryStore) ListCommits(ctx context.Context, limit int) ([]navsync.Commit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(OpListCommits, ""); err != nil {
		return nil, err
	}
	n := len(s.commits)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]navsync.Commit, 0, n)
	for i := len(s.commits) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.commits[i])
	}
	return out, nil
}

// Revision returns the current revision of path, if it exists.
func (s *MemoryStore) Revision(path string) (navsync.Revision, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[path]
	return navsync.Revision(f.sha), ok
}
