// Package cache provides a bounded in-memory cache with per-entry TTL and
// insertion-order eviction.
package cache

import (
	"context"
	"time"
)

const (
	// DefaultMaxEntries is the capacity used when none is configured.
	DefaultMaxEntries = 100
	// DefaultTTL is the lifetime used when Set is called without a positive TTL.
	DefaultTTL = 5 * time.Minute
)

// Cache is the subset of MemoryCache used by the content repository and the
// sync coordinator.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, opts ...SetOption)
	GetOrSet(ctx context.Context, key string, factory Factory, opts ...SetOption) (any, error)
	Delete(key string) bool
	Clear()
	Stats() Stats
}

// Factory produces the value for a missing key.
type Factory func(ctx context.Context) (any, error)

// Item is a single cached value. ExpiresAt is always after CreatedAt.
type Item struct {
	Key       string
	Value     any
	CreatedAt time.Time
	ExpiresAt time.Time
	seq       uint64
}

func (it *Item) expired(now time.Time) bool {
	return now.After(it.ExpiresAt)
}

// KeyValue pairs a key with a value for SetBatch.
type KeyValue struct {
	Key   string
	Value any
}

// Settings are the defaults applied to future Set calls.
type Settings struct {
	MaxEntries int
	DefaultTTL time.Duration
}

// ItemInfo describes a cached entry without its value.
type ItemInfo struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Stats is a snapshot of the cache state.
type Stats struct {
	Items      int           `json:"items"`
	MaxEntries int           `json:"maxEntries"`
	DefaultTTL time.Duration `json:"defaultTtl"`
	Oldest     *ItemInfo     `json:"oldest,omitempty"`
	Newest     *ItemInfo     `json:"newest,omitempty"`
	Hits       uint64        `json:"hits"`
	Misses     uint64        `json:"misses"`
	Evictions  uint64        `json:"evictions"`
}

type setOptions struct {
	ttl        time.Duration
	maxEntries int
}

// SetOption tunes a single Set call.
type SetOption func(*setOptions)

// WithTTL sets the entry lifetime. Zero or negative falls back to the default TTL.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = ttl
	}
}

// WithMaxEntries overrides the capacity checked by this call only.
func WithMaxEntries(n int) SetOption {
	return func(o *setOptions) {
		o.maxEntries = n
	}
}
