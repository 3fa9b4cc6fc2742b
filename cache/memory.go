package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/CreativeUnicorns/navsync"
	"github.com/CreativeUnicorns/navsync/metrics"
)

type config struct {
	settings        Settings
	now             func() time.Time
	singleFlight    bool
	cleanupInterval time.Duration
	logger          navsync.Logger
}

// Option configures a MemoryCache.
type Option func(*config)

// WithSettings sets the initial capacity and default TTL.
func WithSettings(s Settings) Option {
	return func(c *config) {
		if s.MaxEntries > 0 {
			c.settings.MaxEntries = s.MaxEntries
		}
		if s.DefaultTTL > 0 {
			c.settings.DefaultTTL = s.DefaultTTL
		}
	}
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithSingleFlight makes concurrent GetOrSet misses on the same key share one
// factory call.
func WithSingleFlight() Option {
	return func(c *config) {
		c.singleFlight = true
	}
}

// WithCleanupInterval starts a goroutine that drops expired entries every d.
// Expiry is enforced on read regardless.
func WithCleanupInterval(d time.Duration) Option {
	return func(c *config) {
		c.cleanupInterval = d
	}
}

// WithLogger sets the logger for evictions and sweeps.
func WithLogger(l navsync.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// MemoryCache is a concurrency-safe bounded TTL cache. When a new key is
// inserted into a full cache the entry created earliest is evicted.
type MemoryCache struct {
	mu        sync.Mutex
	items     map[string]*Item
	settings  Settings
	seq       uint64
	hits      uint64
	misses    uint64
	evictions uint64

	now    func() time.Time
	logger navsync.Logger
	sf     *singleflight.Group

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache(opts ...Option) *MemoryCache {
	cfg := &config{
		settings: Settings{MaxEntries: DefaultMaxEntries, DefaultTTL: DefaultTTL},
		now:      time.Now,
		logger:   navsync.NewDefaultLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	c := &MemoryCache{
		items:    make(map[string]*Item),
		settings: cfg.settings,
		now:      cfg.now,
		logger:   cfg.logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if cfg.singleFlight {
		c.sf = &singleflight.Group{}
	}
	if cfg.cleanupInterval > 0 {
		go c.gc(cfg.cleanupInterval)
	} else {
		close(c.done)
	}
	return c
}

// Set stores value under key. Overwriting an existing key never evicts,
// even when the cache is full; only inserting a new key into a full cache
// evicts the oldest entry first.
func (c *MemoryCache) Set(key string, value any, opts ...SetOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value, opts)
}

func (c *MemoryCache) setLocked(key string, value any, opts []SetOption) {
	o := setOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	ttl := o.ttl
	if ttl <= 0 {
		ttl = c.settings.DefaultTTL
	}
	limit := o.maxEntries
	if limit <= 0 {
		limit = c.settings.MaxEntries
	}

	if _, exists := c.items[key]; !exists {
		if len(c.items) >= limit {
			c.evictOldestLocked()
		}
	}

	now := c.now()
	c.seq++
	c.items[key] = &Item{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		seq:       c.seq,
	}
	metrics.CacheEntries.Set(float64(len(c.items)))
}

func (c *MemoryCache) evictOldestLocked() {
	var oldest *Item
	for _, it := range c.items {
		if oldest == nil || older(it, oldest) {
			oldest = it
		}
	}
	if oldest == nil {
		return
	}
	delete(c.items, oldest.Key)
	c.evictions++
	metrics.CacheEvictions.Inc()
	c.logger.Debug("Evicted cache entry", "key", oldest.Key)
}

func older(a, b *Item) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.seq < b.seq
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// Get returns the value stored under key. Expired entries are removed and
// reported as absent.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.liveLocked(key)
	if !ok {
		c.misses++
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	c.hits++
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return it.Value, true
}

// Has reports whether a live entry exists for key.
func (c *MemoryCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.liveLocked(key)
	return ok
}

func (c *MemoryCache) liveLocked(key string) (*Item, bool) {
	it, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if it.expired(c.now()) {
		delete(c.items, key)
		metrics.CacheLookups.WithLabelValues("expired").Inc()
		return nil, false
	}
	return it, true
}

// GetOrSet returns the cached value for key, or calls factory and caches its
// result. A factory error is returned and nothing is stored.
func (c *MemoryCache) GetOrSet(ctx context.Context, key string, factory Factory, opts ...SetOption) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	load := func() (any, error) {
		v, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v, opts...)
		return v, nil
	}
	if c.sf == nil {
		return load()
	}
	v, err, _ := c.sf.Do(key, load)
	return v, err
}

// SetBatch stores every pair with the same options.
func (c *MemoryCache) SetBatch(items []KeyValue, opts ...SetOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kv := range items {
		c.setLocked(kv.Key, kv.Value, opts)
	}
}

// GetBatch returns the live values for keys. Missing keys are absent from the result.
func (c *MemoryCache) GetBatch(keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := c.Get(k); ok {
			out[k] = v
		}
	}
	return out
}

// DeleteBatch removes keys and returns how many entries existed.
func (c *MemoryCache) DeleteBatch(keys []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range keys {
		if _, ok := c.items[k]; ok {
			delete(c.items, k)
			n++
		}
	}
	metrics.CacheEntries.Set(float64(len(c.items)))
	return n
}

// Delete removes key and reports whether it existed.
func (c *MemoryCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	delete(c.items, key)
	metrics.CacheEntries.Set(float64(len(c.items)))
	return ok
}

// Clear removes every entry. Counters are kept.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*Item)
	metrics.CacheEntries.Set(0)
}

// Keys returns the keys of live entries in no particular order.
func (c *MemoryCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	return len(c.items)
}

// Configure changes the defaults for future Set calls. Zero fields are left unchanged.
func (c *MemoryCache) Configure(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.MaxEntries > 0 {
		c.settings.MaxEntries = s.MaxEntries
	}
	if s.DefaultTTL > 0 {
		c.settings.DefaultTTL = s.DefaultTTL
	}
}

// Stats sweeps expired entries and returns a snapshot.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
	s := Stats{
		Items:      len(c.items),
		MaxEntries: c.settings.MaxEntries,
		DefaultTTL: c.settings.DefaultTTL,
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
	}
	var oldest, newest *Item
	for _, it := range c.items {
		if oldest == nil || older(it, oldest) {
			oldest = it
		}
		if newest == nil || older(newest, it) {
			newest = it
		}
	}
	if oldest != nil {
		s.Oldest = &ItemInfo{Key: oldest.Key, CreatedAt: oldest.CreatedAt, ExpiresAt: oldest.ExpiresAt}
		s.Newest = &ItemInfo{Key: newest.Key, CreatedAt: newest.CreatedAt, ExpiresAt: newest.ExpiresAt}
	}
	return s
}

func (c *MemoryCache) sweepLocked() int {
	now := c.now()
	removed := 0
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
			removed++
		}
	}
	if removed > 0 {
		metrics.CacheEntries.Set(float64(len(c.items)))
	}
	return removed
}

// Close stops the cleanup goroutine, if any, and clears the cache.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
	c.Clear()
	return nil
}

// gc periodically removes expired items.
func (c *MemoryCache) gc(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			if n := c.sweepLocked(); n > 0 {
				c.logger.Debug("Removed expired cache entries", "count", n)
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}
