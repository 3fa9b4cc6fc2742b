// Package datasync keeps locally cached content in step with the remote
// store: a periodic staleness check, a forced full reload, and local
// backups that can be restored.
package datasync

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/CreativeUnicorns/navsync"
	"github.com/CreativeUnicorns/navsync/apperror"
	"github.com/CreativeUnicorns/navsync/cache"
	"github.com/CreativeUnicorns/navsync/metrics"
	"github.com/CreativeUnicorns/navsync/notify"
	"github.com/CreativeUnicorns/navsync/retry"
	"github.com/CreativeUnicorns/navsync/storage"
)

var (
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrBackupNotFound = errors.New("backup not found")
)

// DefaultInterval is the auto-sync period used when none is configured.
const DefaultInterval = 5 * time.Minute

// State is the coordinator's position in its check/sync cycle.
type State string

const (
	StateIdle     State = "idle"
	StateChecking State = "checking"
	StateSyncing  State = "syncing"
)

// Status labels reported by Stats.
const (
	LabelSyncing   = "syncing"
	LabelNeedsSync = "needs-sync"
	LabelSynced    = "synced"
)

// Source is the content the coordinator keeps in sync. content.Repository
// implements it.
type Source interface {
	Collections() []string
	CheckStale(ctx context.Context) (map[string]bool, error)
	Reload(ctx context.Context, name string) error
	Snapshot(ctx context.Context) (navsync.Snapshot, error)
	Restore(ctx context.Context, snap navsync.Snapshot) error
	MarkSynced(ctx context.Context) error
	Preload(ctx context.Context) error
}

// Stats describes the coordinator for status displays.
type Stats struct {
	State           State         `json:"state"`
	IsSyncing       bool          `json:"isSyncing"`
	LastSyncCheck   *time.Time    `json:"lastSyncCheck,omitempty"`
	AutoSyncEnabled bool          `json:"autoSyncEnabled"`
	AutoSyncRunning bool          `json:"autoSyncRunning"`
	SyncInterval    time.Duration `json:"syncInterval"`
	NeedsSync       bool          `json:"needsSync"`
	Status          string        `json:"status"`
}

type config struct {
	local      navsync.LocalStore
	cache      cache.Cache
	retry      *retry.Engine
	handler    *apperror.Handler
	notifier   notify.Notifier
	logger     navsync.Logger
	encrypter  navsync.Encrypter
	ready      func() bool
	now        func() time.Time
	interval   time.Duration
	maxBackups int
}

// Option configures a Coordinator.
type Option func(*config)

// WithLocalStore sets where backups are kept. Defaults to an in-memory store.
func WithLocalStore(s navsync.LocalStore) Option {
	return func(c *config) {
		c.local = s
	}
}

// WithCache sets the cache cleared by ClearCache and reported by CacheStats.
func WithCache(cc cache.Cache) Option {
	return func(c *config) {
		c.cache = cc
	}
}

// WithRetry sets the engine used for backups.
func WithRetry(e *retry.Engine) Option {
	return func(c *config) {
		c.retry = e
	}
}

// WithHandler sets the handler that classifies sync and restore failures.
func WithHandler(h *apperror.Handler) Option {
	return func(c *config) {
		c.handler = h
	}
}

// WithNotifier sets where sync and backup outcomes are announced.
func WithNotifier(n notify.Notifier) Option {
	return func(c *config) {
		c.notifier = n
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(l navsync.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithEncrypter seals backups before they are stored.
func WithEncrypter(e navsync.Encrypter) Option {
	return func(c *config) {
		c.encrypter = e
	}
}

// WithReadiness gates timer ticks: a tick only checks when ready returns true.
func WithReadiness(ready func() bool) Option {
	return func(c *config) {
		c.ready = ready
	}
}

// WithClock overrides time.Now for check stamps and backup keys.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithInterval sets the initial auto-sync period.
func WithInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMaxBackups overrides how many local backups are kept.
func WithMaxBackups(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBackups = n
		}
	}
}

// Coordinator drives checks, forced syncs and backups for one Source. At most
// one check or sync runs at a time.
type Coordinator struct {
	source Source
	cfg    config

	mu          sync.Mutex
	state       State
	lastChecked time.Time
	interval    time.Duration
	autoEnabled bool

	// timerMu guards the ticker goroutine; it is never held while mu is
	// wanted by a tick.
	timerMu sync.Mutex
	stop    context.CancelFunc
	done    chan struct{}
}

// New creates an idle Coordinator with auto-sync enabled but not started.
func New(source Source, opts ...Option) *Coordinator {
	cfg := config{
		notifier:   notify.Discard{},
		ready:      func() bool { return true },
		now:        time.Now,
		interval:   DefaultInterval,
		maxBackups: MaxBackups,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = navsync.NewDefaultLogger()
	}
	if cfg.local == nil {
		cfg.local = storage.NewMemoryStorage()
	}
	if cfg.cache == nil {
		cfg.cache = cache.NewMemoryCache(cache.WithLogger(cfg.logger))
	}
	if cfg.handler == nil {
		cfg.handler = apperror.NewHandler(apperror.WithLogger(cfg.logger), apperror.WithNotifier(cfg.notifier))
	}
	if cfg.retry == nil {
		cfg.retry = retry.New(append(retry.RemoteStorePreset(),
			retry.WithLogger(cfg.logger),
			retry.WithHandler(cfg.handler),
			retry.WithNotifier(cfg.notifier),
		)...)
	}
	return &Coordinator{
		source:      source,
		cfg:         cfg,
		state:       StateIdle,
		interval:    cfg.interval,
		autoEnabled: true,
	}
}

// begin moves Idle to next, reporting false when another run holds the state.
func (c *Coordinator) begin(next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return false
	}
	c.state = next
	return true
}

func (c *Coordinator) finish() {
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
}

func (c *Coordinator) markChecked() {
	c.mu.Lock()
	c.lastChecked = c.cfg.now()
	c.mu.Unlock()
}

// CheckSync reloads every collection the source reports stale and returns
// whether anything was reloaded. Failures are logged, never returned, and
// still stamp the check time. A check is skipped when another check or sync
// is running.
func (c *Coordinator) CheckSync(ctx context.Context) bool {
	if !c.begin(StateChecking) {
		metrics.SyncRuns.WithLabelValues("check", "skipped").Inc()
		return false
	}
	defer c.finish()
	start := time.Now()
	defer func() {
		metrics.SyncDuration.WithLabelValues("check").Observe(time.Since(start).Seconds())
	}()

	stale, err := c.source.CheckStale(ctx)
	c.markChecked()
	if err != nil {
		c.cfg.logger.Warn("Sync check failed", "error", err)
		metrics.SyncRuns.WithLabelValues("check", "error").Inc()
		return false
	}

	names := make([]string, 0, len(stale))
	for name, isStale := range stale {
		if isStale {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	if len(names) == 0 {
		metrics.SyncRuns.WithLabelValues("check", "unchanged").Inc()
		return false
	}

	for _, name := range names {
		if err := c.source.Reload(ctx, name); err != nil {
			c.cfg.logger.Warn("Reload of stale collection failed", "collection", name, "error", err)
			metrics.SyncRuns.WithLabelValues("check", "error").Inc()
			return false
		}
	}
	if err := c.source.MarkSynced(ctx); err != nil {
		c.cfg.logger.Warn("Failed to record sync time", "error", err)
	}
	c.cfg.logger.Info("Remote changes synced", "collections", names)
	c.cfg.notifier.Info("Data synced", "Remote updates were detected and synced")
	metrics.SyncRuns.WithLabelValues("check", "updated").Inc()
	return true
}

// ForceSync reloads every collection in parallel and waits for all of them.
// Failures are joined, classified and returned. It returns ErrSyncInProgress
// when a check or sync is already running.
func (c *Coordinator) ForceSync(ctx context.Context) error {
	if !c.begin(StateSyncing) {
		return ErrSyncInProgress
	}
	defer c.finish()
	start := time.Now()
	defer func() {
		metrics.SyncDuration.WithLabelValues("force").Observe(time.Since(start).Seconds())
	}()

	names := c.source.Collections()
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.source.Reload(ctx, name)
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		metrics.SyncRuns.WithLabelValues("force", "error").Inc()
		return c.cfg.handler.Handle(err, apperror.WithContext("Force sync"))
	}
	c.markChecked()
	if err := c.source.MarkSynced(ctx); err != nil {
		c.cfg.logger.Warn("Failed to record sync time", "error", err)
	}
	c.cfg.notifier.Success("Sync complete", "All data synchronized")
	metrics.SyncRuns.WithLabelValues("force", "updated").Inc()
	return nil
}

// State returns the current cycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats reports the cycle state, timer settings and whether a check is due.
func (c *Coordinator) Stats() Stats {
	c.timerMu.Lock()
	running := c.stop != nil
	c.timerMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		State:           c.state,
		IsSyncing:       c.state != StateIdle,
		AutoSyncEnabled: c.autoEnabled,
		AutoSyncRunning: running,
		SyncInterval:    c.interval,
		NeedsSync:       c.lastChecked.IsZero() || c.cfg.now().Sub(c.lastChecked) > c.interval,
	}
	if !c.lastChecked.IsZero() {
		t := c.lastChecked
		s.LastSyncCheck = &t
	}
	switch {
	case s.IsSyncing:
		s.Status = LabelSyncing
	case s.NeedsSync:
		s.Status = LabelNeedsSync
	default:
		s.Status = LabelSynced
	}
	return s
}

// ClearCache drops every cached collection.
func (c *Coordinator) ClearCache() {
	c.cfg.cache.Clear()
	c.cfg.notifier.Success("Cache cleared", "All cached data removed")
}

func (c *Coordinator) CacheStats() cache.Stats {
	return c.cfg.cache.Stats()
}

// Preload warms the cache. Failures are logged and returned.
func (c *Coordinator) Preload(ctx context.Context) error {
	if err := c.source.Preload(ctx); err != nil {
		c.cfg.logger.Warn("Preload failed", "error", err)
		return err
	}
	return nil
}

// Handler returns the handler that classifies sync failures.
func (c *Coordinator) Handler() *apperror.Handler {
	return c.cfg.handler
}

// Close stops auto-sync.
func (c *Coordinator) Close() error {
	c.StopAutoSync()
	return nil
}
