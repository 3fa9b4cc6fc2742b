// Package content reads and writes the tracked collections (navigation,
// site and resources) held by the remote store, with a read-through cache
// in front and the last-sync marker kept in a local store.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CreativeUnicorns/navsync"
	"github.com/CreativeUnicorns/navsync/apperror"
	"github.com/CreativeUnicorns/navsync/cache"
	"github.com/CreativeUnicorns/navsync/metrics"
	"github.com/CreativeUnicorns/navsync/notify"
	"github.com/CreativeUnicorns/navsync/retry"
	"github.com/CreativeUnicorns/navsync/storage"
)

var (
	ErrCategoryNotFound  = errors.New("navigation category not found")
	ErrItemNotFound      = errors.New("navigation item not found")
	ErrUnknownCollection = errors.New("unknown collection")
)

// Collection names, also used as cache keys.
const (
	Navigation = "navigation"
	Site       = "site"
	Resources  = "resources"
)

// Names lists every tracked collection.
var Names = []string{Navigation, Site, Resources}

// Cache lifetimes per collection. Resources use the cache default.
const (
	NavigationTTL = 10 * time.Minute
	SiteTTL       = 30 * time.Minute
)

type document struct {
	name  string
	path  string
	title string
	ttl   time.Duration
}

var documents = map[string]document{
	Navigation: {name: Navigation, path: navsync.NavigationFile, title: "Navigation", ttl: NavigationTTL},
	Site:       {name: Site, path: navsync.SiteFile, title: "Site configuration", ttl: SiteTTL},
	Resources:  {name: Resources, path: navsync.ResourcesFile, title: "Resources"},
}

// Option configures a Repository.
type Option func(*Repository)

// WithLocalStore sets where the last-sync marker is kept. Defaults to an
// in-memory store.
func WithLocalStore(s navsync.LocalStore) Option {
	return func(r *Repository) {
		r.local = s
	}
}

// WithCache replaces the default in-memory cache.
func WithCache(c cache.Cache) Option {
	return func(r *Repository) {
		r.cache = c
	}
}

// WithRetry sets the engine wrapping every remote call. The default engine
// uses retry.RemoteStorePreset and records final failures silently.
func WithRetry(e *retry.Engine) Option {
	return func(r *Repository) {
		r.retry = e
	}
}

// WithHandler sets the handler for write failures.
func WithHandler(h *apperror.Handler) Option {
	return func(r *Repository) {
		r.handler = h
	}
}

// WithNotifier sets where save results are announced.
func WithNotifier(n notify.Notifier) Option {
	return func(r *Repository) {
		r.notifier = n
	}
}

// WithLogger sets the repository logger.
func WithLogger(l navsync.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

// WithClock overrides time.Now for cache stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// Repository is the typed view over the remote documents. Reads go through
// the cache; category and item edits always start from a fresh remote read.
type Repository struct {
	remote   navsync.RemoteStore
	local    navsync.LocalStore
	cache    cache.Cache
	retry    *retry.Engine
	handler  *apperror.Handler
	notifier notify.Notifier
	logger   navsync.Logger
	now      func() time.Time

	// serializes read-modify-write of navigation.json
	editMu sync.Mutex
}

// NewRepository creates a Repository over remote.
func NewRepository(remote navsync.RemoteStore, opts ...Option) *Repository {
	r := &Repository{
		remote:   remote,
		notifier: notify.Discard{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = navsync.NewDefaultLogger()
	}
	if r.local == nil {
		r.local = storage.NewMemoryStorage()
	}
	if r.cache == nil {
		r.cache = cache.NewMemoryCache(cache.WithLogger(r.logger))
	}
	if r.handler == nil {
		r.handler = apperror.NewHandler(apperror.WithLogger(r.logger), apperror.WithNotifier(r.notifier))
	}
	if r.retry == nil {
		retryOpts := append(retry.RemoteStorePreset(),
			retry.WithLogger(r.logger),
			retry.WithHandler(r.handler),
			retry.WithHandleOptions(apperror.Silent()),
		)
		r.retry = retry.New(retryOpts...)
	}
	return r
}

// Cache returns the cache in front of the remote documents.
func (r *Repository) Cache() cache.Cache {
	return r.cache
}

// Collections lists the names accepted by Reload.
func (r *Repository) Collections() []string {
	return slices.Clone(Names)
}

// Handler returns the handler that records failures.
func (r *Repository) Handler() *apperror.Handler {
	return r.handler
}

func (r *Repository) read(ctx context.Context, d document) (string, error) {
	return retry.Do(ctx, r.retry, func(ctx context.Context) (string, error) {
		return r.remote.GetFileContent(ctx, d.path)
	})
}

// write updates d, creating it when the remote file does not exist yet.
func (r *Repository) write(ctx context.Context, d document, content string) error {
	message := fmt.Sprintf("Update %s data - %s", d.name, r.now().Format(time.RFC3339))
	_, err := retry.Do(ctx, r.retry, func(ctx context.Context) (navsync.Revision, error) {
		rev, err := r.remote.UpdateFile(ctx, d.path, content, message)
		if errors.Is(err, navsync.ErrNotFound) {
			return r.remote.CreateFile(ctx, d.path, content, message)
		}
		return rev, err
	})
	return err
}

// load reads d from the remote store. Empty content yields fallback without
// a write. A missing file yields fallback and, when create is set, writes it.
func load[T any](ctx context.Context, r *Repository, d document, fallback func() T, create bool, validate func(T) []navsync.FieldError) (T, error) {
	raw, err := r.read(ctx, d)
	if err != nil {
		if !errors.Is(err, navsync.ErrNotFound) {
			var zero T
			return zero, fmt.Errorf("load %s: %w", d.name, err)
		}
		v := fallback()
		if create {
			r.logger.Info("Remote document missing, creating defaults", "path", d.path)
			if err := save(ctx, r, d, v, validate); err != nil {
				var zero T
				return zero, err
			}
		}
		return v, nil
	}
	if strings.TrimSpace(raw) == "" {
		return fallback(), nil
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("decode %s: %w: %v", d.path, navsync.ErrSerialization, err)
	}
	if validate != nil {
		if fields := validate(v); len(fields) > 0 {
			r.logger.Warn("Remote document failed validation", "path", d.path, "errors", len(fields))
			r.notifier.Warning("Data format warning", d.title+" data may be malformed")
		}
	}
	return v, nil
}

// save validates v, writes it pretty-printed and refreshes the cache.
func save[T any](ctx context.Context, r *Repository, d document, v T, validate func(T) []navsync.FieldError) error {
	if validate != nil {
		if fields := validate(v); len(fields) > 0 {
			return r.handler.HandleValidationError(fields, apperror.WithContext("Update "+d.name))
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w: %v", d.path, navsync.ErrSerialization, err)
	}
	if err := r.write(ctx, d, string(data)); err != nil {
		r.logger.Error("Failed to save remote document", "path", d.path, "error", err)
		r.notifier.Error("Save failed", err.Error())
		return fmt.Errorf("save %s: %w", d.name, err)
	}
	r.cache.Set(d.name, string(data), cache.WithTTL(d.ttl))
	r.notifier.Success("Saved", d.title+" data updated")
	return nil
}

// cached serves d from the cache, loading it on a miss. Values are cached
// encoded so every caller gets its own copy.
func cached[T any](ctx context.Context, r *Repository, d document, loader func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := r.cache.GetOrSet(ctx, d.name, func(ctx context.Context) (any, error) {
		val, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w: %v", d.path, navsync.ErrSerialization, err)
		}
		return string(data), nil
	}, cache.WithTTL(d.ttl))
	if err != nil {
		return zero, err
	}
	raw, ok := v.(string)
	if !ok {
		return zero, fmt.Errorf("cached %s: %w: unexpected %T", d.name, navsync.ErrSerialization, v)
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return zero, fmt.Errorf("cached %s: %w: %v", d.name, navsync.ErrSerialization, err)
	}
	return out, nil
}

func (r *Repository) loadNavigation(ctx context.Context) ([]navsync.NavigationCategory, error) {
	return load(ctx, r, documents[Navigation], navsync.DefaultNavigation, true, navsync.ValidateNavigation)
}

func (r *Repository) loadSite(ctx context.Context) (navsync.SiteConfig, error) {
	return load(ctx, r, documents[Site], navsync.DefaultSiteConfig, true, navsync.ValidateSite)
}

func (r *Repository) loadResources(ctx context.Context) ([]navsync.ResourceSection, error) {
	empty := func() []navsync.ResourceSection { return []navsync.ResourceSection{} }
	return load(ctx, r, documents[Resources], empty, false, navsync.ValidateResources)
}

// Navigation returns the navigation tree, served from the cache when fresh.
// A missing navigation.json is created with the default tree.
func (r *Repository) Navigation(ctx context.Context) ([]navsync.NavigationCategory, error) {
	return cached(ctx, r, documents[Navigation], r.loadNavigation)
}

// Site returns the site configuration. A missing site.json is created with
// the default configuration.
func (r *Repository) Site(ctx context.Context) (navsync.SiteConfig, error) {
	return cached(ctx, r, documents[Site], r.loadSite)
}

// Resources returns the resource sections, empty when resources.json is missing.
func (r *Repository) Resources(ctx context.Context) ([]navsync.ResourceSection, error) {
	return cached(ctx, r, documents[Resources], r.loadResources)
}

// UpdateNavigation replaces navigation.json. Invalid trees are rejected with
// an *apperror.AppError wrapping navsync.ErrValidation.
func (r *Repository) UpdateNavigation(ctx context.Context, categories []navsync.NavigationCategory) error {
	return save(ctx, r, documents[Navigation], categories, navsync.ValidateNavigation)
}

// UpdateSite replaces site.json, stamping LastUpdated.
func (r *Repository) UpdateSite(ctx context.Context, cfg navsync.SiteConfig) error {
	if fields := navsync.ValidateSite(cfg); len(fields) > 0 {
		return r.handler.HandleValidationError(fields, apperror.WithContext("Update "+Site))
	}
	cfg.LastUpdated = r.now().UTC().Format(time.RFC3339)
	return save(ctx, r, documents[Site], cfg, nil)
}

// UpdateResources replaces resources.json.
func (r *Repository) UpdateResources(ctx context.Context, sections []navsync.ResourceSection) error {
	if sections == nil {
		sections = []navsync.ResourceSection{}
	}
	return save(ctx, r, documents[Resources], sections, navsync.ValidateResources)
}

// Stats summarizes the current navigation tree.
func (r *Repository) Stats(ctx context.Context) (navsync.NavigationStats, error) {
	categories, err := r.Navigation(ctx)
	if err != nil {
		return navsync.NavigationStats{}, fmt.Errorf("navigation stats: %w", err)
	}
	return navsync.CalculateNavigationStats(categories), nil
}

// Reload refreshes one collection from the remote store, bypassing the cache.
func (r *Repository) Reload(ctx context.Context, name string) error {
	d, ok := documents[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	var (
		v   any
		err error
	)
	switch name {
	case Navigation:
		v, err = r.loadNavigation(ctx)
	case Site:
		v, err = r.loadSite(ctx)
	default:
		v, err = r.loadResources(ctx)
	}
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w: %v", d.path, navsync.ErrSerialization, err)
	}
	r.cache.Set(d.name, string(data), cache.WithTTL(d.ttl))
	r.logger.Debug("Reloaded collection", "collection", name)
	return nil
}

// Preload warms the cache with navigation and site.
func (r *Repository) Preload(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := r.Navigation(ctx)
		return err
	})
	g.Go(func() error {
		_, err := r.Site(ctx)
		return err
	})
	return g.Wait()
}

// Snapshot reads every collection from the remote store concurrently. The
// three reads are independent, so the result is not a consistent cut.
func (r *Repository) Snapshot(ctx context.Context) (navsync.Snapshot, error) {
	var snap navsync.Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := r.loadNavigation(ctx)
		snap.Navigation = v
		return err
	})
	g.Go(func() error {
		v, err := r.loadSite(ctx)
		snap.Site = v
		return err
	})
	g.Go(func() error {
		v, err := r.loadResources(ctx)
		snap.Resources = v
		return err
	})
	if err := g.Wait(); err != nil {
		return navsync.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	snap.Timestamp = r.now()
	return snap, nil
}

// Restore writes every collection of snap back to the remote store exactly
// as captured. Writes are independent: a failure in one does not stop the
// others, and nothing is rolled back.
func (r *Repository) Restore(ctx context.Context, snap navsync.Snapshot) error {
	if snap.Resources == nil {
		snap.Resources = []navsync.ResourceSection{}
	}
	writes := []func(context.Context) error{
		func(ctx context.Context) error {
			return save(ctx, r, documents[Navigation], snap.Navigation, navsync.ValidateNavigation)
		},
		func(ctx context.Context) error {
			return save(ctx, r, documents[Site], snap.Site, navsync.ValidateSite)
		},
		func(ctx context.Context) error {
			return save(ctx, r, documents[Resources], snap.Resources, navsync.ValidateResources)
		},
	}
	errs := make([]error, len(writes))
	var wg sync.WaitGroup
	for i, w := range writes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = w(ctx)
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		r.notifier.Error("Restore failed", err.Error())
		return fmt.Errorf("restore: %w", err)
	}
	r.notifier.Success("Restore complete", "Data restored from backup")
	return nil
}

// CheckStale reports, per collection, whether the remote store changed since
// the last recorded sync. No commits means nothing is stale; no marker means
// everything is.
func (r *Repository) CheckStale(ctx context.Context) (map[string]bool, error) {
	commits, err := retry.Do(ctx, r.retry, func(ctx context.Context) ([]navsync.Commit, error) {
		return r.remote.ListCommits(ctx, 1)
	})
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	if len(commits) == 0 {
		return staleness(false), nil
	}

	last, err := r.LastSync(ctx)
	if errors.Is(err, navsync.ErrKeyNotFound) {
		return staleness(true), nil
	}
	if err != nil {
		r.logger.Warn("Unreadable sync marker, treating data as stale", "error", err)
		return staleness(true), nil
	}
	return staleness(commits[0].AuthorDate.After(last)), nil
}

func staleness(stale bool) map[string]bool {
	out := make(map[string]bool, len(Names))
	for _, name := range Names {
		out[name] = stale
	}
	return out
}

// LastSync returns the recorded time of the last successful sync.
func (r *Repository) LastSync(ctx context.Context) (time.Time, error) {
	raw, err := r.local.Get(ctx, navsync.LastSyncKey)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", navsync.LastSyncKey, err)
	}
	return t, nil
}

// MarkSynced records now as the time of the last successful sync.
func (r *Repository) MarkSynced(ctx context.Context) error {
	now := r.now().UTC()
	if err := r.local.Set(ctx, navsync.LastSyncKey, now.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	metrics.LastSyncTimestamp.Set(float64(now.Unix()))
	return nil
}
