// Package main is the entry point for the navsync-server application.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/CreativeUnicorns/navsync"
	"github.com/CreativeUnicorns/navsync/api"
	"github.com/CreativeUnicorns/navsync/apperror"
	"github.com/CreativeUnicorns/navsync/cache"
	"github.com/CreativeUnicorns/navsync/config"
	"github.com/CreativeUnicorns/navsync/content"
	"github.com/CreativeUnicorns/navsync/datasync"
	"github.com/CreativeUnicorns/navsync/notify"
	"github.com/CreativeUnicorns/navsync/remote"
	"github.com/CreativeUnicorns/navsync/retry"
	"github.com/CreativeUnicorns/navsync/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file; environment variables override it")
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before the config")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := navsync.NewLogger(navsync.LoggerOptions{
		Format: cfg.Log.Format,
		Level:  navsync.ParseLogLevel(cfg.Log.Level),
	})
	logger.Info("navsync server starting up", "remote", cfg.Remote.Kind, "storage", cfg.Storage.Backend)

	local, err := openLocalStore(cfg.Storage)
	if err != nil {
		logger.Error("Failed to open local store", "error", err)
		os.Exit(1)
	}
	defer closeQuietly(logger, "local store", local.Close)

	rs, err := openRemoteStore(cfg.Remote, logger)
	if err != nil {
		logger.Error("Failed to create remote store", "error", err)
		os.Exit(1)
	}

	center, err := newNotificationCenter(cfg.Notify, logger)
	if err != nil {
		logger.Error("Failed to create notification center", "error", err)
		os.Exit(1)
	}
	defer closeQuietly(logger, "notification center", center.Close)

	cacheOpts := []cache.Option{
		cache.WithSettings(cache.Settings{MaxEntries: cfg.Cache.MaxEntries, DefaultTTL: cfg.Cache.DefaultTTL}),
		cache.WithCleanupInterval(cfg.Cache.CleanupInterval),
		cache.WithLogger(logger),
	}
	if cfg.Cache.SingleFlight {
		cacheOpts = append(cacheOpts, cache.WithSingleFlight())
	}
	mc := cache.NewMemoryCache(cacheOpts...)
	defer closeQuietly(logger, "cache", mc.Close)

	var coordinator *datasync.Coordinator
	handler := apperror.NewHandler(
		apperror.WithLogger(logger),
		apperror.WithNotifier(center),
		apperror.WithLogoutHook(stopAutoSyncOnLogout(logger, func() *datasync.Coordinator { return coordinator })),
	)
	engine := retry.New(retryOptions(cfg.Retry, handler, center, logger)...)

	repo := content.NewRepository(rs,
		content.WithLocalStore(local),
		content.WithCache(mc),
		content.WithRetry(engine),
		content.WithHandler(handler),
		content.WithNotifier(center),
		content.WithLogger(logger),
	)

	syncOpts := []datasync.Option{
		datasync.WithLocalStore(local),
		datasync.WithCache(mc),
		datasync.WithRetry(engine),
		datasync.WithHandler(handler),
		datasync.WithNotifier(center),
		datasync.WithLogger(logger),
		datasync.WithInterval(cfg.Sync.Interval),
		datasync.WithMaxBackups(cfg.Sync.MaxBackups),
	}
	if cfg.Storage.EncryptBackups {
		sealer, err := navsync.NewEncryptionAdapter()
		if err != nil {
			logger.Error("Failed to load backup key", "error", err)
			os.Exit(1)
		}
		syncOpts = append(syncOpts, datasync.WithEncrypter(sealer))
	}
	coordinator = datasync.New(repo, syncOpts...)
	defer closeQuietly(logger, "sync coordinator", coordinator.Close)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sync.Preload {
		if err := coordinator.Preload(ctx); err != nil {
			logger.Warn("Preload failed, continuing with a cold cache", "error", err)
		}
	}
	if cfg.Sync.DisableAutoSync {
		coordinator.ToggleAutoSync(false)
	} else {
		coordinator.StartAutoSync()
	}

	apiServer, err := api.NewServer(api.Config{
		ListenAddress: cfg.Server.Addr,
		Coordinator:   coordinator,
		Content:       repo,
		Errors:        handler,
		Notifications: center,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("Failed to create API server", "error", err)
		os.Exit(1)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- apiServer.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("API server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	logger.Info("Server exited gracefully")
}

// openLocalStore builds the LocalStore selected by cfg.Backend.
func openLocalStore(cfg config.StorageConfig) (navsync.LocalStore, error) {
	var (
		store navsync.LocalStore
		err   error
	)
	switch cfg.Backend {
	case "memory":
		store = storage.NewMemoryStorage()
	case "sqlite":
		store, err = storage.NewSQLiteStorage(cfg.SQLitePath)
	case "postgres":
		store, err = storage.NewPostgresStorage(cfg.PostgresDSN)
	case "redis":
		store, err = storage.NewRedisStorage(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("%w: storage backend %q", navsync.ErrInvalidInput, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// openRemoteStore builds the RemoteStore selected by cfg.Kind. The memory
// store starts empty, so every collection gets its defaults on first read.
func openRemoteStore(cfg config.RemoteConfig, logger navsync.Logger) (navsync.RemoteStore, error) {
	switch cfg.Kind {
	case "memory":
		return remote.NewMemoryStore(), nil
	case "github":
		gh, err := remote.NewGitHubStore(remote.GitHubConfig{
			Owner:   cfg.Owner,
			Repo:    cfg.Repo,
			Branch:  cfg.Branch,
			Token:   cfg.Token,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}, remote.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return gh, nil
	default:
		return nil, fmt.Errorf("%w: remote kind %q", navsync.ErrInvalidInput, cfg.Kind)
	}
}

func newNotificationCenter(cfg config.NotifyConfig, logger navsync.Logger) (*notify.Center, error) {
	opts := []notify.CenterOption{notify.WithLogger(logger)}
	if cfg.DiscordToken != "" {
		levels := make([]notify.Level, 0, len(cfg.Levels))
		for _, l := range cfg.Levels {
			levels = append(levels, notify.Level(l))
		}
		fwd, err := notify.NewDiscordForwarder(cfg.DiscordToken, cfg.DiscordChannelID, levels...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, notify.WithForwarder(fwd))
	}
	return notify.NewCenter(opts...), nil
}

// retryOptions turns the configured policy into engine options on top of the
// remote store preset, so permanent failures are still not retried.
func retryOptions(cfg config.RetryConfig, h *apperror.Handler, n notify.Notifier, logger navsync.Logger) []retry.Option {
	return append(retry.RemoteStorePreset(),
		retry.WithMaxAttempts(cfg.MaxAttempts),
		retry.WithDelay(cfg.Delay),
		retry.WithMaxDelay(cfg.MaxDelay),
		retry.WithBackoffMultiplier(cfg.BackoffMultiplier),
		retry.WithHandler(h),
		retry.WithNotifier(n),
		retry.WithHandleOptions(apperror.Silent()),
		retry.WithLogger(logger),
	)
}

// stopAutoSyncOnLogout turns auto-sync off once the remote store rejects the
// credentials. The toggle runs on its own goroutine because the hook can fire
// from the auto-sync tick, which StopAutoSync waits on.
func stopAutoSyncOnLogout(logger navsync.Logger, coordinator func() *datasync.Coordinator) func() {
	return func() {
		c := coordinator()
		if c == nil {
			return
		}
		logger.Warn("Remote store rejected the credentials, stopping auto-sync")
		go c.ToggleAutoSync(false)
	}
}

func closeQuietly(logger navsync.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Error("Failed to close "+what, "error", err)
	}
}
