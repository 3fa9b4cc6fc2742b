// Package config holds the process configuration of navsync-server.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root of the YAML file. Every field can be overridden from
// the environment.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Remote  RemoteConfig  `yaml:"remote"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Sync    SyncConfig    `yaml:"sync"`
	Retry   RetryConfig   `yaml:"retry"`
	Notify  NotifyConfig  `yaml:"notify"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"NAVSYNC_ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"NAVSYNC_SHUTDOWN_TIMEOUT"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"NAVSYNC_LOG_LEVEL"`
	Format string `yaml:"format" env:"NAVSYNC_LOG_FORMAT"`
}

// RemoteConfig selects the remote store. Kind is "github" or "memory".
type RemoteConfig struct {
	Kind    string        `yaml:"kind" env:"NAVSYNC_REMOTE"`
	Owner   string        `yaml:"owner" env:"NAVSYNC_GITHUB_OWNER"`
	Repo    string        `yaml:"repo" env:"NAVSYNC_GITHUB_REPO"`
	Branch  string        `yaml:"branch" env:"NAVSYNC_GITHUB_BRANCH"`
	Token   string        `yaml:"token" env:"NAVSYNC_GITHUB_TOKEN"`
	BaseURL string        `yaml:"base_url" env:"NAVSYNC_GITHUB_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"NAVSYNC_GITHUB_TIMEOUT"`
}

// StorageConfig selects the local store holding backups and the sync marker.
// Backend is one of memory, sqlite, postgres or redis.
type StorageConfig struct {
	Backend        string `yaml:"backend" env:"NAVSYNC_STORAGE"`
	SQLitePath     string `yaml:"sqlite_path" env:"NAVSYNC_SQLITE_PATH"`
	PostgresDSN    string `yaml:"postgres_dsn" env:"NAVSYNC_POSTGRES_DSN"`
	RedisAddr      string `yaml:"redis_addr" env:"NAVSYNC_REDIS_ADDR"`
	RedisPassword  string `yaml:"redis_password" env:"NAVSYNC_REDIS_PASSWORD"`
	RedisDB        int    `yaml:"redis_db" env:"NAVSYNC_REDIS_DB"`
	EncryptBackups bool   `yaml:"encrypt_backups" env:"NAVSYNC_ENCRYPT_BACKUPS"`
}

type CacheConfig struct {
	MaxEntries      int           `yaml:"max_entries" env:"NAVSYNC_CACHE_MAX_ENTRIES"`
	DefaultTTL      time.Duration `yaml:"default_ttl" env:"NAVSYNC_CACHE_TTL"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"NAVSYNC_CACHE_CLEANUP_INTERVAL"`
	SingleFlight    bool          `yaml:"single_flight" env:"NAVSYNC_CACHE_SINGLE_FLIGHT"`
}

type SyncConfig struct {
	Interval        time.Duration `yaml:"interval" env:"NAVSYNC_SYNC_INTERVAL"`
	DisableAutoSync bool          `yaml:"disable_auto_sync" env:"NAVSYNC_DISABLE_AUTO_SYNC"`
	MaxBackups      int           `yaml:"max_backups" env:"NAVSYNC_MAX_BACKUPS"`
	Preload         bool          `yaml:"preload" env:"NAVSYNC_PRELOAD"`
}

type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts" env:"NAVSYNC_RETRY_MAX_ATTEMPTS"`
	Delay             time.Duration `yaml:"delay" env:"NAVSYNC_RETRY_DELAY"`
	MaxDelay          time.Duration `yaml:"max_delay" env:"NAVSYNC_RETRY_MAX_DELAY"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" env:"NAVSYNC_RETRY_BACKOFF_MULTIPLIER"`
}

// NotifyConfig enables forwarding notifications to a Discord channel.
type NotifyConfig struct {
	DiscordToken     string   `yaml:"discord_token" env:"NAVSYNC_DISCORD_TOKEN"`
	DiscordChannelID string   `yaml:"discord_channel_id" env:"NAVSYNC_DISCORD_CHANNEL_ID"`
	Levels           []string `yaml:"levels" env:"NAVSYNC_DISCORD_LEVELS" envSeparator:","`
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Remote.Kind == "" {
		c.Remote.Kind = "github"
	}
	if c.Remote.Branch == "" {
		c.Remote.Branch = "main"
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = 30 * time.Second
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 100
	}
	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = 5 * time.Minute
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 5 * time.Minute
	}
	if c.Sync.MaxBackups == 0 {
		c.Sync.MaxBackups = 5
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.Delay == 0 {
		c.Retry.Delay = time.Second
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = 30 * time.Second
	}
	if c.Retry.BackoffMultiplier == 0 {
		c.Retry.BackoffMultiplier = 2
	}
}

// Validate reports the first setting that cannot be used to build a server.
func (c *Config) Validate() error {
	switch c.Remote.Kind {
	case "memory":
	case "github":
		if c.Remote.Owner == "" || c.Remote.Repo == "" {
			return fmt.Errorf("remote: github owner and repo are required")
		}
		if c.Remote.Token == "" {
			return fmt.Errorf("remote: github token is required")
		}
	default:
		return fmt.Errorf("remote: unknown kind %q", c.Remote.Kind)
	}

	switch c.Storage.Backend {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage: sqlite_path is required")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage: postgres_dsn is required")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage: redis_addr is required")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "tint", "pretty":
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}
	if (c.Notify.DiscordToken == "") != (c.Notify.DiscordChannelID == "") {
		return fmt.Errorf("notify: discord token and channel id must be set together")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry: max_attempts must be at least 1")
	}
	return nil
}
