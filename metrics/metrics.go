package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups tracks cache reads by result (hit, miss, expired)
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navsync_cache_lookups_total",
			Help: "Total number of cache lookups",
		},
		[]string{"result"},
	)

	// CacheEvictions tracks entries removed to make room for new keys
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "navsync_cache_evictions_total",
			Help: "Total number of cache entries evicted for capacity",
		},
	)

	// CacheEntries tracks the current number of cached entries
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "navsync_cache_entries",
			Help: "Current number of cache entries",
		},
	)

	// RetryAttempts tracks operation attempts by outcome (success, retry, failure)
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navsync_retry_attempts_total",
			Help: "Total number of attempts made by the retry engine",
		},
		[]string{"outcome"},
	)

	// ErrorsClassified tracks handled errors per kind
	ErrorsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navsync_errors_total",
			Help: "Total number of handled errors",
		},
		[]string{"kind"},
	)

	// SyncRuns tracks check and force sync runs by result
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navsync_sync_runs_total",
			Help: "Total number of sync runs",
		},
		[]string{"mode", "result"},
	)

	// SyncDuration tracks sync run latency
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "navsync_sync_duration_seconds",
			Help:    "Sync run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// LastSyncTimestamp is the unix time of the last successful reconciliation
	LastSyncTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "navsync_last_sync_timestamp_seconds",
			Help: "Unix time of the last successful sync",
		},
	)

	// BackupsCreated tracks local backups written
	BackupsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "navsync_backups_created_total",
			Help: "Total number of local backups created",
		},
	)

	// RemoteRequests tracks remote store calls by operation and status class
	RemoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navsync_remote_requests_total",
			Help: "Total number of remote store requests",
		},
		[]string{"operation", "status"},
	)

	// HTTPRequests tracks admin API requests by route pattern and status code
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navsync_http_requests_total",
			Help: "Total number of admin API requests",
		},
		[]string{"method", "route", "status"},
	)
)
