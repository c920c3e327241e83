package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbird_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbird_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cbird_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbird_db_transaction_duration_seconds",
			Help:    "Write batch transaction duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"status"}, // "commit", "rollback"
	)

	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbird_db_rows_affected",
			Help:    "Rows affected per write operation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cbird_db_connections_open",
			Help: "Open database connections",
		},
	)
)

// Scanner metrics
var (
	ScannerFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbird_scanner_files_total",
			Help: "Files seen by the scanner by media type and outcome",
		},
		[]string{"type", "result"}, // result: ingested, skipped, dropped
	)

	ScannerErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbird_scanner_errors_total",
			Help: "Ingestion problems recorded in the error record, by tag",
		},
		[]string{"tag"},
	)

	ScannerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cbird_scanner_duration_seconds",
			Help:    "Wall time of a complete scan",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
	)

	ScannerExtractDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbird_scanner_extract_duration_seconds",
			Help:    "Time spent extracting a single file",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10},
		},
		[]string{"type"},
	)

	ScannerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cbird_scanner_running",
			Help: "Whether a scan is currently in progress (1 = running, 0 = idle)",
		},
	)
)

// Index update metrics
var (
	IndexUpdateRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cbird_index_update_runs_total",
			Help: "Total number of index updates",
		},
	)

	IndexUpdateLastTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cbird_index_update_last_timestamp",
			Help: "Unix timestamp of the last completed index update",
		},
	)

	IndexUpdateLastDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cbird_index_update_last_duration_seconds",
			Help: "Duration of the last index update in seconds",
		},
	)

	IndexItemsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cbird_index_items_added_total",
			Help: "Items written to the index",
		},
	)

	IndexItemsRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cbird_index_items_removed_total",
			Help: "Items removed from the index because their file disappeared",
		},
	)

	IndexItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cbird_index_items",
			Help: "Items in the index by media type",
		},
		[]string{"type"},
	)

	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbird_watcher_events_total",
			Help: "Filesystem events seen in watch mode",
		},
		[]string{"op"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cbird_watcher_errors_total",
			Help: "Errors reported by the filesystem watcher",
		},
	)
)

// Search metrics
var (
	SearchQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbird_search_queries_total",
			Help: "Similarity queries by algorithm and status",
		},
		[]string{"algo", "status"},
	)

	SearchQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbird_search_query_duration_seconds",
			Help:    "Similarity query duration by algorithm",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"algo"},
	)
)

// Reconciliation metrics
var (
	ReconcileMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbird_reconcile_misses_total",
			Help: "Items that could not be placed during merge or chain",
		},
		[]string{"op"}, // merge, chain
	)

	ReconcileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbird_reconcile_duration_seconds",
			Help:    "Duration of merge and chain operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbird_filesystem_retry_attempts_total",
			Help: "Retries of filesystem operations after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbird_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbird_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbird_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbird_filesystem_retry_duration_seconds",
			Help:    "Total time spent in a retried filesystem operation",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Application info
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "cbird_app_info",
		Help: "Application information",
	},
	[]string{"version", "commit", "go_version"},
)
