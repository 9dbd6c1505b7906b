// Package metrics defines the Prometheus instrumentation surface for
// the media-derivation server, adapted from the teacher's
// internal/metrics/metrics.go: promauto-registered package-level var
// blocks grouped by subsystem under a consistent naming convention.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediaderiver_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediaderiver_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database (Persistence Layer) metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_db_queries_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediaderiver_db_query_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediaderiver_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"database", "file"}, // file: "main", "wal", "shm"
	)

	DBBusyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_db_busy_total",
			Help: "Total number of SQLITE_BUSY/LOCKED encounters",
		},
		[]string{"operation"},
	)

	DBRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_db_retry_success_total",
			Help: "Total number of operations that succeeded after at least one busy retry",
		},
		[]string{"operation"},
	)

	DBRetryExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_db_retry_exhausted_total",
			Help: "Total number of operations that exhausted all busy retries",
		},
		[]string{"operation"},
	)
)

// Scanner (Library Scanner) metrics
var (
	ScannerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_scanner_runs_total",
			Help: "Total number of scanner runs",
		},
		[]string{"library"}, // "movies" | "tv"
	)

	ScannerLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediaderiver_scanner_last_run_timestamp",
			Help: "Timestamp of the last scanner run",
		},
		[]string{"library"},
	)

	ScannerLastRunDuration = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediaderiver_scanner_last_run_duration_seconds",
			Help: "Duration of the last scanner run in seconds",
		},
		[]string{"library"},
	)

	ScannerDirsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_scanner_dirs_processed_total",
			Help: "Total number of library directories processed",
		},
		[]string{"library"},
	)

	ScannerSkippedUnchanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_scanner_skipped_unchanged_total",
			Help: "Total number of directories skipped due to an unchanged directory hash",
		},
		[]string{"library"},
	)

	ScannerRowsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_scanner_rows_deleted_total",
			Help: "Total number of catalog rows deleted for vanished directories",
		},
		[]string{"library"},
	)

	ScannerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_scanner_errors_total",
			Help: "Total number of scanner errors",
		},
		[]string{"library"},
	)

	ScannerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediaderiver_scanner_running",
			Help: "Whether a scan is currently running (1 = running, 0 = idle)",
		},
	)

	ScannerWatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_scanner_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)
)

// Adapter (FFmpeg/ffprobe) metrics
var (
	AdapterInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_adapter_invocations_total",
			Help: "Total number of FFmpeg/ffprobe subprocess invocations",
		},
		[]string{"operation", "status"},
	)

	AdapterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediaderiver_adapter_duration_seconds",
			Help:    "FFmpeg/ffprobe subprocess duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	AdapterQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediaderiver_adapter_queue_depth",
			Help: "Number of adapter invocations waiting for a concurrency slot",
		},
	)

	AdapterInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediaderiver_adapter_in_flight",
			Help: "Number of adapter invocations currently running",
		},
	)
)

// Post-processor (Image Post-Processor) metrics
var (
	PostprocessOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_postprocess_operations_total",
			Help: "Total number of post-processing operations",
		},
		[]string{"operation", "status"}, // operation: "avif_encode" | "png_optimize" | "blurhash"
	)

	PostprocessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediaderiver_postprocess_duration_seconds",
			Help:    "Post-processing operation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	PostprocessAVIFFallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediaderiver_postprocess_avif_fallback_total",
			Help: "Total number of sprite sheets that fell back to PNG after a failed AVIF conversion",
		},
	)
)

// Cache Store metrics
var (
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"root"}, // "general" | "frames" | "spritesheet" | "video_clips"
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"root"},
	)

	CacheEvictionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_cache_eviction_runs_total",
			Help: "Total number of eviction sweep runs",
		},
		[]string{"root"},
	)

	CacheEvictedFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_cache_evicted_files_total",
			Help: "Total number of files removed by eviction sweeps",
		},
		[]string{"root"},
	)

	CacheSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediaderiver_cache_size_bytes",
			Help: "Total size of a cache root in bytes",
		},
		[]string{"root"},
	)
)

// Coalescer (Request Coalescer) metrics
var (
	CoalesceProducerTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_coalesce_producer_total",
			Help: "Total number of requests that became the producer for their fingerprint",
		},
		[]string{"kind"}, // "sprite" | "vtt" | "clip" | "avif" | "blurhash" | "blurhash_cache_hit"
	)

	CoalesceWaiterTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_coalesce_waiter_total",
			Help: "Total number of requests that waited on an in-flight producer",
		},
		[]string{"kind"},
	)

	CoalesceWaitTimeoutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_coalesce_wait_timeout_total",
			Help: "Total number of waiters that timed out waiting for a producer",
		},
		[]string{"kind"},
	)
)

// Process Queue metrics
var (
	ProcessQueueActiveRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediaderiver_process_queue_active_rows",
			Help: "Number of process_queue rows currently in-progress",
		},
		[]string{"process_type"},
	)

	ProcessQueueFinalizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_process_queue_finalized_total",
			Help: "Total number of process_queue rows finalized",
		},
		[]string{"process_type", "status"},
	)

	ProcessQueueInterruptedOnStartup = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediaderiver_process_queue_interrupted_on_startup",
			Help: "Number of in-progress rows reconciled at the last startup",
		},
	)
)

// Info Manager metrics
var (
	InfoFileGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_infofile_generated_total",
			Help: "Total number of .info side-files (re)generated",
		},
		[]string{"reason"}, // "missing" | "invalid"
	)

	InfoFileHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediaderiver_infofile_hits_total",
			Help: "Total number of valid .info side-file reads",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediaderiver_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
