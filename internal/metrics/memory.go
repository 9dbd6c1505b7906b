package metrics

import "github.com/prometheus/client_golang/prometheus/promauto"
import "github.com/prometheus/client_golang/prometheus"

// Go runtime memory metrics, adapted from the teacher's memory-pressure
// gauges (internal/memory/config.go drives GOMEMLIMIT; these surface
// its effect for dashboards).
var (
	GoMemLimit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediaderiver_go_mem_limit_bytes",
		Help: "Configured GOMEMLIMIT, or 0 if unset",
	})

	GoMemAllocBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediaderiver_go_mem_alloc_bytes",
		Help: "Current heap allocation in bytes",
	})

	GoMemSysBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediaderiver_go_mem_sys_bytes",
		Help: "Total memory obtained from the OS",
	})

	GoGCRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediaderiver_go_gc_runs_total",
		Help: "Total number of completed garbage collection cycles",
	})

	GoGCPauseTotalSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediaderiver_go_gc_pause_seconds_total",
		Help: "Cumulative GC stop-the-world pause time",
	})
)

// Memory backpressure metrics, surfacing internal/memory.Monitor's
// water-mark state for dashboards and alerting.
var (
	MemoryUsageRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediaderiver_memory_usage_ratio",
		Help: "Current heap allocation as a fraction of the configured memory limit",
	})

	MemoryPaused = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediaderiver_memory_paused",
		Help: "Whether processing is currently paused on the critical water mark (1 = paused, 0 = running)",
	})

	MemoryGCPauses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediaderiver_memory_forced_gc_total",
		Help: "Total number of GC cycles forced by the memory monitor hitting its critical water mark",
	})
)

// Filesystem retry metrics (NFS-stale-handle resilience), adapted from
// the teacher's internal/filesystem retry instrumentation.
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after a retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_filesystem_stale_errors_total",
			Help: "Total number of NFS stale-file-handle errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediaderiver_filesystem_retry_duration_seconds",
			Help:    "Duration of a (possibly retried) filesystem operation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)

	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediaderiver_filesystem_operation_duration_seconds",
			Help:    "Duration of a filesystem operation, regardless of retry outcome",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaderiver_filesystem_operation_errors_total",
			Help: "Total number of filesystem operations that returned an error",
		},
		[]string{"volume", "operation"},
	)
)
