// Package metrics provides Prometheus instrumentation for the
// media-derivation server.
//
// All metrics are prefixed with "mediaderiver_" to avoid naming
// collisions with other applications. Metrics are grouped by subsystem:
// HTTP, Persistence (Database), Library Scanner, FFmpeg/ffprobe Adapter,
// Image Post-Processor, Cache Store, Request Coalescer, Process Queue,
// Info Manager, Go runtime memory, and filesystem retry.
//
// # Usage
//
// Metrics are automatically registered with the default Prometheus
// registry via promauto. Mount promhttp.Handler() on the metrics
// endpoint to expose them:
//
//	import "github.com/prometheus/client_golang/prometheus/promhttp"
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// # Collector
//
// [Collector] periodically gathers Go runtime memory stats and the
// on-disk size of every SQLite database file and cache root:
//
//	c := metrics.NewCollector(1 * time.Minute)
//	c.AddDatabase("catalog", catalogDBPath)
//	c.AddCacheRoot("frames", framesCacheDir)
//	c.Start()
//	defer c.Stop()
package metrics
