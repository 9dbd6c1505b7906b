package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"media-viewer/internal/filesystem"
	"media-viewer/internal/logging"
)

// Collector periodically gathers Go runtime memory stats plus the
// on-disk size of every registered SQLite database file and cache
// root, adapted from the teacher's internal/metrics/collector.go
// collection loop (ticker-driven, independent of the HTTP request
// path).
type Collector struct {
	interval time.Duration
	stopChan chan struct{}

	mu         sync.Mutex
	databases  map[string]string // name -> path
	cacheRoots map[string]string // name -> path

	lastGCCount uint32
	lastPauseNs uint64
	retryConfig filesystem.RetryConfig
}

// NewCollector creates a Collector that runs every interval.
func NewCollector(interval time.Duration) *Collector {
	return &Collector{
		interval:    interval,
		stopChan:    make(chan struct{}),
		databases:   make(map[string]string),
		cacheRoots:  make(map[string]string),
		retryConfig: filesystem.DefaultRetryConfig(),
	}
}

// AddDatabase registers a SQLite database file (by its catalogdb name)
// for size collection.
func (c *Collector) AddDatabase(name, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.databases[name] = path
}

// AddCacheRoot registers a Cache Store root for size collection.
func (c *Collector) AddCacheRoot(name, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheRoots[name] = path
}

// Start begins the collection loop.
func (c *Collector) Start() { go c.loop() }

// Stop stops the collection loop.
func (c *Collector) Stop() { close(c.stopChan) }

func (c *Collector) loop() {
	c.collect()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	c.collectMemory()
	c.collectDatabaseSizes()
	c.collectCacheRootSizes()
}

func (c *Collector) collectMemory() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	GoMemAllocBytes.Set(float64(mem.Alloc))
	GoMemSysBytes.Set(float64(mem.Sys))

	if mem.NumGC > c.lastGCCount {
		GoGCRuns.Add(float64(mem.NumGC - c.lastGCCount))
		c.lastGCCount = mem.NumGC
	}
	if mem.PauseTotalNs > c.lastPauseNs {
		GoGCPauseTotalSeconds.Add(float64(mem.PauseTotalNs-c.lastPauseNs) / 1e9)
		c.lastPauseNs = mem.PauseTotalNs
	}

	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < 1<<62 {
		GoMemLimit.Set(float64(limit))
	}
}

func (c *Collector) collectDatabaseSizes() {
	c.mu.Lock()
	dbs := make(map[string]string, len(c.databases))
	for k, v := range c.databases {
		dbs[k] = v
	}
	c.mu.Unlock()

	for name, path := range dbs {
		if info, err := filesystem.StatWithRetry(path, c.retryConfig); err == nil {
			DBSizeBytes.WithLabelValues(name, "main").Set(float64(info.Size()))
		}
		if info, err := filesystem.StatWithRetry(path+"-wal", c.retryConfig); err == nil {
			DBSizeBytes.WithLabelValues(name, "wal").Set(float64(info.Size()))
		} else {
			DBSizeBytes.WithLabelValues(name, "wal").Set(0)
		}
		if info, err := filesystem.StatWithRetry(path+"-shm", c.retryConfig); err == nil {
			DBSizeBytes.WithLabelValues(name, "shm").Set(float64(info.Size()))
		} else {
			DBSizeBytes.WithLabelValues(name, "shm").Set(0)
		}
	}
}

func (c *Collector) collectCacheRootSizes() {
	c.mu.Lock()
	roots := make(map[string]string, len(c.cacheRoots))
	for k, v := range c.cacheRoots {
		roots[k] = v
	}
	c.mu.Unlock()

	for name, root := range roots {
		size, err := dirSize(root, c.retryConfig)
		if err != nil {
			logging.Debug("metrics: failed to size cache root %s (%s): %v", name, root, err)
			continue
		}
		CacheSizeBytes.WithLabelValues(name).Set(float64(size))
	}
}

// dirSize walks a directory tree using retry-aware filesystem
// operations, tolerant of individual stat/readdir failures.
func dirSize(root string, cfg filesystem.RetryConfig) (int64, error) {
	var size int64
	var walk func(dir string) error

	walk = func(dir string) error {
		entries, err := filesystem.ReadDirWithRetry(dir, cfg)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			full := dir + "/" + entry.Name()
			if entry.IsDir() {
				if err := walk(full); err != nil {
					logging.Debug("metrics: failed to walk subdirectory %s: %v", full, err)
				}
				continue
			}
			info, err := filesystem.StatWithRetry(full, cfg)
			if err != nil {
				continue
			}
			size += info.Size()
		}
		return nil
	}

	err := walk(root)
	return size, err
}
