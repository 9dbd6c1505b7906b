// Main entry point for the media derivation server.
//
// It starts an HTTP server that provides:
//   - On-demand frame, sprite-sheet, VTT, chapter, and clip derivation
//   - A background library scanner keeping the movie/TV catalog current
//   - RESTful catalog and rescan endpoints
//
// Configuration is provided via environment variables; see
// internal/startup.LoadConfig for the full list.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-viewer/internal/blurhash"
	"media-viewer/internal/cache"
	"media-viewer/internal/catalogdb"
	"media-viewer/internal/ffmpeg"
	"media-viewer/internal/handlers"
	"media-viewer/internal/logging"
	"media-viewer/internal/memory"
	"media-viewer/internal/middleware"
	"media-viewer/internal/orchestrator"
	"media-viewer/internal/postprocess"
	"media-viewer/internal/scanner"
	"media-viewer/internal/startup"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	mc := memory.ConfigureFromEnv()
	startup.LogMemoryConfig(startup.MemoryConfig{
		Configured:     mc.Configured,
		Source:         mc.Source,
		ContainerLimit: mc.ContainerLimit,
		GoMemLimit:     mc.GoMemLimit,
		Ratio:          mc.Ratio,
	})

	ctx, cancelStartup := context.WithCancel(context.Background())
	defer cancelStartup()

	dbStart := time.Now()
	catalogDB, err := catalogdb.Open(ctx, config.DatabaseDir+"/catalog.db", "catalog")
	if err != nil {
		startup.LogFatal("Failed to open catalog database: %v", err)
	}
	if err := catalogdb.InitCatalogSchema(ctx, catalogDB); err != nil {
		startup.LogFatal("Failed to initialize catalog schema: %v", err)
	}

	processQueueDB, err := catalogdb.Open(ctx, config.DatabaseDir+"/processqueue.db", "processqueue")
	if err != nil {
		startup.LogFatal("Failed to open process queue database: %v", err)
	}
	if err := catalogdb.InitProcessQueueSchema(ctx, processQueueDB); err != nil {
		startup.LogFatal("Failed to initialize process queue schema: %v", err)
	}

	tmdbCacheDB, err := catalogdb.Open(ctx, config.DatabaseDir+"/tmdbcache.db", "tmdbcache")
	if err != nil {
		startup.LogFatal("Failed to open TMDB cache database: %v", err)
	}
	if err := catalogdb.InitTMDBCacheSchema(ctx, tmdbCacheDB); err != nil {
		startup.LogFatal("Failed to initialize TMDB cache schema: %v", err)
	}

	introsDB, err := catalogdb.Open(ctx, config.DatabaseDir+"/intros.db", "intros")
	if err != nil {
		startup.LogFatal("Failed to open intros database: %v", err)
	}
	if err := catalogdb.InitIntrosSchema(ctx, introsDB); err != nil {
		startup.LogFatal("Failed to initialize intros schema: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	if n, err := processQueueDB.ResetInterruptedRows(ctx, true, time.Now().Unix()); err != nil {
		logging.Warn("failed to reset interrupted process queue rows: %v", err)
	} else if n > 0 {
		logging.Info("marked %d in-progress process queue rows interrupted by an unclean shutdown", n)
	}

	startup.LogFFmpegInit(config.FFmpegConcurrency)
	adapter := ffmpeg.New("ffmpeg", "ffprobe", config.FFmpegConcurrency)

	if err := postprocess.Init(); err != nil {
		startup.LogFatal("Failed to initialize image post-processor: %v", err)
	}
	post := postprocess.NewProcessor(true, config.AVIFQuality, config.AVIFSpeed)

	store, err := cache.New(config.CacheDir)
	if err != nil {
		startup.LogFatal("Failed to initialize cache store: %v", err)
	}
	stopSweepers := store.StartEvictionSweepers()

	blurService := blurhash.NewService(tmdbCacheDB, config.UseNativeBlurhash)

	sc := scanner.New(
		catalogDB,
		config.MoviesRoot,
		config.TVRoot,
		config.PrefixPath,
		config.EnrichRetryWindow,
		nil, // no external metadata-enrichment tool is wired; see DESIGN.md
		blurService,
		adapter,
		config.BlurhashConcurrency,
	)

	startup.LogScannerInit(config.ScanInterval)
	if err := sc.ScanAll(ctx); err != nil {
		logging.Warn("initial library scan failed: %v", err)
	}
	startup.LogScannerStarted()

	scanTicker := time.NewTicker(config.ScanInterval)
	scanDone := make(chan struct{})
	go func() {
		for {
			select {
			case <-scanTicker.C:
				if err := sc.ScanAll(ctx); err != nil {
					logging.Error("periodic library scan failed: %v", err)
				}
			case <-scanDone:
				return
			}
		}
	}()

	stopWatcher, err := sc.StartWatcher(ctx, 2*time.Second)
	if err != nil {
		logging.Warn("failed to start library filesystem watcher: %v", err)
		stopWatcher = func() {}
	}

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.MoviesRoot = config.MoviesRoot
	orchCfg.TVRoot = config.TVRoot
	orchCfg.PrefixPath = config.PrefixPath
	orchCfg.FileServerNodeURL = config.FileServerNodeURL

	orch := orchestrator.New(orchCfg, catalogDB, processQueueDB, adapter, post, store)

	h := handlers.New(orch, catalogDB, sc)

	router := setupRouter(h)
	startup.LogHTTPRoutes(router, middleware.DefaultLoggingConfig().LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggedHandler := middleware.Logger(loggingConfig)(router)

	compressionConfig := middleware.DefaultCompressionConfig()
	compressedHandler := middleware.Compression(compressionConfig)(loggedHandler)

	var handler http.Handler = compressedHandler
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsRouter := mux.NewRouter()
		metricsRouter.Handle("/metrics", h.MetricsHandler()).Methods("GET")
		metricsSrv = &http.Server{
			Addr:    ":" + config.MetricsPort,
			Handler: metricsRouter,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("metrics server error: %v", err)
			}
		}()
	}

	shutdownComplete := make(chan struct{})
	go handleShutdown(srv, metricsSrv, catalogDB, processQueueDB, tmdbCacheDB, introsDB, scanTicker, scanDone, stopWatcher, stopSweepers, cancelStartup, shutdownComplete)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}

	<-shutdownComplete
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	r.HandleFunc("/frame/movie/{name}/{ts}", h.Frame).Methods("GET")
	r.HandleFunc("/frame/tv/{show}/{season}/{ep}/{ts}", h.Frame).Methods("GET")

	r.HandleFunc("/spritesheet/movie/{name}", h.SpriteSheet).Methods("GET")
	r.HandleFunc("/spritesheet/tv/{show}/{season}/{ep}", h.SpriteSheet).Methods("GET")

	r.HandleFunc("/vtt/movie/{name}", h.VTT).Methods("GET")
	r.HandleFunc("/vtt/tv/{show}/{season}/{ep}", h.VTT).Methods("GET")

	r.HandleFunc("/chapters/movie/{name}", h.Chapters).Methods("GET")
	r.HandleFunc("/chapters/tv/{show}", h.Chapters).Methods("GET")
	r.HandleFunc("/chapters/tv/{show}/{season}/{ep}", h.Chapters).Methods("GET")

	r.HandleFunc("/videoClip/movie/{name}", h.Clip).Methods("GET")
	r.HandleFunc("/videoClip/tv/{show}/{season}/{ep}", h.Clip).Methods("GET")

	r.HandleFunc("/media/movies", h.ListMovies).Methods("GET")
	r.HandleFunc("/media/tv", h.ListTVShows).Methods("GET")
	r.HandleFunc("/media/scan", h.TriggerScan).Methods("POST")
	r.HandleFunc("/rescan/tmdb", h.TriggerEnrichment).Methods("GET")

	return r
}

func handleShutdown(
	srv, metricsSrv *http.Server,
	catalogDB, processQueueDB, tmdbCacheDB, introsDB *catalogdb.DB,
	scanTicker *time.Ticker,
	scanDone chan struct{},
	stopWatcher func(),
	stopSweepers func(),
	cancelStartup context.CancelFunc,
	done chan struct{},
) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping library scanner")
	scanTicker.Stop()
	close(scanDone)
	stopWatcher()
	cancelStartup()
	startup.LogShutdownStepComplete("Library scanner stopped")

	startup.LogShutdownStep("Stopping cache eviction sweepers")
	stopSweepers()
	startup.LogShutdownStepComplete("Cache eviction sweepers stopped")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("HTTP server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down image post-processor")
	postprocess.Shutdown()
	startup.LogShutdownStepComplete("Image post-processor shut down")

	startup.LogShutdownStep("Closing databases")
	for name, db := range map[string]*catalogdb.DB{
		"catalog":      catalogDB,
		"processqueue": processQueueDB,
		"tmdbcache":    tmdbCacheDB,
		"intros":       introsDB,
	} {
		if err := db.Close(); err != nil {
			logging.Warn("%s database close error: %v", name, err)
		}
	}
	startup.LogShutdownStepComplete("Databases closed")

	startup.LogShutdownComplete()
}
