package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-viewer/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration, per spec.md §6's
// environment surface plus the ambient cache/database/server knobs the
// teacher's equivalent Config always carries alongside it.
type Config struct {
	BasePath          string // BASE_PATH: media library root (movies/, tv/ subdirectories)
	PrefixPath        string // PREFIX_PATH: URL prefix embedded in public URLs and VTT cues
	LogPath           string // LOG_PATH: log directory, empty means stderr only
	Debug             bool   // DEBUG: verbose logging
	FileServerNodeURL string // FILE_SERVER_NODE_URL: base URL embedded in VTT cues
	UseNativeBlurhash bool   // USE_NATIVE_BLURHASH: in-process blurhash vs external sidecar

	FFmpegConcurrency    int // FFMPEG_CONCURRENCY (default 2)
	BlurhashConcurrency  int // BLURHASH_CONCURRENCY (default 4)

	CacheDir    string // CACHE_DIR: parent of the four cache roots
	DatabaseDir string // DATABASE_DIR: parent of the four sqlite databases

	Port        string
	MetricsPort string

	ScanInterval      time.Duration // SCAN_INTERVAL: periodic full scan cadence
	EnrichRetryWindow time.Duration // ENRICH_RETRY_INTERVAL: missing-art retry rate limit

	AVIFQuality int // AVIF_QUALITY (default 50)
	AVIFSpeed   int // AVIF_SPEED (default 6)

	MetricsEnabled bool

	// Derived paths
	MoviesRoot string
	TVRoot     string
}

// LoadConfig loads and validates configuration from environment variables.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	basePath := getEnv("BASE_PATH", "/var/www/html")
	prefixPath := getEnv("PREFIX_PATH", "")
	logPath := getEnv("LOG_PATH", "")
	debug := getEnvBool("DEBUG", false)
	fileServerNodeURL := getEnv("FILE_SERVER_NODE_URL", "")
	useNativeBlurhash := getEnvBool("USE_NATIVE_BLURHASH", true)

	ffmpegConcurrency := getEnvInt("FFMPEG_CONCURRENCY", 2)
	blurhashConcurrency := getEnvInt("BLURHASH_CONCURRENCY", 4)

	cacheDir := getEnv("CACHE_DIR", "/cache")
	databaseDir := getEnv("DATABASE_DIR", "/database")

	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	scanIntervalStr := getEnv("SCAN_INTERVAL", "30m")
	retryIntervalStr := getEnv("ENRICH_RETRY_INTERVAL", "24h")

	avifQuality := getEnvInt("AVIF_QUALITY", 50)
	avifSpeed := getEnvInt("AVIF_SPEED", 6)

	logging.Info("  BASE_PATH:              %s", basePath)
	logging.Info("  PREFIX_PATH:            %s", prefixPath)
	logging.Info("  LOG_PATH:               %s", logPath)
	logging.Info("  DEBUG:                  %v", debug)
	logging.Info("  FILE_SERVER_NODE_URL:   %s", fileServerNodeURL)
	logging.Info("  USE_NATIVE_BLURHASH:    %v", useNativeBlurhash)
	logging.Info("  FFMPEG_CONCURRENCY:     %d", ffmpegConcurrency)
	logging.Info("  BLURHASH_CONCURRENCY:   %d", blurhashConcurrency)
	logging.Info("  CACHE_DIR:              %s", cacheDir)
	logging.Info("  DATABASE_DIR:           %s", databaseDir)
	logging.Info("  PORT:                   %s", port)
	logging.Info("  METRICS_PORT:           %s", metricsPort)
	logging.Info("  METRICS_ENABLED:        %v", metricsEnabled)
	logging.Info("  SCAN_INTERVAL:          %s", scanIntervalStr)
	logging.Info("  ENRICH_RETRY_INTERVAL:  %s", retryIntervalStr)
	logging.Info("  AVIF_QUALITY:           %d", avifQuality)
	logging.Info("  AVIF_SPEED:             %d", avifSpeed)

	scanInterval, err := time.ParseDuration(scanIntervalStr)
	if err != nil {
		logging.Warn("  Invalid SCAN_INTERVAL, using default: 30m")
		scanInterval = 30 * time.Minute
	}

	retryInterval, err := time.ParseDuration(retryIntervalStr)
	if err != nil {
		logging.Warn("  Invalid ENRICH_RETRY_INTERVAL, using default: 24h")
		retryInterval = 24 * time.Hour
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	basePath, err = filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}
	logging.Info("  Base path (absolute): %s", basePath)

	cacheDir, err = filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	logging.Info("  Cache directory (absolute): %s", cacheDir)

	databaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", databaseDir)

	if err := ensureDirectory(basePath, "media"); err != nil {
		logging.Warn("  Base path issue: %v", err)
	}

	config := &Config{
		BasePath:            basePath,
		PrefixPath:          prefixPath,
		LogPath:             logPath,
		Debug:               debug,
		FileServerNodeURL:   fileServerNodeURL,
		UseNativeBlurhash:   useNativeBlurhash,
		FFmpegConcurrency:   ffmpegConcurrency,
		BlurhashConcurrency: blurhashConcurrency,
		CacheDir:            cacheDir,
		DatabaseDir:         databaseDir,
		Port:                port,
		MetricsPort:         metricsPort,
		ScanInterval:        scanInterval,
		EnrichRetryWindow:   retryInterval,
		AVIFQuality:         avifQuality,
		AVIFSpeed:           avifSpeed,
		MetricsEnabled:      metricsEnabled,
		MoviesRoot:          filepath.Join(basePath, "movies"),
		TVRoot:              filepath.Join(basePath, "tv"),
	}

	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if err := ensureDirectory(cacheDir, "cache"); err != nil {
		return nil, fmt.Errorf("cache directory error: %w", err)
	}
	logging.Debug("  Testing cache directory write access...")
	if err := testWriteAccess(cacheDir); err != nil {
		return nil, fmt.Errorf("cache directory is not writable (required for derivation output): %w", err)
	}
	logging.Info("  [OK] Cache directory is writable")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    Cache:       ENABLED (required)")
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs catalog database initialization.
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Databases opened in %v", duration)
}

// LogFFmpegInit logs the FFmpeg adapter's startup availability check.
func LogFFmpegInit(concurrency int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("FFMPEG ADAPTER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Concurrency: %d", concurrency)

	if err := checkFFmpeg(); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Frame/sprite/clip rendering will not work")
	} else {
		logging.Info("  [OK] FFmpeg is available")
	}
	if err := checkFFprobe(); err != nil {
		logging.Warn("  ffprobe check failed: %v", err)
	} else {
		logging.Info("  [OK] ffprobe is available")
	}
}

// LogScannerInit logs library scanner initialization.
func LogScannerInit(interval time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SCANNER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Scan interval: %v", interval)
	logging.Info("  Starting scanner...")
}

// LogScannerStarted logs successful scanner start.
func LogScannerStarted() {
	logging.Info("  [OK] Scanner started")
}

// MemoryConfig mirrors internal/memory.ConfigResult as a startup-layer
// view so LogMemoryConfig can report it without
// importing the memory package's runtime types directly.
type MemoryConfig struct {
	Configured     bool
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// LogMemoryConfig logs the outcome of internal/memory.ConfigureFromEnv.
func LogMemoryConfig(mc MemoryConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if !mc.Configured {
		logging.Info("  GOMEMLIMIT not configured (set GOMEMLIMIT or MEMORY_LIMIT to enable backpressure)")
		return
	}

	logging.Info("  Source:        %s", mc.Source)
	logging.Info("  Go mem limit:  %s", formatBytesStartup(mc.GoMemLimit))
	if mc.ContainerLimit > 0 {
		logging.Info("  Container limit: %s (ratio %.2f)", formatBytesStartup(mc.ContainerLimit), mc.Ratio)
	}
}

// formatBytesStartup renders a byte count using IEC binary units, per
// the convention internal/memory/config.go establishes for its own
// GOMEMLIMIT logging.
func formatBytesStartup(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			groupRoutes := groups[group]
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groupRoutes {
				methodPadded := fmt.Sprintf("%-6s", route.Method)
				logging.Debug("    %s %s", methodPadded, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	return parts[0]
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Local access:")
	logging.Info("    Application:   http://localhost:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", config.MetricsPort)
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
 __  __          _ _       ____            _
|  \/  | ___  __| (_) __ _|  _ \  ___ _ __(_)_   _____ _ __
| |\/| |/ _ \/ _  | |/ _  | | | |/ _ \ '__| \ \ / / _ \ '__|
| |  | |  __/ (_| | | (_| | |_| |  __/ |  | |\ V /  __/ |
|_|  |_|\___|\__,_|_|\__,_|____/ \___|_|  |_| \_/ \___|_|

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "media" && logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			fileCount := 0
			dirCount := 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				} else {
					fileCount++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
		}
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkFFmpeg() error {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH")
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg", "-version")
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(lines[0]))
	}

	return nil
}

func checkFFprobe() error {
	path, err := exec.LookPath("ffprobe")
	if err != nil {
		return fmt.Errorf("ffprobe not found in PATH")
	}
	logging.Debug("  ffprobe path: %s", path)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
