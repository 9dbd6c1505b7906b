// Package postprocess implements spec.md §4.2's Image Post-Processor:
// sprite-sheet format decision (AVIF vs PNG), PNG palette optimization,
// and PNG→AVIF conversion. Grounded on the teacher's
// internal/media/vips.go (InitVips/ShutdownVips/LoadImageWithVips),
// generalized from "load a thumbnail for display" to "re-encode a
// generated sprite sheet for storage".
package postprocess

import (
	"fmt"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"media-viewer/internal/logging"
)

var (
	initOnce    sync.Once
	initialized bool
	initMu      sync.Mutex
)

// Init starts libvips once per process, with the same conservative
// memory settings and log-level bridging the teacher uses.
func Init() error {
	var err error
	initOnce.Do(func() {
		err = doInit()
	})
	return err
}

func doInit() error {
	initMu.Lock()
	defer initMu.Unlock()

	vipsLogLevel, logHandler := bridgeLogLevel()
	vips.LoggingSettings(logHandler, vipsLogLevel)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	initialized = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// Shutdown releases libvips resources. Safe to call even if Init was
// never called or already shut down.
func Shutdown() {
	initMu.Lock()
	defer initMu.Unlock()
	if initialized {
		vips.Shutdown()
		initialized = false
		logging.Info("libvips shutdown complete")
	}
}

func bridgeLogLevel() (vips.LogLevel, func(string, vips.LogLevel, string)) {
	level := logging.GetLevel()
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo, func(domain string, l vips.LogLevel, msg string) {
			switch {
			case l >= vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case l == vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	case logging.LevelInfo:
		return vips.LogLevelWarning, func(domain string, l vips.LogLevel, msg string) {
			if l >= vips.LogLevelWarning {
				if l >= vips.LogLevelCritical {
					logging.Error("[%s] %s", domain, msg)
				} else {
					logging.Warn("[%s] %s", domain, msg)
				}
			}
		}
	default:
		return vips.LogLevelCritical, func(domain string, l vips.LogLevel, msg string) {
			if l >= vips.LogLevelCritical {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	}
}

// guard reports an attempt to use the processor before Init, surfaced
// as a plain error rather than a panic.
func guard() error {
	initMu.Lock()
	defer initMu.Unlock()
	if !initialized {
		return fmt.Errorf("postprocess: libvips not initialized")
	}
	return nil
}
