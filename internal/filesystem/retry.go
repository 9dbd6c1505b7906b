// Package filesystem provides utilities for filesystem operations with retry logic for NFS
package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"media-viewer/internal/logging"
)

// VolumeResolver maps file paths to known volume names for metric labeling.
// It uses longest-prefix matching on absolute paths.
type VolumeResolver struct {
	mounts []volumeMount
}

type volumeMount struct {
	path string
	name string
}

// NewVolumeResolver creates a resolver from a map of volume name → absolute path.
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, path := range volumes {
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		if !strings.HasSuffix(absPath, "/") {
			absPath += "/"
		}
		mounts = append(mounts, volumeMount{path: absPath, name: name})
	}

	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].path) > len(mounts[j].path)
	})

	return &VolumeResolver{mounts: mounts}
}

// Resolve returns the volume name for a given file path, or "unknown".
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return "unknown"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "unknown"
	}

	for _, mount := range vr.mounts {
		if strings.HasPrefix(absPath+"/", mount.path) || strings.HasPrefix(absPath, mount.path) {
			return mount.name
		}
	}

	return "unknown"
}

var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver sets the package-level volume resolver.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}

// RetryConfig configures retry behavior for filesystem operations.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c *RetryConfig) resolveVolume(path string) string {
	if c.VolumeResolver != nil {
		return c.VolumeResolver.Resolve(path)
	}
	return defaultResolver.Resolve(path)
}

func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

// StatWithRetry performs os.Stat with retry logic for NFS stale file handle errors.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	return retryOp("stat", path, config, func() (os.FileInfo, error) {
		return os.Stat(path)
	})
}

// OpenWithRetry performs os.Open with retry logic for NFS stale file handle errors.
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	return retryOp("open", path, config, func() (*os.File, error) {
		return os.Open(path)
	})
}

// ReadDirWithRetry performs os.ReadDir with retry logic for NFS stale file
// handle errors. Used by the metrics Collector's directory-size walk,
// which traverses directories that may live on unreliable network
// storage.
func ReadDirWithRetry(path string, config RetryConfig) ([]os.DirEntry, error) {
	return retryOp("readdir", path, config, func() ([]os.DirEntry, error) {
		return os.ReadDir(path)
	})
}

// retryOp is the shared backoff loop behind StatWithRetry/OpenWithRetry/
// ReadDirWithRetry: attempt fn, and on ESTALE retry with capped
// exponential backoff, observing metrics through the package-level
// Observer indirection (see observer.go) rather than importing the
// metrics package directly, avoiding an import cycle.
func retryOp[T any](opName, path string, config RetryConfig, fn func() (T, error)) (T, error) {
	start := time.Now()
	volume := config.resolveVolume(path)
	backoff := config.InitialBackoff
	var lastErr error
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", opName, attempt, path)
				if o := observe(); o != nil {
					o.ObserveRetrySuccess(opName, volume)
				}
			}
			if o := observe(); o != nil {
				o.ObserveRetryDuration(opName, volume, time.Since(start).Seconds())
			}
			return result, nil
		}

		lastErr = err

		if !isNFSStaleError(err) {
			if o := observe(); o != nil {
				o.ObserveRetryDuration(opName, volume, time.Since(start).Seconds())
			}
			return zero, err
		}

		if o := observe(); o != nil {
			o.ObserveStaleError(opName, volume)
		}

		if attempt < config.MaxRetries {
			if o := observe(); o != nil {
				o.ObserveRetryAttempt(opName, volume)
			}
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				opName, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", opName, config.MaxRetries, path, lastErr)
	if o := observe(); o != nil {
		o.ObserveRetryFailure(opName, volume)
		o.ObserveRetryDuration(opName, volume, time.Since(start).Seconds())
	}
	return zero, lastErr
}
