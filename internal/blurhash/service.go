package blurhash

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"media-viewer/internal/coalesce"
	"media-viewer/internal/logging"
	"media-viewer/internal/metrics"
)

// defaultComponentsX/Y match the blurhash reference implementation's
// commonly used 4x3 component grid.
const (
	defaultComponentsX = 4
	defaultComponentsY = 3
)

// Cache is the subset of internal/catalogdb's TMDB/blurhash cache
// table this service reads and writes through.
type Cache interface {
	GetBlurhash(ctx context.Context, imageURL string, now int64) (string, bool, error)
	PutBlurhash(ctx context.Context, imageURL, hash string, now int64) error
}

// Service produces blurhashes for local image files, deduplicating
// concurrent requests for the same normalized remote URL through
// internal/coalesce and caching results in Cache with a TTL. Gated by
// the USE_NATIVE_BLURHASH config flag — when disabled, callers should
// skip this service entirely; there is no external-CLI fallback (see
// DESIGN.md for the rationale).
type Service struct {
	cache  Cache
	group  *coalesce.Group[string, string]
	enabled bool
}

// NewService constructs a blurhash Service. enabled mirrors
// USE_NATIVE_BLURHASH; when false, Compute returns an error immediately
// rather than doing any work.
func NewService(cache Cache, enabled bool) *Service {
	return &Service{
		cache:   cache,
		group:   &coalesce.Group[string, string]{},
		enabled: enabled,
	}
}

// Compute returns the blurhash for the image at localPath, whose
// canonical remote identity is remoteURL (used as the cache key).
// Concurrent calls for the same remoteURL are coalesced into one
// encode. Results are cached in Cache with a 90-day TTL and also
// written to a `<image>.blurhash` sibling file.
func (s *Service) Compute(ctx context.Context, localPath, remoteURL string) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("blurhash: native computation disabled")
	}

	key := normalizeURL(remoteURL)
	now := time.Now().Unix()

	if cached, ok, err := s.cache.GetBlurhash(ctx, key, now); err == nil && ok {
		metrics.CoalesceProducerTotal.WithLabelValues("blurhash_cache_hit").Inc()
		return cached, nil
	}

	start := time.Now()
	hash, _, err := s.group.Do(key, func() (string, error) {
		h, err := s.computeAndPersist(ctx, localPath, key, now)
		return h, err
	})
	metrics.PostprocessDuration.WithLabelValues("blurhash").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PostprocessOperationsTotal.WithLabelValues("blurhash", "error").Inc()
		return "", err
	}
	metrics.PostprocessOperationsTotal.WithLabelValues("blurhash", "success").Inc()
	return hash, nil
}

func (s *Service) computeAndPersist(ctx context.Context, localPath, key string, now int64) (string, error) {
	img, err := imaging.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("blurhash: open %s: %w", localPath, err)
	}

	hash, err := encodeSized(img)
	if err != nil {
		return "", err
	}

	sidecar := sidecarPath(localPath)
	if werr := os.WriteFile(sidecar, []byte(hash), 0o644); werr != nil {
		logging.Warn("blurhash: failed to write sidecar %s: %v", sidecar, werr)
	}

	if perr := s.cache.PutBlurhash(ctx, key, hash, now); perr != nil {
		logging.Warn("blurhash: failed to cache %s: %v", key, perr)
	}

	return hash, nil
}

// encodeSized downsamples img before encoding — the blurhash algorithm
// only needs a handful of low-frequency samples, so encoding at full
// resolution wastes CPU with no change in output.
func encodeSized(img image.Image) (string, error) {
	const maxDim = 100
	b := img.Bounds()
	if b.Dx() > maxDim || b.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}
	return Encode(img, defaultComponentsX, defaultComponentsY)
}

func sidecarPath(imagePath string) string {
	return imagePath + ".blurhash"
}

// normalizeURL canonicalizes a remote image URL for use as a cache key
// — lowercases scheme/host, strips a trailing slash, drops any query
// string (the same source image is reachable through several signed or
// versioned query parameters).
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimSuffix(raw, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

// ReadSidecar reads a previously written `<image>.blurhash` file, if present.
func ReadSidecar(imagePath string) (string, bool) {
	data, err := os.ReadFile(sidecarPath(imagePath))
	if err != nil {
		return "", false
	}
	return string(data), true
}
