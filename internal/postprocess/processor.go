package postprocess

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/davidbyttow/govips/v2/vips"

	"media-viewer/internal/coalesce"
	"media-viewer/internal/logging"
	"media-viewer/internal/metrics"
)

// ChromeHeightLimit is the hard browser decoded-image height limit
// named in spec.md §4.2.
const ChromeHeightLimit = 30780

// PNGOptions controls palette re-encoding, with the defaults spec.md
// §4.2 states.
type PNGOptions struct {
	Quality          int     // default 65
	CompressionLevel int     // default 9
	Colors           int     // default 256, in [2,256]
	Dither           float64 // default 0.9
}

// DefaultPNGOptions returns spec.md §4.2's stated defaults.
func DefaultPNGOptions() PNGOptions {
	return PNGOptions{Quality: 65, CompressionLevel: 9, Colors: 256, Dither: 0.9}
}

// Processor converts generated sprite-sheet PNGs to AVIF (or
// palette-optimizes them in place) per spec.md §4.2's format-decision
// rule. AVIF conversions are deduplicated per output path through
// internal/coalesce, so two callers racing to produce the same AVIF
// file share one encode.
type Processor struct {
	avifEnabled bool
	quality     int // AVIF quality, --max equivalent
	speed       int // AVIF encode speed
	group       *coalesce.Group[string, string]
}

// NewProcessor constructs a Processor. avifEnabled mirrors a global
// AVIF-disable config switch; quality/speed are the AVIF encoder
// parameters spec.md §4.2 names as `--min 0 --max <quality> -s <speed>`.
func NewProcessor(avifEnabled bool, quality, speed int) *Processor {
	return &Processor{
		avifEnabled: avifEnabled,
		quality:     quality,
		speed:       speed,
		group:       &coalesce.Group[string, string]{},
	}
}

// DecideFormat implements spec.md §4.2's format-decision rule: prefer
// AVIF when `rows * 180 <= ChromeHeightLimit`, unless AVIF is globally
// disabled.
func (p *Processor) DecideFormat(rows int) bool {
	if !p.avifEnabled {
		return false
	}
	return rows*180 <= ChromeHeightLimit
}

// ConvertToAVIF converts the PNG at srcPath to an AVIF at dstPath,
// deduplicating concurrent callers targeting the same dstPath. On
// success, deleteSource controls whether the source PNG is removed.
// On encode failure the caller should fall back to OptimizePNG and
// record the PNG as the format actually served, per spec.md §4.2.
func (p *Processor) ConvertToAVIF(ctx context.Context, srcPath, dstPath string, deleteSource bool) error {
	if err := guard(); err != nil {
		return err
	}

	start := time.Now()
	_, err, _ := p.group.Do(dstPath, func() (string, error) {
		if err := p.convertToAVIF(srcPath, dstPath); err != nil {
			return "", err
		}
		if deleteSource {
			if rmErr := os.Remove(srcPath); rmErr != nil && !os.IsNotExist(rmErr) {
				logging.Warn("postprocess: failed to remove source PNG %s: %v", srcPath, rmErr)
			}
		}
		return dstPath, nil
	})
	metrics.PostprocessDuration.WithLabelValues("avif_encode").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PostprocessOperationsTotal.WithLabelValues("avif_encode", "error").Inc()
		return err
	}
	metrics.PostprocessOperationsTotal.WithLabelValues("avif_encode", "success").Inc()
	return nil
}

// ImageDimensions decodes the image at path and returns its actual
// pixel width/height, per spec.md §4.9: VTT generation re-reads the
// final sprite image rather than trusting the requested scale, since
// libswscale's `scale=320:-1` does not guarantee
// `round(320*srcH/srcW)` exactly.
func (p *Processor) ImageDimensions(path string) (w, h int, err error) {
	ref, err := vips.NewImageFromFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("postprocess: load %s: %w", path, err)
	}
	defer ref.Close()
	return ref.Width(), ref.Height(), nil
}

func (p *Processor) convertToAVIF(srcPath, dstPath string) error {
	ref, err := vips.NewImageFromFile(srcPath)
	if err != nil {
		return fmt.Errorf("postprocess: load %s: %w", srcPath, err)
	}
	defer ref.Close()

	params := vips.NewAvifExportParams()
	params.Quality = p.quality
	params.Speed = p.speed
	params.Lossless = false

	buf, _, err := ref.ExportAvif(params)
	if err != nil {
		return fmt.Errorf("postprocess: AVIF export %s: %w", srcPath, err)
	}

	return atomicWrite(dstPath, buf)
}

// OptimizePNG re-encodes srcPath as a palette-optimized PNG, writing to
// a `*_optimization.png` sibling then atomically renaming into place,
// per spec.md §4.2.
func (p *Processor) OptimizePNG(srcPath string, opts PNGOptions) error {
	if err := guard(); err != nil {
		return err
	}

	start := time.Now()
	err := p.optimizePNG(srcPath, opts)
	metrics.PostprocessDuration.WithLabelValues("png_optimize").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PostprocessOperationsTotal.WithLabelValues("png_optimize", "error").Inc()
		return err
	}
	metrics.PostprocessOperationsTotal.WithLabelValues("png_optimize", "success").Inc()
	return nil
}

func (p *Processor) optimizePNG(srcPath string, opts PNGOptions) error {
	ref, err := vips.NewImageFromFile(srcPath)
	if err != nil {
		return fmt.Errorf("postprocess: load %s: %w", srcPath, err)
	}
	defer ref.Close()

	colors := opts.Colors
	if colors < 2 {
		colors = 2
	}
	if colors > 256 {
		colors = 256
	}

	params := vips.NewPngExportParams()
	params.Quality = opts.Quality
	params.Compression = opts.CompressionLevel
	params.Palette = true
	params.Dither = opts.Dither
	params.Bitdepth = bitdepthFor(colors)

	buf, _, err := ref.ExportPng(params)
	if err != nil {
		return fmt.Errorf("postprocess: PNG export %s: %w", srcPath, err)
	}

	tmpPath := srcPath + "_optimization.png"
	if err := atomicWrite(tmpPath, buf); err != nil {
		return err
	}
	return os.Rename(tmpPath, srcPath)
}

func bitdepthFor(colors int) int {
	switch {
	case colors <= 2:
		return 1
	case colors <= 4:
		return 2
	case colors <= 16:
		return 4
	default:
		return 8
	}
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("postprocess: write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
