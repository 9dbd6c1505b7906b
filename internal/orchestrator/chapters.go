package orchestrator

import (
	"context"
	"fmt"

	"media-viewer/internal/cache"
	"media-viewer/internal/errs"
)

// Chapters implements spec.md §4.9's chapters flow: resolve the item,
// probe for chapter markers, and write a WebVTT cue per chapter. Unlike
// sprite sheets and clips this is neither cached by content version nor
// coalesced — ffprobe's chapter extraction is cheap enough to run per
// request, and the result is written straight into the general cache
// root keyed by the resolved path.
func (o *Orchestrator) Chapters(ctx context.Context, r Ref) (string, error) {
	path, err := o.resolvePath(ctx, r)
	if err != nil {
		return "", err
	}

	has, err := o.adapter.HasChapters(ctx, path)
	if err != nil {
		return "", err
	}
	if !has {
		return "", errs.New(errs.SourceMissing, fmt.Sprintf("no chapter markers for %s", path))
	}

	chapters, err := o.adapter.ExtractChapters(ctx, path)
	if err != nil {
		return "", err
	}
	durationMs, err := o.adapter.ProbeDuration(ctx, path)
	if err != nil {
		return "", err
	}

	filename := cache.Sanitize(r.fingerprintPrefix()) + "_chapters.vtt"
	outPath := o.store.Path(cache.RootGeneral, filename)
	if err := writeChaptersVTT(outPath, chapters, float64(durationMs)/1000); err != nil {
		return "", err
	}
	return outPath, nil
}
