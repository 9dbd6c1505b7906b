package orchestrator

import (
	"context"

	"media-viewer/internal/cache"
)

// Frame implements spec.md §4.9's frame flow: resolve the item, probe
// its Info side-file for the HDR flag, and either serve an
// already-rendered still or render one. No Process Queue entry is
// created — frame requests are latency-critical and single-step, per
// spec.md §4.9.
func (o *Orchestrator) Frame(ctx context.Context, r Ref, timestamp string) (string, error) {
	path, inf, err := o.info(ctx, r)
	if err != nil {
		return "", err
	}

	filename := cache.FrameFilename(r.isMovie, r.show, r.season, r.episode, timestamp)
	if o.store.Exists(cache.RootFrames, filename) {
		return o.store.Path(cache.RootFrames, filename), nil
	}

	full := o.store.Path(cache.RootFrames, filename)
	hdr := inf.HDR != nil
	if err := o.adapter.RenderFrame(ctx, path, timestamp, hdr, full); err != nil {
		return "", err
	}
	return full, nil
}
