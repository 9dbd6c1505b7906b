package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-viewer/internal/cache"
	"media-viewer/internal/catalogdb"
	"media-viewer/internal/coalesce"
	"media-viewer/internal/errs"
	"media-viewer/internal/metrics"
)

// Clip implements spec.md §4.9's video-clip flow: validate the
// requested window against the source duration and the configured
// maximum length, serve an already-rendered clip on a cache hit, and
// otherwise coalesce concurrent producers before invoking the FFmpeg
// Adapter. A waiter that joins an already in-flight render gives up
// after o.cfg.ClipWaitTimeout and fails with errs.Timeout, per spec.md
// §5's 10-second clip-waiter poll timeout — the producer itself is
// never subject to this timeout.
func (o *Orchestrator) Clip(ctx context.Context, r Ref, start, end float64) (string, error) {
	if start < 0 {
		return "", errs.New(errs.BadRequest, "clip start must not be negative")
	}
	if end <= start {
		return "", errs.New(errs.BadRequest, "clip end must be after start")
	}
	if end-start > o.cfg.ClipMaxDurationSeconds {
		return "", errs.New(errs.BadRequest, fmt.Sprintf("clip duration exceeds the %.0fs limit", o.cfg.ClipMaxDurationSeconds))
	}

	videoPath, inf, err := o.info(ctx, r)
	if err != nil {
		return "", err
	}
	durationSeconds := float64(inf.LengthMs) / 1000
	if end > durationSeconds {
		return "", errs.New(errs.BadRequest, "clip end exceeds source duration")
	}

	filename := cache.ClipFilename(videoPath, start, end)
	if o.store.Exists(cache.RootVideoClips, filename) {
		return o.store.Path(cache.RootVideoClips, filename), nil
	}

	fp := fmt.Sprintf("%s|clip|%.3f|%.3f", r.fingerprintPrefix(), start, end)
	path, doErr, _ := o.clipGroup.DoTimeout(fp, o.cfg.ClipWaitTimeout, func() (string, error) {
		return o.produceClip(ctx, videoPath, start, end, filename)
	})
	if errors.Is(doErr, coalesce.ErrTimeout) {
		metrics.CoalesceWaitTimeoutTotal.WithLabelValues("clip").Inc()
		return "", errs.New(errs.Timeout, "timed out waiting for an in-flight clip render")
	}
	return path, doErr
}

func (o *Orchestrator) produceClip(ctx context.Context, videoPath string, start, end float64, filename string) (string, error) {
	fileKey := "clip:" + filename
	now := time.Now().Unix()
	_ = o.processQueue.CreateOrUpdate(ctx, fileKey, "videoclip", 1, "rendering clip", now)

	outPath := o.store.Path(cache.RootVideoClips, filename)
	if err := o.adapter.RenderClip(ctx, videoPath, start, end, outPath); err != nil {
		_ = o.processQueue.Finalize(ctx, fileKey, catalogdb.StatusError, err.Error(), time.Now().Unix())
		return "", err
	}

	_ = o.processQueue.Finalize(ctx, fileKey, catalogdb.StatusCompleted, "clip rendered", time.Now().Unix())
	return outPath, nil
}
