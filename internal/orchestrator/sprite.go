package orchestrator

import (
	"context"
	"math"
	"time"

	"media-viewer/internal/cache"
	"media-viewer/internal/catalogdb"
	"media-viewer/internal/infofile"
	"media-viewer/internal/logging"
	"media-viewer/internal/postprocess"
)

// spriteArtifact is the result of a sprite-sheet derivation: the path
// actually produced and whether it is the permanent format or a
// placeholder PNG still waiting on a background AVIF conversion, per
// spec.md §4.9's "serve the PNG at max-age=60 while AVIF is converting"
// rule.
type spriteArtifact struct {
	Path   string
	Format string // "avif" or "png"
	Final  bool
}

// frameCount returns the number of sampled frames for a sprite sheet,
// inclusive of the final partial interval, per spec.md §4.9:
// floor(duration/interval) + 1.
func frameCount(durationSeconds, interval float64) int {
	return int(math.Floor(durationSeconds/interval)) + 1
}

func spriteRows(frames, cols int) int {
	return int(math.Ceil(float64(frames) / float64(cols)))
}

// cellDimensionsFromSprite derives the VTT's per-cue xywh cell size by
// decoding the actual produced sprite sheet and dividing by the grid
// layout, per spec.md §4.9: "VTT generation re-reads the final sprite
// image to obtain actual dimensions" because the cell size "robust to
// scale rounding" cannot be predicted from the source aspect ratio —
// libswscale's `scale=320:-1` does not guarantee
// `round(320*srcH/srcW)` exactly. Falls back to the spec's nominal
// 320x180 logical cell if the sheet can't be decoded.
func cellDimensionsFromSprite(post *postprocess.Processor, spritePath string, cols, rows int) (w, h int) {
	sheetW, sheetH, err := post.ImageDimensions(spritePath)
	if err != nil || cols == 0 || rows == 0 {
		return 320, 180
	}
	return sheetW / cols, sheetH / rows
}

// SpriteSheet implements spec.md §4.9's sprite+VTT flow: compute the
// frame/row/column layout, serve an already-produced artifact if one
// exists (an AVIF takes priority over a placeholder PNG; a PNG alone
// means either the final format or a background conversion still in
// flight), otherwise coalesce concurrent producers and render.
func (o *Orchestrator) SpriteSheet(ctx context.Context, r Ref) (spriteArtifact, error) {
	videoPath, inf, err := o.info(ctx, r)
	if err != nil {
		return spriteArtifact{}, err
	}

	durationSeconds := float64(inf.LengthMs) / 1000
	frames := frameCount(durationSeconds, o.cfg.SpriteIntervalSeconds)
	rows := spriteRows(frames, o.cfg.SpriteColumns)
	stem := cache.SpriteSheetStem(r.isMovie, r.show, r.season, r.episode, inf.UUID)

	avifName := stem + ".avif"
	if o.store.Exists(cache.RootSpriteSheet, avifName) {
		return spriteArtifact{Path: o.store.Path(cache.RootSpriteSheet, avifName), Format: "avif", Final: true}, nil
	}
	pngName := stem + ".png"
	if o.store.Exists(cache.RootSpriteSheet, pngName) {
		avifPreferred := o.post.DecideFormat(rows)
		return spriteArtifact{Path: o.store.Path(cache.RootSpriteSheet, pngName), Format: "png", Final: !avifPreferred}, nil
	}

	fp := r.fingerprintPrefix() + "|sprite"
	result, doErr, _ := o.spriteGroup.Do(fp, func() (spriteArtifact, error) {
		return o.produceSpriteSheet(ctx, r, videoPath, inf, durationSeconds, frames, rows, stem)
	})
	return result, doErr
}

func (o *Orchestrator) produceSpriteSheet(ctx context.Context, r Ref, videoPath string, inf *infofile.Info, durationSeconds float64, frames, rows int, stem string) (spriteArtifact, error) {
	fileKey := "sprite:" + stem
	now := time.Now().Unix()
	_ = o.processQueue.CreateOrUpdate(ctx, fileKey, "spritesheet", 3, "rendering sprite sheet", now)

	pngPath := o.store.Path(cache.RootSpriteSheet, stem+".png")
	hdr := inf.HDR != nil
	if err := o.adapter.RenderSpriteSheet(ctx, videoPath, o.cfg.SpriteIntervalSeconds, o.cfg.SpriteColumns, rows, hdr, pngPath); err != nil {
		_ = o.processQueue.Finalize(ctx, fileKey, catalogdb.StatusError, err.Error(), time.Now().Unix())
		return spriteArtifact{}, err
	}
	_ = o.processQueue.Update(ctx, fileKey, 1, catalogdb.StatusInProgress, "post-processing", time.Now().Unix())

	cellW, cellH := cellDimensionsFromSprite(o.post, pngPath, o.cfg.SpriteColumns, rows)
	imageURL := o.cfg.FileServerNodeURL + o.cfg.PrefixPath + r.endpointPath("spritesheet")

	vttPath := o.store.Path(cache.RootSpriteSheet, stem+".vtt")
	if err := writeSpriteVTT(vttPath, imageURL, durationSeconds, frames, o.cfg.SpriteColumns, cellW, cellH, o.cfg.SpriteIntervalSeconds); err != nil {
		_ = o.processQueue.Finalize(ctx, fileKey, catalogdb.StatusError, err.Error(), time.Now().Unix())
		return spriteArtifact{}, err
	}
	_ = o.processQueue.Update(ctx, fileKey, 2, catalogdb.StatusInProgress, "choosing format", time.Now().Unix())

	o.store.DeleteMatching(cache.RootSpriteSheet, cache.SpriteSheetPattern(r.isMovie, r.show, r.season, r.episode), stem+".png")

	avifPreferred := o.post.DecideFormat(rows)
	if !avifPreferred {
		if err := o.post.OptimizePNG(pngPath, postprocess.DefaultPNGOptions()); err != nil {
			logging.Warn("orchestrator: PNG optimization failed for %s: %v", pngPath, err)
		}
		_ = o.processQueue.Finalize(ctx, fileKey, catalogdb.StatusCompleted, "png", time.Now().Unix())
		return spriteArtifact{Path: pngPath, Format: "png", Final: true}, nil
	}

	_ = o.processQueue.Finalize(ctx, fileKey, catalogdb.StatusCompleted, "png (avif converting)", time.Now().Unix())

	avifPath := o.store.Path(cache.RootSpriteSheet, stem+".avif")
	go o.convertSpriteToAVIFBackground(pngPath, avifPath, stem)

	return spriteArtifact{Path: pngPath, Format: "png", Final: false}, nil
}

// convertSpriteToAVIFBackground runs the AVIF encode outside the
// request that triggered it, per spec.md §4.9 ("the PNG sprite is
// served ... while an AVIF conversion is still running in the
// background"). Uses a background context since the triggering
// request's context is gone by the time this completes.
func (o *Orchestrator) convertSpriteToAVIFBackground(pngPath, avifPath, stem string) {
	if err := o.post.ConvertToAVIF(context.Background(), pngPath, avifPath, true); err != nil {
		logging.Warn("orchestrator: background AVIF conversion failed for %s, falling back to PNG: %v", stem, err)
		if fallbackErr := o.post.OptimizePNG(pngPath, postprocess.DefaultPNGOptions()); fallbackErr != nil {
			logging.Warn("orchestrator: PNG fallback optimization failed for %s: %v", stem, fallbackErr)
		}
	}
}

// VTT returns the path of the WebVTT cue index for r, producing the
// sprite sheet (and its VTT sibling) first if neither exists yet.
func (o *Orchestrator) VTT(ctx context.Context, r Ref) (string, error) {
	if _, err := o.SpriteSheet(ctx, r); err != nil {
		return "", err
	}
	_, inf, err := o.info(ctx, r)
	if err != nil {
		return "", err
	}
	stem := cache.SpriteSheetStem(r.isMovie, r.show, r.season, r.episode, inf.UUID)
	vttPath := o.store.Path(cache.RootSpriteSheet, stem+".vtt")
	return vttPath, nil
}
