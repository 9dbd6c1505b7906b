package ffmpeg

import (
	"context"
	"fmt"
)

// toneMapFilter is the HDR→SDR tone-mapping chain named in spec.md
// §4.1: smpte2084→linear→hable→bt709.
const toneMapFilter = "zscale=transfer=linear,tonemap=hable,zscale=transfer=bt709,format=yuv420p"

// colorFilterFor returns the filter-graph prefix to apply ahead of a
// scale/tile operation: the tone-mapping chain for HDR sources, plain
// rgb24 for SDR, per spec.md §4.1's render_frame contract.
func colorFilterFor(hdr bool) string {
	if hdr {
		return toneMapFilter + ","
	}
	return "format=rgb24,"
}

// RenderFrame seeks to timestamp (accepts "HH:MM:SS" or a bare seconds
// value) and writes a single still scaled to height 140 preserving
// aspect ratio, applying the HDR tone-mapping chain when needed. Output
// is encoded directly as AVIF (the muxer is forced with -f, so the
// .tmp suffix atomicRender appends to out does not need to carry a
// recognizable extension), per spec.md §4.1.
func (a *Adapter) RenderFrame(ctx context.Context, path, timestamp string, hdr bool, out string) error {
	filter := colorFilterFor(hdr) + "scale=-2:140"
	return a.atomicRender(ctx, "render_frame", func(tmpOut string) []string {
		return []string{
			"-y",
			"-ss", timestamp,
			"-i", path,
			"-frames:v", "1",
			"-vf", filter,
			"-c:v", "libaom-av1",
			"-still-picture", "1",
			"-f", "avif",
			tmpOut,
		}
	}, out)
}

// RenderSpriteSheet produces a single PNG tile grid by sampling one
// frame every interval seconds, applying the HDR chain if needed,
// scaling to width 320, and tiling into a cols×rows grid, per spec.md
// §4.1's render_sprite_sheet contract.
func (a *Adapter) RenderSpriteSheet(ctx context.Context, path string, interval float64, cols, rows int, hdr bool, out string) error {
	filter := fmt.Sprintf("fps=1/%g,%sscale=320:-1,tile=%dx%d", interval, colorFilterFor(hdr), cols, rows)
	return a.atomicRender(ctx, "render_sprite_sheet", func(tmpOut string) []string {
		return []string{
			"-y",
			"-i", path,
			"-vf", filter,
			"-frames:v", "1",
			"-c:v", "png",
			"-f", "image2",
			tmpOut,
		}
	}, out)
}

// RenderClip stream-copies the container between start and end (both
// seconds) with frag_keyframe+empty_moov, performing no re-encode, per
// spec.md §4.1's render_clip contract.
func (a *Adapter) RenderClip(ctx context.Context, path string, start, end float64, out string) error {
	return a.atomicRender(ctx, "render_clip", func(tmpOut string) []string {
		return []string{
			"-y",
			"-ss", fmt.Sprintf("%g", start),
			"-to", fmt.Sprintf("%g", end),
			"-i", path,
			"-c", "copy",
			"-movflags", "frag_keyframe+empty_moov",
			"-f", "mp4",
			tmpOut,
		}
	}, out)
}
