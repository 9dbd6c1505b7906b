package orchestrator

import (
	"fmt"
	"os"
	"strings"

	"media-viewer/internal/ffmpeg"
)

// formatVTTTime renders seconds as WebVTT's HH:MM:SS.mmm timestamp.
func formatVTTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int64(seconds*1000 + 0.5)
	ms := totalMs % 1000
	totalSeconds := totalMs / 1000
	s := totalSeconds % 60
	m := (totalSeconds / 60) % 60
	h := totalSeconds / 3600
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// writeSpriteVTT generates the thumbnail VTT for a sprite sheet: one
// cue per sampled frame, each pointing at imageURL with an xywh
// fragment into the tile grid, per spec.md §4.9. cellWidth/cellHeight
// must be the actual decoded sprite sheet dimensions divided by
// cols/rows (see orchestrator.cellDimensionsFromSprite), not a value
// derived from the source video's aspect ratio — libswscale's
// `scale=320:-1` does not guarantee `round(320*srcH/srcW)` exactly.
func writeSpriteVTT(outPath, imageURL string, durationSeconds float64, frames, cols, cellWidth, cellHeight int, interval float64) error {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")

	for i := 0; i < frames; i++ {
		start := float64(i) * interval
		end := start + interval
		if end > durationSeconds {
			end = durationSeconds
		}
		col := i % cols
		row := i / cols
		x := col * cellWidth
		y := row * cellHeight

		fmt.Fprintf(&b, "%s --> %s\n%s#xywh=%d,%d,%d,%d\n\n",
			formatVTTTime(start), formatVTTTime(end), imageURL, x, y, cellWidth, cellHeight)
	}

	return atomicWriteText(outPath, b.String())
}

// writeChaptersVTT generates a WEBVTT file from ffprobe chapter
// markers, each cue running from its start to the next chapter's start
// (or the container's duration for the last one), per spec.md §4.9.
func writeChaptersVTT(outPath string, chapters []ffmpeg.Chapter, durationSeconds float64) error {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")

	for i, c := range chapters {
		end := durationSeconds
		if i+1 < len(chapters) {
			end = chapters[i+1].StartTime
		}
		title := c.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n", formatVTTTime(c.StartTime), formatVTTTime(end), title)
	}

	return atomicWriteText(outPath, b.String())
}

func atomicWriteText(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
