package orchestrator

import (
	"testing"

	"media-viewer/internal/postprocess"
)

func TestFrameCount(t *testing.T) {
	cases := []struct {
		duration, interval float64
		want               int
	}{
		{602.4, 5, 121},
		{600, 5, 121},
		{4.9, 5, 1},
		{5, 5, 2},
	}
	for _, c := range cases {
		if got := frameCount(c.duration, c.interval); got != c.want {
			t.Errorf("frameCount(%v, %v) = %d, want %d", c.duration, c.interval, got, c.want)
		}
	}
}

func TestSpriteRows(t *testing.T) {
	cases := []struct {
		frames, cols, want int
	}{
		{121, 10, 13},
		{100, 10, 10},
		{101, 10, 11},
		{1, 10, 1},
	}
	for _, c := range cases {
		if got := spriteRows(c.frames, c.cols); got != c.want {
			t.Errorf("spriteRows(%d, %d) = %d, want %d", c.frames, c.cols, got, c.want)
		}
	}
}

// cellDimensionsFromSprite decodes the actual produced sprite sheet
// rather than trusting the source aspect ratio (spec.md §4.9); these
// cases exercise its fallback paths without requiring a real vips
// decode.
func TestCellDimensionsFromSpriteFallsBackWhenUndecodable(t *testing.T) {
	w, h := cellDimensionsFromSprite(&postprocess.Processor{}, "/nonexistent/sprite.png", 10, 13)
	if w != 320 || h != 180 {
		t.Errorf("cellDimensionsFromSprite fallback = (%d, %d), want (320, 180)", w, h)
	}
}

func TestCellDimensionsFromSpriteFallsBackOnZeroGrid(t *testing.T) {
	w, h := cellDimensionsFromSprite(&postprocess.Processor{}, "/nonexistent/sprite.png", 0, 0)
	if w != 320 || h != 180 {
		t.Errorf("cellDimensionsFromSprite zero-grid fallback = (%d, %d), want (320, 180)", w, h)
	}
}
