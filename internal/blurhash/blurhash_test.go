package blurhash

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestEncodeRejectsOutOfRangeComponents(t *testing.T) {
	img := solidImage(10, 10, color.White)
	if _, err := Encode(img, 0, 3); err == nil {
		t.Error("Encode with componentsX=0 should error")
	}
	if _, err := Encode(img, 10, 3); err == nil {
		t.Error("Encode with componentsX=10 should error (max is 9)")
	}
}

func TestEncodeRejectsEmptyImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := Encode(img, 4, 3); err == nil {
		t.Error("Encode on an empty image should error")
	}
}

func TestEncodeProducesExpectedLength(t *testing.T) {
	img := solidImage(32, 32, color.RGBA{R: 120, G: 80, B: 200, A: 255})
	hash, err := Encode(img, 4, 3)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	// 1 (size flag) + 1 (max AC value) + 4 (DC) + 2*(4*3-1) (AC components).
	want := 1 + 1 + 4 + 2*(4*3-1)
	if len(hash) != want {
		t.Errorf("Encode() length = %d, want %d", len(hash), want)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	img := solidImage(16, 16, color.RGBA{R: 50, G: 150, B: 250, A: 255})
	a, err := Encode(img, 4, 3)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(img, 4, 3)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("Encode() not deterministic: %q != %q", a, b)
	}
}

func TestNormalizeURLDropsQueryAndLowercasesHost(t *testing.T) {
	got := normalizeURL("HTTPS://Image.TMDB.org/t/p/original/poster.jpg?sig=abc123")
	want := "https://image.tmdb.org/t/p/original/poster.jpg"
	if got != want {
		t.Errorf("normalizeURL() = %q, want %q", got, want)
	}
}

func TestNormalizeURLTrimsTrailingSlash(t *testing.T) {
	got := normalizeURL("https://example.com/image.jpg/")
	want := "https://example.com/image.jpg"
	if got != want {
		t.Errorf("normalizeURL() = %q, want %q", got, want)
	}
}
