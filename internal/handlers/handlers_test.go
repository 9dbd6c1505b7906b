package handlers

import (
	"errors"
	"net/http"
	"testing"

	"media-viewer/internal/errs"
	"media-viewer/internal/orchestrator"
)

func TestStatusForMapsEachKind(t *testing.T) {
	cases := []struct {
		kind errs.Kind
		want int
	}{
		{errs.SourceMissing, http.StatusNotFound},
		{errs.BadRequest, http.StatusBadRequest},
		{errs.Timeout, http.StatusGatewayTimeout},
		{errs.ToolFailed, http.StatusInternalServerError},
		{errs.DbBusy, http.StatusInternalServerError},
	}
	for _, c := range cases {
		err := errs.New(c.kind, "boom")
		if got := statusFor(err); got != c.want {
			t.Errorf("statusFor(%v) = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestStatusForUnclassifiedError(t *testing.T) {
	if got := statusFor(errors.New("plain")); got != http.StatusInternalServerError {
		t.Errorf("statusFor(plain error) = %d, want %d", got, http.StatusInternalServerError)
	}
}

func TestRefFromVarsMovie(t *testing.T) {
	ref, ok := refFromVars(map[string]string{"name": "Inception"})
	if !ok {
		t.Fatal("refFromVars(movie vars) ok = false, want true")
	}
	if ref != orchestrator.MovieRef("Inception") {
		t.Errorf("refFromVars(movie vars) = %+v, want MovieRef(Inception)", ref)
	}
}

func TestRefFromVarsEpisode(t *testing.T) {
	ref, ok := refFromVars(map[string]string{"show": "Breaking Bad", "season": "1", "ep": "3"})
	if !ok {
		t.Fatal("refFromVars(episode vars) ok = false, want true")
	}
	if ref != orchestrator.EpisodeRef("Breaking Bad", 1, 3) {
		t.Errorf("refFromVars(episode vars) = %+v, want EpisodeRef(Breaking Bad, 1, 3)", ref)
	}
}

func TestRefFromVarsMalformed(t *testing.T) {
	if _, ok := refFromVars(map[string]string{"show": "Breaking Bad", "season": "x", "ep": "3"}); ok {
		t.Error("refFromVars with non-numeric season: ok = true, want false")
	}
	if _, ok := refFromVars(map[string]string{"show": "Breaking Bad"}); ok {
		t.Error("refFromVars missing season/ep: ok = true, want false")
	}
	if _, ok := refFromVars(map[string]string{}); ok {
		t.Error("refFromVars(empty vars): ok = true, want false")
	}
}

func TestTrimExt(t *testing.T) {
	cases := map[string]string{
		"00:05:00.jpg": "00:05:00",
		"00:05:00":     "00:05:00",
		".hidden":      ".hidden",
		"12.5":         "12.5", // fractional seconds, not an extension
		"12.AVIF":      "12",   // recognized extension, case-insensitive
	}
	for in, want := range cases {
		if got := trimExt(in); got != want {
			t.Errorf("trimExt(%q) = %q, want %q", in, got, want)
		}
	}
}
