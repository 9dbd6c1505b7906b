package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"media-viewer/internal/errs"
	"media-viewer/internal/logging"
)

// SpriteSheet handles GET /spritesheet/movie/:name and
// /spritesheet/tv/:show/:season/:ep, per spec.md §6. The AVIF form is
// served immutable; a placeholder PNG (background AVIF conversion
// still running) is served with a short max-age so clients re-check
// soon for the final artifact.
func (h *Handlers) SpriteSheet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ref, ok := refFromVars(vars)
	if !ok {
		writeError(w, errs.New(errs.BadRequest, "missing or malformed route variables"))
		return
	}

	artifact, err := h.orch.SpriteSheet(r.Context(), ref)
	if err != nil {
		logging.Error("spritesheet: %v", err)
		writeError(w, err)
		return
	}

	if artifact.Format == "avif" {
		w.Header().Set("Content-Type", "image/avif")
	} else {
		w.Header().Set("Content-Type", "image/png")
	}

	if artifact.Final {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=60")
	}

	http.ServeFile(w, r, artifact.Path)
}

// VTT handles GET /vtt/movie/:name and /vtt/tv/:show/:season/:ep, per
// spec.md §6.
func (h *Handlers) VTT(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ref, ok := refFromVars(vars)
	if !ok {
		writeError(w, errs.New(errs.BadRequest, "missing or malformed route variables"))
		return
	}

	path, err := h.orch.VTT(r.Context(), ref)
	if err != nil {
		logging.Error("vtt: %v", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/vtt")
	http.ServeFile(w, r, path)
}
