package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"media-viewer/internal/errs"
	"media-viewer/internal/logging"
	"media-viewer/internal/orchestrator"
)

// Frame handles GET /frame/movie/:name/:ts.:ext? and
// /frame/tv/:show/:season/:ep/:ts.:ext?, per spec.md §6.
func (h *Handlers) Frame(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ref, ok := refFromVars(vars)
	if !ok {
		writeError(w, errs.New(errs.BadRequest, "missing or malformed route variables"))
		return
	}
	ts := trimExt(vars["ts"])

	path, err := h.orch.Frame(r.Context(), ref, ts)
	if err != nil {
		logging.Error("frame: %s %s: %v", vars["show"]+vars["name"], ts, err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/avif")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeFile(w, r, path)
}

// refFromVars builds an orchestrator.Ref from mux route variables shared
// by every movie/tv route pair spec.md §6 defines: movie routes carry
// "name"; tv routes carry "show"/"season"/"ep".
func refFromVars(vars map[string]string) (orchestrator.Ref, bool) {
	if name, present := vars["name"]; present {
		return orchestrator.MovieRef(name), true
	}
	show, hasShow := vars["show"]
	seasonStr, hasSeason := vars["season"]
	epStr, hasEp := vars["ep"]
	if !hasShow || !hasSeason || !hasEp {
		return orchestrator.Ref{}, false
	}
	season, err1 := strconv.Atoi(seasonStr)
	ep, err2 := strconv.Atoi(epStr)
	if err1 != nil || err2 != nil {
		return orchestrator.Ref{}, false
	}
	return orchestrator.EpisodeRef(show, season, ep), true
}

// frameExtensions are the extensions the optional `:ext?` route suffix
// may carry (spec.md §9 notes the frame path is observably `.avif` but
// occasionally carries `.jpg`). Only these are stripped: a bare dot
// can't be assumed to introduce an extension, since a plain-seconds
// timestamp like "12.5" also contains one.
var frameExtensions = map[string]bool{
	"avif": true,
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
}

// trimExt strips a trailing ".<ext>" from a timestamp path segment, used
// by the optional `:ext?` suffix in the frame route. Leaves the
// timestamp untouched if the suffix after the last dot isn't a
// recognized image extension, so fractional-seconds timestamps
// (e.g. "12.5") aren't truncated to whole seconds.
func trimExt(ts string) string {
	i := strings.LastIndex(ts, ".")
	if i <= 0 {
		return ts
	}
	if frameExtensions[strings.ToLower(ts[i+1:])] {
		return ts[:i]
	}
	return ts
}
