package handlers

import (
	"net/http"

	"media-viewer/internal/logging"
)

// ListMovies handles GET /media/movies, per spec.md §6: a catalog dump.
func (h *Handlers) ListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.catalog.ListMovies(r.Context())
	if err != nil {
		logging.Error("media/movies: %v", err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, movies)
}

// ListTVShows handles GET /media/tv, per spec.md §6: a catalog dump.
func (h *Handlers) ListTVShows(w http.ResponseWriter, r *http.Request) {
	shows, err := h.catalog.ListTVShows(r.Context())
	if err != nil {
		logging.Error("media/tv: %v", err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, shows)
}

// TriggerScan handles POST /media/scan, per spec.md §6: force a rescan
// of both library roots. Runs synchronously under the Scanner's own
// single-flight guard, so a scan already in progress is a no-op rather
// than a second overlapping pass.
func (h *Handlers) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if err := h.scanner.ScanAll(r.Context()); err != nil {
		logging.Error("media/scan: %v", err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSONStatus(w, "scanned")
}

// TriggerEnrichment handles GET /rescan/tmdb, per spec.md §6. Enrichment
// attempts are a side effect of the scan pass itself (spec.md §4.6 step
// 6's rate-limited "missing data" retry), so triggering it runs the same
// scan as TriggerScan rather than a second, separate code path.
func (h *Handlers) TriggerEnrichment(w http.ResponseWriter, r *http.Request) {
	if err := h.scanner.ScanAll(r.Context()); err != nil {
		logging.Error("rescan/tmdb: %v", err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSONStatus(w, "enrichment triggered")
}
