package handlers

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"

	"media-viewer/internal/errs"
	"media-viewer/internal/logging"
	"media-viewer/internal/streaming"
)

// timeoutResponseWriter routes Write calls for a clip response through
// internal/streaming's TimeoutWriter so a stalled client doesn't hold a
// render goroutine open indefinitely, while leaving Range/If-Range
// negotiation to http.ServeContent (Header/WriteHeader pass through
// unmodified).
type timeoutResponseWriter struct {
	http.ResponseWriter
	tw *streaming.TimeoutWriter
}

func (t *timeoutResponseWriter) Write(p []byte) (int, error) {
	return t.tw.Write(p)
}

// Clip handles GET /videoClip/movie/:name?start=&end= and
// /videoClip/tv/:show/:s/:e?start=&end=, per spec.md §6. Validation of
// the requested window happens in the Orchestrator; this handler only
// parses the query parameters and streams the resulting file with
// Range support.
func (h *Handlers) Clip(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ref, ok := refFromVars(vars)
	if !ok {
		writeError(w, errs.New(errs.BadRequest, "missing or malformed route variables"))
		return
	}

	start, err := strconv.ParseFloat(r.URL.Query().Get("start"), 64)
	if err != nil {
		writeError(w, errs.New(errs.BadRequest, "start must be a number"))
		return
	}
	end, err := strconv.ParseFloat(r.URL.Query().Get("end"), 64)
	if err != nil {
		writeError(w, errs.New(errs.BadRequest, "end must be a number"))
		return
	}

	path, err := h.orch.Clip(r.Context(), ref, start, end)
	if err != nil {
		logging.Error("clip: %v", err)
		writeError(w, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		writeError(w, errs.Wrap(errs.SourceMissing, "clip file vanished", err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, errs.Wrap(errs.ToolFailed, "clip stat failed", err))
		return
	}

	w.Header().Set("Content-Type", "video/mp4")

	tw := streaming.NewTimeoutWriter(r.Context(), w, streaming.DefaultTimeoutWriterConfig())
	defer tw.Close()

	http.ServeContent(&timeoutResponseWriter{ResponseWriter: w, tw: tw}, r, path, info.ModTime(), f)
}
