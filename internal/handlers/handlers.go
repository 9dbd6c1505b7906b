package handlers

import (
	"net/http"
	"time"

	"media-viewer/internal/catalogdb"
	"media-viewer/internal/errs"
	"media-viewer/internal/orchestrator"
	"media-viewer/internal/scanner"
)

// Handlers wires the Orchestrator, catalog, and Library Scanner behind
// spec.md §6's HTTP surface.
type Handlers struct {
	orch      *orchestrator.Orchestrator
	catalog   *catalogdb.DB
	scanner   *scanner.Scanner
	startedAt time.Time
}

// New constructs a Handlers.
func New(orch *orchestrator.Orchestrator, catalog *catalogdb.DB, sc *scanner.Scanner) *Handlers {
	return &Handlers{
		orch:      orch,
		catalog:   catalog,
		scanner:   sc,
		startedAt: time.Now(),
	}
}

// statusFor maps the errs.Kind taxonomy onto HTTP status codes, per
// spec.md §6's error-mapping rule: SourceMissing is the only kind that
// means "not found"; every other kind is a server-side failure, and
// BadRequest is the caller's fault.
func statusFor(err error) int {
	kind, ok := errs.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case errs.SourceMissing:
		return http.StatusNotFound
	case errs.BadRequest:
		return http.StatusBadRequest
	case errs.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code and writes a JSON error body.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": err.Error()})
}
