package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"

	"media-viewer/internal/catalogdb"
)

func TestBulkChaptersReturnsNotFoundForUnknownShow(t *testing.T) {
	ctx := context.Background()
	db, err := catalogdb.Open(ctx, filepath.Join(t.TempDir(), "catalog.db"), "test")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := catalogdb.InitCatalogSchema(ctx, db); err != nil {
		t.Fatalf("InitCatalogSchema() error = %v", err)
	}

	h := &Handlers{catalog: db}

	req := httptest.NewRequest(http.MethodGet, "/chapters/tv/Nonexistent-Show", nil)
	req = mux.SetURLVars(req, map[string]string{"show": "Nonexistent-Show"})
	rec := httptest.NewRecorder()

	h.Chapters(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d for a show absent from the catalog", rec.Code, http.StatusNotFound)
	}
}
