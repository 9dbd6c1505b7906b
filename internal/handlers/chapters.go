package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"media-viewer/internal/errs"
	"media-viewer/internal/logging"
	"media-viewer/internal/orchestrator"
)

// Chapters handles GET /chapters/movie/:name and
// /chapters/tv/:show[/:s/:e], per spec.md §6. When a season/episode pair
// is present it returns that episode's chapters VTT; for a bare show it
// bulk-generates chapters for every episode currently in the catalog and
// reports per-episode success/failure.
func (h *Handlers) Chapters(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if name, isMovie := vars["name"]; isMovie {
		h.chaptersFor(w, r, orchestrator.MovieRef(name))
		return
	}

	show, hasShow := vars["show"]
	if !hasShow {
		writeError(w, errs.New(errs.BadRequest, "missing show"))
		return
	}
	if seasonStr, hasSeason := vars["season"]; hasSeason {
		epStr := vars["ep"]
		season, err1 := strconv.Atoi(seasonStr)
		ep, err2 := strconv.Atoi(epStr)
		if err1 != nil || err2 != nil {
			writeError(w, errs.New(errs.BadRequest, "malformed season/episode"))
			return
		}
		h.chaptersFor(w, r, orchestrator.EpisodeRef(show, season, ep))
		return
	}

	h.bulkChapters(w, r, show)
}

func (h *Handlers) chaptersFor(w http.ResponseWriter, r *http.Request, ref orchestrator.Ref) {
	path, err := h.orch.Chapters(r.Context(), ref)
	if err != nil {
		logging.Error("chapters: %v", err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/vtt")
	http.ServeFile(w, r, path)
}

type chapterBulkResult struct {
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// bulkChapters generates chapters for every catalogued episode of show,
// per spec.md §6's "per-episode or bulk-generate" contract.
func (h *Handlers) bulkChapters(w http.ResponseWriter, r *http.Request, show string) {
	tvShow, err := h.catalog.GetTVShow(r.Context(), show)
	if err != nil {
		writeError(w, errs.Wrap(errs.SourceMissing, fmt.Sprintf("show %q not in catalog", show), err))
		return
	}

	var results []chapterBulkResult
	for seasonKey, season := range tvShow.Seasons {
		seasonNum, convErr := strconv.Atoi(seasonKey)
		if convErr != nil {
			continue
		}
		for _, ep := range season.URLs {
			_, genErr := h.orch.Chapters(r.Context(), orchestrator.EpisodeRef(show, seasonNum, ep.EpisodeNumber))
			result := chapterBulkResult{Season: seasonNum, Episode: ep.EpisodeNumber, OK: genErr == nil}
			if genErr != nil {
				result.Error = genErr.Error()
			}
			results = append(results, result)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, results)
}
