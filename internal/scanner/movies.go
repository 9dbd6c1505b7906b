package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"media-viewer/internal/catalogdb"
	"media-viewer/internal/infofile"
	"media-viewer/internal/logging"
	"media-viewer/internal/metrics"
)

// scanMovies implements spec.md §4.6's movies pass.
func (s *Scanner) scanMovies(ctx context.Context) error {
	metrics.ScannerRunsTotal.WithLabelValues("movies").Inc()
	start := time.Now()

	dirs, err := listSubdirectories(s.moviesRoot)
	if err != nil {
		metrics.ScannerErrors.WithLabelValues("movies").Inc()
		return err
	}

	existing := make(map[string]bool, len(dirs))
	var mu sync.Mutex
	forEachBounded(dirs, s.concurrency, func(name string) {
		mu.Lock()
		existing[name] = true
		mu.Unlock()

		if err := s.scanOneMovie(ctx, name); err != nil {
			logging.Error("scanner: movie %q failed: %v", name, err)
			metrics.ScannerErrors.WithLabelValues("movies").Inc()
		}
	})

	deleted, err := s.db.DeleteVanishedMovies(ctx, existing)
	if err != nil {
		metrics.ScannerErrors.WithLabelValues("movies").Inc()
		return err
	}
	if deleted > 0 {
		metrics.ScannerRowsDeleted.WithLabelValues("movies").Add(float64(deleted))
	}

	logging.Info("scanner: movies pass complete in %s (%d dirs, %d deleted)", time.Since(start), len(dirs), deleted)
	return nil
}

func (s *Scanner) scanOneMovie(ctx context.Context, name string) error {
	dir := filepath.Join(s.moviesRoot, name)

	hash, err := directoryHash(dir)
	if err != nil {
		return err
	}

	existingRow, getErr := s.db.GetMovie(ctx, name)
	if getErr == nil && existingRow.DirectoryHash == hash {
		metrics.ScannerSkippedUnchanged.WithLabelValues("movies").Inc()
		return nil
	}
	metrics.ScannerDirsProcessed.WithLabelValues("movies").Inc()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var mp4 string
	var fileNames []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fileNames = append(fileNames, e.Name())
		if mp4 == "" && strings.EqualFold(filepath.Ext(e.Name()), ".mp4") {
			mp4 = e.Name()
		}
	}

	movie := &catalogdb.Movie{
		Name:          name,
		FileNames:     fileNames,
		Lengths:       map[string]int64{},
		Dimensions:    map[string]string{},
		URLs:          map[string]string{},
		AdditionalMeta: map[string]any{},
		DirectoryHash: hash,
		UpdatedAt:     time.Now().Unix(),
	}

	if mp4 != "" {
		mp4Path := filepath.Join(dir, mp4)
		info, infoErr := infofile.ReadOrProbe(ctx, mp4Path, s.prober)
		if infoErr == nil {
			movie.Lengths[mp4] = info.LengthMs
			movie.Dimensions[mp4] = info.Dimensions
			movie.HDR = info.HDR
			movie.MovieID = info.UUID
		} else {
			logging.Warn("scanner: info probe failed for %s: %v", mp4Path, infoErr)
		}
		movie.URLs["mp4"] = s.publicURL(filepath.Join("movies", name, mp4))
	}

	prevArt := artState{}
	if getErr == nil {
		prevArt = artState{
			Poster:   artFields{Hash: existingRow.PosterHash, Mtime: existingRow.PosterMtime},
			Backdrop: artFields{Hash: existingRow.BackdropHash, Mtime: existingRow.BackdropMtime},
			Logo:     artFields{Hash: existingRow.LogoHash, Mtime: existingRow.LogoMtime},
		}
	}
	art := s.attachArt(ctx, dir, name, "movies", movie.URLs, prevArt)

	if chaptersPath := findChaptersFile(dir, name); chaptersPath != "" {
		rel, _ := filepath.Rel(s.moviesRoot, chaptersPath)
		movie.ChaptersURL = s.publicURL(filepath.Join("movies", rel))
	}

	if missingRequiredArt(movie.URLs) && s.shouldEnrich(ctx, name, time.Now()) {
		if markErr := s.db.MarkMissingDataAttempt(ctx, name, time.Now().Unix()); markErr != nil {
			logging.Warn("scanner: failed to record missing-data attempt for %s: %v", name, markErr)
		}
		if s.enricher != nil {
			if enrichErr := s.enricher.Enrich(ctx, "movie", name); enrichErr != nil {
				logging.Warn("scanner: enrichment failed for movie %s: %v", name, enrichErr)
			} else {
				art = s.attachArt(ctx, dir, name, "movies", movie.URLs, art)
			}
		}
	}

	movie.PosterHash, movie.PosterMtime = art.Poster.Hash, art.Poster.Mtime
	movie.BackdropHash, movie.BackdropMtime = art.Backdrop.Hash, art.Backdrop.Mtime
	movie.LogoHash, movie.LogoMtime = art.Logo.Hash, art.Logo.Mtime

	return s.db.UpsertMovie(ctx, movie)
}

// missingRequiredArt reports whether poster/backdrop art is absent,
// per spec.md §4.6 step 6's enrichment trigger condition.
func missingRequiredArt(urls map[string]string) bool {
	return urls["poster"] == "" || urls["backdrop"] == ""
}

// findChaptersFile implements spec.md §6's "optional
// chapters/<stem>_chapters.vtt" layout convention.
func findChaptersFile(dir, stem string) string {
	candidate := filepath.Join(dir, "chapters", stem+"_chapters.vtt")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}
