package scanner

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-viewer/internal/catalogdb"
	"media-viewer/internal/infofile"
	"media-viewer/internal/logging"
	"media-viewer/internal/metrics"
)

// episodePatternSxE matches "<anything - >S07E03<anything>.mp4", the
// primary TV filename convention named in spec.md §6.
var episodePatternSxE = regexp.MustCompile(`(?i)^(?:.* - )?S(\d{2})E(\d{2}).*\.mp4$`)

// episodePatternNN matches "03 - <Title>.mp4", the secondary convention
// named in spec.md §6.
var episodePatternNN = regexp.MustCompile(`^(\d{2}) - .*\.mp4$`)

// seasonDirPattern matches "Season 1", "Season 07", etc.
var seasonDirPattern = regexp.MustCompile(`(?i)^Season\s+(\d+)$`)

// scanTV implements spec.md §4.6's TV pass. Per spec.md §9's resolved
// Open Question, transactions are scoped per show (not one transaction
// for the entire pass) to bound rollback blast radius to a single show.
func (s *Scanner) scanTV(ctx context.Context) error {
	metrics.ScannerRunsTotal.WithLabelValues("tv").Inc()
	start := time.Now()

	shows, err := listSubdirectories(s.tvRoot)
	if err != nil {
		metrics.ScannerErrors.WithLabelValues("tv").Inc()
		return err
	}

	existing := make(map[string]bool, len(shows))
	var mu sync.Mutex
	forEachBounded(shows, s.concurrency, func(show string) {
		mu.Lock()
		existing[show] = true
		mu.Unlock()

		if err := s.scanOneShow(ctx, show); err != nil {
			logging.Error("scanner: show %q failed: %v", show, err)
			metrics.ScannerErrors.WithLabelValues("tv").Inc()
		}
	})

	deleted, err := s.db.DeleteVanishedTVShows(ctx, existing)
	if err != nil {
		metrics.ScannerErrors.WithLabelValues("tv").Inc()
		return err
	}
	if deleted > 0 {
		metrics.ScannerRowsDeleted.WithLabelValues("tv").Add(float64(deleted))
	}

	logging.Info("scanner: tv pass complete in %s (%d shows, %d deleted)", time.Since(start), len(shows), deleted)
	return nil
}

func (s *Scanner) scanOneShow(ctx context.Context, show string) error {
	dir := filepath.Join(s.tvRoot, show)

	hash, err := directoryHash(dir)
	if err != nil {
		return err
	}

	existingRow, getErr := s.db.GetTVShow(ctx, show)
	if getErr == nil && existingRow.DirectoryHash == hash {
		metrics.ScannerSkippedUnchanged.WithLabelValues("tv").Inc()
		return nil
	}
	metrics.ScannerDirsProcessed.WithLabelValues("tv").Inc()

	seasonDirs, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	tvShow := &catalogdb.TVShow{
		Name:           show,
		Seasons:        map[string]catalogdb.Season{},
		URLs:           map[string]string{},
		AdditionalMeta: map[string]any{},
		DirectoryHash:  hash,
		UpdatedAt:      time.Now().Unix(),
	}

	for _, sd := range seasonDirs {
		if !sd.IsDir() {
			continue
		}
		m := seasonDirPattern.FindStringSubmatch(sd.Name())
		if m == nil {
			continue
		}
		seasonNum, _ := strconv.Atoi(m[1])

		season, err := s.scanSeason(ctx, filepath.Join(dir, sd.Name()), show, seasonNum)
		if err != nil {
			logging.Warn("scanner: season %q of %q failed: %v", sd.Name(), show, err)
			continue
		}
		// A show's seasons map may not contain a season with zero valid
		// episodes, per spec.md §3's catalog invariant.
		if len(season.URLs) == 0 {
			continue
		}
		tvShow.Seasons[sd.Name()] = season
	}

	prevArt := artState{}
	if getErr == nil {
		prevArt = artState{
			Poster:   artFields{Hash: existingRow.PosterHash, Mtime: existingRow.PosterMtime},
			Backdrop: artFields{Hash: existingRow.BackdropHash, Mtime: existingRow.BackdropMtime},
			Logo:     artFields{Hash: existingRow.LogoHash, Mtime: existingRow.LogoMtime},
		}
	}
	art := s.attachArt(ctx, dir, show, "tv", tvShow.URLs, prevArt)

	if missingRequiredArt(tvShow.URLs) && s.shouldEnrich(ctx, show, time.Now()) {
		if markErr := s.db.MarkMissingDataAttempt(ctx, show, time.Now().Unix()); markErr != nil {
			logging.Warn("scanner: failed to record missing-data attempt for %s: %v", show, markErr)
		}
		if s.enricher != nil {
			if enrichErr := s.enricher.Enrich(ctx, "tv", show); enrichErr != nil {
				logging.Warn("scanner: enrichment failed for show %s: %v", show, enrichErr)
			} else {
				art = s.attachArt(ctx, dir, show, "tv", tvShow.URLs, art)
			}
		}
	}

	tvShow.PosterHash, tvShow.PosterMtime = art.Poster.Hash, art.Poster.Mtime
	tvShow.BackdropHash, tvShow.BackdropMtime = art.Backdrop.Hash, art.Backdrop.Mtime
	tvShow.LogoHash, tvShow.LogoMtime = art.Logo.Hash, art.Logo.Mtime

	return s.db.UpsertTVShow(ctx, tvShow)
}

func (s *Scanner) scanSeason(ctx context.Context, seasonDir, show string, seasonNum int) (catalogdb.Season, error) {
	entries, err := os.ReadDir(seasonDir)
	if err != nil {
		return catalogdb.Season{}, err
	}

	season := catalogdb.Season{
		URLs:       map[string]catalogdb.EpisodeData{},
		Lengths:    map[string]int64{},
		Dimensions: map[string]string{},
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		epNum, ok := parseEpisodeNumber(e.Name())
		if !ok {
			continue
		}
		season.FileNames = append(season.FileNames, e.Name())

		epPath := filepath.Join(seasonDir, e.Name())
		ep := catalogdb.EpisodeData{
			URL:           s.publicURL(filepath.Join("tv", show, filepath.Base(seasonDir), e.Name())),
			EpisodeNumber: epNum,
			ID:            episodeID(show, seasonNum, epNum),
		}

		if info, statErr := e.Info(); statErr == nil {
			ep.MediaModTime = info.ModTime().Unix()
		}

		if videoInfo, infoErr := infofile.ReadOrProbe(ctx, epPath, s.prober); infoErr == nil {
			season.Lengths[e.Name()] = videoInfo.LengthMs
			season.Dimensions[e.Name()] = videoInfo.Dimensions
		} else {
			logging.Warn("scanner: info probe failed for %s: %v", epPath, infoErr)
		}

		if chapPath := findChaptersFile(filepath.Dir(epPath), strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))); chapPath != "" {
			rel, _ := filepath.Rel(s.tvRoot, chapPath)
			ep.ChaptersURL = s.publicURL(filepath.Join("tv", rel))
		}

		season.URLs[e.Name()] = ep
	}

	return season, nil
}

// parseEpisodeNumber matches a filename against episodePatternSxE then
// episodePatternNN, per spec.md §4.6's "two patterns" rule.
func parseEpisodeNumber(name string) (int, bool) {
	if m := episodePatternSxE.FindStringSubmatch(name); m != nil {
		n, err := strconv.Atoi(m[2])
		return n, err == nil
	}
	if m := episodePatternNN.FindStringSubmatch(name); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	return 0, false
}

// episodeID derives a stable _id from (show-name, season, episode), per
// spec.md §3.
func episodeID(show string, season, episode int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%d|%d", show, season, episode)))
	return uuid.NewMD5(uuid.Nil, sum[:]).String()
}
