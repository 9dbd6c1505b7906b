// Package scanner implements spec.md §4.6's Library Scanner: walks the
// movies and tv roots, computes directory content hashes, populates
// catalog rows, and deletes vanished rows. Grounded on the teacher's
// internal/indexer/indexer.go: tryStartIndexing/finishIndexing's
// single-flight guard generalizes to isScanning; createMediaFile's
// md5.Sum(name+size+mtime) content hash generalizes to directory_hash;
// cleanupMissingFiles generalizes to deleting vanished-directory rows.
package scanner

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"media-viewer/internal/catalogdb"
	"media-viewer/internal/errs"
	"media-viewer/internal/infofile"
	"media-viewer/internal/logging"
)

// maxHashDepth bounds how deep directory_hash recursion walks, per
// spec.md §3's "depth-bounded content hash".
const maxHashDepth = 3

// Enricher is the external image/metadata enrichment tool, invoked as
// a black-box subprocess per spec.md §1's "DELIBERATELY OUT OF SCOPE"
// list — the scanner only decides *when* to call it and records the
// attempt, never how it works.
type Enricher interface {
	Enrich(ctx context.Context, kind, name string) error
}

// BlurhashRequester is the subset of internal/blurhash's Service the
// scanner uses to request blurhashes as a side effect of discovering
// poster/backdrop/logo art, per spec.md §4.6 step 5.
type BlurhashRequester interface {
	Compute(ctx context.Context, localPath, remoteURL string) (string, error)
}

// Scanner walks the movies and tv library roots.
type Scanner struct {
	db               *catalogdb.DB
	moviesRoot       string
	tvRoot           string
	prefixPath       string
	retryInterval    time.Duration
	enricher         Enricher
	blurhash         BlurhashRequester
	prober           infofile.Prober
	concurrency      int

	scanning int32 // guarded with atomic CompareAndSwap, per spec.md's "single guard flag"
}

// New constructs a Scanner.
func New(db *catalogdb.DB, moviesRoot, tvRoot, prefixPath string, retryInterval time.Duration, enricher Enricher, blurhash BlurhashRequester, prober infofile.Prober, concurrency int) *Scanner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scanner{
		db:            db,
		moviesRoot:    moviesRoot,
		tvRoot:        tvRoot,
		prefixPath:    prefixPath,
		retryInterval: retryInterval,
		enricher:      enricher,
		blurhash:      blurhash,
		prober:        prober,
		concurrency:   concurrency,
	}
}

// tryStart implements the single guard flag preventing overlapping
// scans, per spec.md §4.6.
func (s *Scanner) tryStart() bool {
	return atomic.CompareAndSwapInt32(&s.scanning, 0, 1)
}

func (s *Scanner) finish() {
	atomic.StoreInt32(&s.scanning, 0)
}

// IsScanning reports whether a scan is currently in progress.
func (s *Scanner) IsScanning() bool {
	return atomic.LoadInt32(&s.scanning) == 1
}

// ScanAll runs scan_movies then scan_tv under the single guard flag.
func (s *Scanner) ScanAll(ctx context.Context) error {
	if !s.tryStart() {
		logging.Info("scanner: scan already in progress, skipping")
		return nil
	}
	defer s.finish()

	if err := s.scanMovies(ctx); err != nil {
		logging.Error("scanner: movies pass failed: %v", err)
	}
	if err := s.scanTV(ctx); err != nil {
		logging.Error("scanner: tv pass failed: %v", err)
	}
	return nil
}

// directoryHash computes a content hash over the (name,size,mtime) of
// every file/subdirectory within maxHashDepth of root, per spec.md §3.
func directoryHash(root string) (string, error) {
	h := md5.New()
	var entries []string

	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		if depth > maxHashDepth {
			return nil
		}
		items, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(items))
		for _, it := range items {
			names = append(names, it.Name())
		}
		sort.Strings(names)

		for _, name := range names {
			full := filepath.Join(dir, name)
			info, err := os.Stat(full)
			if err != nil {
				continue // disappeared mid-walk
			}
			entries = append(entries, fmt.Sprintf("%s|%d|%d", full, info.Size(), info.ModTime().UnixNano()))
			if info.IsDir() {
				if err := walk(full, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(root, 0); err != nil {
		return "", err
	}
	sort.Strings(entries)
	for _, e := range entries {
		h.Write([]byte(e))
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// listSubdirectories returns the immediate subdirectory names of root.
func listSubdirectories(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}

// shouldEnrich implements spec.md §4.6 step 6's rate-limit rule: mark
// and invoke the enrichment tool only if there has been no prior
// attempt within retryInterval.
func (s *Scanner) shouldEnrich(ctx context.Context, name string, now time.Time) bool {
	rec, ok, err := s.db.GetMissingDataRecord(ctx, name)
	if err != nil {
		return false
	}
	if !ok {
		return true
	}
	return now.Sub(time.Unix(rec.LastAttempt, 0)) >= s.retryInterval
}

func (s *Scanner) publicURL(relPath string) string {
	return fmt.Sprintf("%s/%s", s.prefixPath, filepath.ToSlash(relPath))
}

// forEachBounded runs fn(item) over items with at most s.concurrency
// goroutines in flight, per spec.md §4.6's "parallel over directories,
// bounded".
func forEachBounded[T any](items []T, concurrency int, fn func(T)) {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(it T) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(it)
		}(item)
	}
	wg.Wait()
}

// isSourceMissing classifies a probe failure from the Info Manager as a
// missing-art condition the scanner should try to enrich, versus a hard
// error worth logging.
func isSourceMissing(err error) bool {
	kind, ok := errs.KindOf(err)
	return ok && kind == errs.SourceMissing
}
