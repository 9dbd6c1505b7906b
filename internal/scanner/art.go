package scanner

import (
	"context"
	"os"
	"path/filepath"

	"media-viewer/internal/catalogdb"
	"media-viewer/internal/logging"
)

// artFields holds the cached-hash/mtime pair for one piece of cover
// art, per spec.md §3's "cached image hash + mtime for poster/backdrop/
// logo" attribute.
type artFields struct {
	Hash  string
	Mtime int64
}

// artState is the full set of art fields carried on a Movie or TVShow
// row.
type artState struct {
	Poster, Backdrop, Logo artFields
}

// posterCandidates/backdropCandidates/logoCandidates are the filenames
// the scanner looks for, per spec.md §6's filesystem layout convention.
var (
	posterCandidates   = []string{"poster.jpg", "poster.png"}
	backdropCandidates = []string{"backdrop.jpg", "backdrop.png"}
	logoCandidates     = []string{"movie_logo.png", "logo.png"}
)

// attachArt builds public URLs for any poster/backdrop/logo/metadata
// files present in dir, refreshing each cached image hash only when
// the file's on-disk mtime differs from prev's, per spec.md §3's
// "Cached image-hash fields are refreshed only when the file's mtime on
// disk differs from the stored mtime." Blurhashes are requested as a
// side effect for whichever art was found, per spec.md §4.6 step 5.
func (s *Scanner) attachArt(ctx context.Context, dir, name, rootSegment string, urls map[string]string, prev artState) artState {
	next := artState{Poster: prev.Poster, Backdrop: prev.Backdrop, Logo: prev.Logo}

	resolve := func(candidates []string, key string, field *artFields) {
		for _, candidate := range candidates {
			path := filepath.Join(dir, candidate)
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			rel := filepath.Join(rootSegment, name, candidate)
			url := s.publicURL(rel)
			urls[key] = url

			mtime := info.ModTime().Unix()
			if field.Mtime != mtime {
				field.Hash = catalogdb.ComputeImageHash(mtime)
				field.Mtime = mtime
			}
			if s.blurhash != nil {
				if _, err := s.blurhash.Compute(ctx, path, url); err != nil {
					logging.Debug("scanner: blurhash request failed for %s: %v", path, err)
				}
			}
			return
		}
	}

	resolve(posterCandidates, "poster", &next.Poster)
	resolve(backdropCandidates, "backdrop", &next.Backdrop)
	resolve(logoCandidates, "logo", &next.Logo)

	if metaPath := filepath.Join(dir, "metadata.json"); fileExists(metaPath) {
		urls["metadata"] = s.publicURL(filepath.Join(rootSegment, name, "metadata.json"))
	}

	return next
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
