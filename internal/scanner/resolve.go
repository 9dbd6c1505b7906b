package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"media-viewer/internal/errs"
)

// ResolveMoviePath finds the on-disk mp4 for a movie by its catalog
// name, replicating scanOneMovie's "first .mp4 in the directory" rule.
// The catalog stores only public URLs, never local filesystem paths, so
// the Orchestrator re-derives them the same way the scanner does rather
// than carrying a second, divergent notion of "where the file lives".
func ResolveMoviePath(moviesRoot, name string) (string, error) {
	dir := filepath.Join(moviesRoot, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errs.Wrap(errs.SourceMissing, fmt.Sprintf("movie directory not found: %s", name), err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".mp4") {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", errs.New(errs.SourceMissing, fmt.Sprintf("no mp4 found for movie %s", name))
}

// ResolveEpisodePath finds the on-disk file for a TV episode by show
// name, season, and episode number, replicating scanSeason's directory
// walk and the two episode-filename conventions.
func ResolveEpisodePath(tvRoot, show string, season, episode int) (string, error) {
	showDir := filepath.Join(tvRoot, show)
	seasonDirs, err := os.ReadDir(showDir)
	if err != nil {
		return "", errs.Wrap(errs.SourceMissing, fmt.Sprintf("show directory not found: %s", show), err)
	}

	for _, sd := range seasonDirs {
		if !sd.IsDir() {
			continue
		}
		m := seasonDirPattern.FindStringSubmatch(sd.Name())
		if m == nil {
			continue
		}
		num, convErr := strconv.Atoi(m[1])
		if convErr != nil || num != season {
			continue
		}

		seasonDir := filepath.Join(showDir, sd.Name())
		entries, err := os.ReadDir(seasonDir)
		if err != nil {
			return "", errs.Wrap(errs.SourceMissing, fmt.Sprintf("season directory unreadable: %s", seasonDir), err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			epNum, ok := parseEpisodeNumber(e.Name())
			if ok && epNum == episode {
				return filepath.Join(seasonDir, e.Name()), nil
			}
		}
		return "", errs.New(errs.SourceMissing, fmt.Sprintf("episode S%02dE%02d not found for show %s", season, episode, show))
	}
	return "", errs.New(errs.SourceMissing, fmt.Sprintf("season %d not found for show %s", season, show))
}
