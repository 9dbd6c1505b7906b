package cache

import (
	"crypto/sha1"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// SpriteVersion is the current sprite-sheet format version. It is
// multiplied by 10000 and zero-padded to 4 digits in sprite filenames,
// so each increment of 0.0001 bumps the visible version suffix by one
// and invalidates every previously cached sprite sheet (the filename
// pattern stops matching).
const SpriteVersion = 0.0001

var sanitizeDisallowed = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
var sanitizeDashes = regexp.MustCompile(`-+`)

// Sanitize replaces any character outside [A-Za-z0-9_-] with '-',
// collapses runs of '-', and strips leading/trailing '-'.
func Sanitize(name string) string {
	replaced := sanitizeDisallowed.ReplaceAllString(name, "-")
	collapsed := sanitizeDashes.ReplaceAllString(replaced, "-")
	return strings.Trim(collapsed, "-")
}

// FrameFilename builds the deterministic frame filename for a movie or
// TV frame request.
func FrameFilename(isMovie bool, show string, season, episode int, ts string) string {
	sanitizedTS := sanitizeDisallowed.ReplaceAllString(ts, "-")
	if isMovie {
		return fmt.Sprintf("movie_%s_%s.avif", Sanitize(show), sanitizedTS)
	}
	return fmt.Sprintf("tv_%s_S%02dE%02d_%s.avif", Sanitize(show), season, episode, sanitizedTS)
}

// spriteVersionSuffix returns SpriteVersion × 10000 zero-padded to 4
// digits.
func spriteVersionSuffix() string {
	return fmt.Sprintf("%04d", int(math.Round(SpriteVersion*10000)))
}

// SpriteSheetStem builds the version/UUID-bearing filename stem shared
// by a sprite sheet and its VTT sibling (the extension is appended by
// the caller: .avif, .png, or .vtt).
func SpriteSheetStem(isMovie bool, show string, season, episode int, uuidStr string) string {
	uuid8 := firstN(strings.ReplaceAll(uuidStr, "-", ""), 8)
	if isMovie {
		return fmt.Sprintf("movie_%s_spritesheet_%s_v%s", Sanitize(show), uuid8, spriteVersionSuffix())
	}
	return fmt.Sprintf("tv_%s_%d_%d_spritesheet_%s_v%s", Sanitize(show), season, episode, uuid8, spriteVersionSuffix())
}

// SpriteSheetPattern builds a glob matching any sprite sheet for the
// given logical identity irrespective of uuid8 or format — used for
// old-UUID cleanup. filepath.Match has no brace-alternation, and
// "irrespective of format" only ever means avif-or-png here, so match
// any extension with "*" rather than enumerating the two.
func SpriteSheetPattern(isMovie bool, show string, season, episode int) string {
	if isMovie {
		return fmt.Sprintf("movie_%s_spritesheet_*_v*.*", Sanitize(show))
	}
	return fmt.Sprintf("tv_%s_%d_%d_spritesheet_*_v*.*", Sanitize(show), season, episode)
}

// CurrentUUIDPattern builds a glob matching the sprite sheet for the
// given logical identity at the current uuid8, irrespective of format.
// Used to resolve a request by scanning the cache directory for any
// file matching the current (type, name, season?, episode?, uuid8)
// pattern regardless of extension.
func CurrentUUIDPattern(isMovie bool, show string, season, episode int, uuidStr string) string {
	uuid8 := firstN(strings.ReplaceAll(uuidStr, "-", ""), 8)
	if isMovie {
		return fmt.Sprintf("movie_%s_spritesheet_%s_v*.*", Sanitize(show), uuid8)
	}
	return fmt.Sprintf("tv_%s_%d_%d_spritesheet_%s_v*.*", Sanitize(show), season, episode, uuid8)
}

// ClipFilename builds the deterministic clip cache filename:
// sha1(video,start,end).mp4.
func ClipFilename(videoPath string, start, end float64) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%g|%g", videoPath, start, end)))
	return fmt.Sprintf("%x.mp4", sum)
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
