// Package infofile manages the `<video>.info` JSON side-file described
// in spec.md §4.4, generalized from the teacher's `.meta` sidecar
// functions (internal/media/thumbnail.go's writeMetaFile/readMetaFile/
// deleteMetaFile) from "cache entry source path" to the full info
// schema (length/dimensions/hdr/uuid/additionalMetadata).
package infofile

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"media-viewer/internal/errs"
	"media-viewer/internal/logging"
)

const sideFileExtension = ".info"

// uuidHeaderBytes is how many leading bytes of the source file are
// hashed to derive its stable UUID — enough to distinguish files that
// differ early without reading the whole file for long videos.
const uuidHeaderBytes = 65536

// Info is the schema of a `<video>.info` file, per spec.md §3/§4.4.
type Info struct {
	LengthMs       int64          `json:"length"`
	Dimensions     string         `json:"dimensions"`
	HDR            *string        `json:"hdr"`
	UUID           string         `json:"uuid"`
	AdditionalMeta map[string]any `json:"additionalMetadata"`
}

// valid reports whether the schema holds the minimum fields required
// for cache-versioning to be meaningful.
func (i *Info) valid() bool {
	return i != nil && i.UUID != "" && i.Dimensions != "" && i.LengthMs > 0
}

// Prober is the subset of the FFmpeg/ffprobe Adapter needed to
// populate an Info from scratch. Defined here (rather than imported
// from internal/ffmpeg) to avoid a dependency cycle — the Adapter
// itself has no need to know about the info side-file schema.
type Prober interface {
	ProbeDuration(ctx context.Context, path string) (int64, error)
	ProbeDimensions(ctx context.Context, path string) (string, error)
	ProbeColor(ctx context.Context, path string) (hdr *string, err error)
}

// Path returns the side-file path for a video at videoPath.
func Path(videoPath string) string {
	return videoPath + sideFileExtension
}

// ReadOrProbe reads and validates the info side-file for videoPath; if
// it is absent or schema-invalid, it probes via prober and writes a
// fresh one. Repeated probe failures are surfaced as errs.InfoFailed,
// per spec.md §4.4's "repeated failures are surfaced as InfoFailed".
func ReadOrProbe(ctx context.Context, videoPath string, prober Prober) (*Info, error) {
	if info, err := read(videoPath); err == nil && info.valid() {
		return info, nil
	}

	info, err := probe(ctx, videoPath, prober)
	if err != nil {
		return nil, errs.Wrap(errs.InfoFailed, fmt.Sprintf("probe failed for %s", videoPath), err)
	}
	if err := write(videoPath, info); err != nil {
		logging.Warn("infofile: failed to persist side-file for %s: %v", videoPath, err)
	}
	return info, nil
}

func read(videoPath string) (*Info, error) {
	data, err := os.ReadFile(Path(videoPath))
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func write(videoPath string, info *Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	tmp := Path(videoPath) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, Path(videoPath))
}

func probe(ctx context.Context, videoPath string, prober Prober) (*Info, error) {
	length, err := prober.ProbeDuration(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	dims, err := prober.ProbeDimensions(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	hdr, err := prober.ProbeColor(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	id, err := DeriveUUID(videoPath)
	if err != nil {
		return nil, err
	}
	return &Info{
		LengthMs:       length,
		Dimensions:     dims,
		HDR:            hdr,
		UUID:           id,
		AdditionalMeta: map[string]any{},
	}, nil
}

// DeriveUUID computes a stable video identifier from the leading bytes
// of the source file via uuid.NewMD5, so that the same file produces
// the same UUID (and therefore the same cache-version suffix) across
// hosts, per spec.md §4.4.
func DeriveUUID(videoPath string) (string, error) {
	f, err := os.Open(videoPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, uuidHeaderBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	sum := md5.Sum(buf[:n])
	id := uuid.NewMD5(uuid.Nil, sum[:])
	return id.String(), nil
}

// Delete removes the side-file for videoPath, tolerant of it already
// being absent.
func Delete(videoPath string) {
	if err := os.Remove(Path(videoPath)); err != nil && !os.IsNotExist(err) {
		logging.Debug("infofile: failed to remove side-file for %s: %v", videoPath, err)
	}
}
