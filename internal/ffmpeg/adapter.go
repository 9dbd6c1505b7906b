// Package ffmpeg implements spec.md §4.1's FFmpeg/ffprobe Adapter: probe
// operations (duration, dimensions, color, streams, chapters) and render
// operations (still frame, sprite sheet, trimmed clip). Grounded on the
// teacher's internal/transcoder/transcoder.go subprocess idiom
// (exec.CommandContext, stderr captured to a bounded buffer, atomic
// temp-file-then-rename writes) but without its GPU-acceleration/
// CPU-fallback machinery — see DESIGN.md for why that machinery has no
// home in this component.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"media-viewer/internal/errs"
	"media-viewer/internal/metrics"
)

// stderrTailBytes bounds how much of a failed subprocess's stderr is
// retained in the surfaced error, per spec.md §4.1's ToolFailed{code,
// stderr_tail}.
const stderrTailBytes = 4096

// Adapter wraps the ffmpeg/ffprobe toolchain, funnelling every
// subprocess invocation through a bounded concurrency gate sized from
// config (generalizing internal/workers.Count), per spec.md §4.1 and §5.
type Adapter struct {
	ffmpegPath  string
	ffprobePath string
	gate        chan struct{}
}

// New constructs an Adapter. concurrency bounds the number of
// simultaneous ffmpeg/ffprobe subprocesses (the FFMPEG_CONCURRENCY
// config value).
func New(ffmpegPath, ffprobePath string, concurrency int) *Adapter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Adapter{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		gate:        make(chan struct{}, concurrency),
	}
}

func (a *Adapter) acquire(ctx context.Context) error {
	select {
	case a.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) release() { <-a.gate }

// runProbe executes ffprobe with args and returns stdout, classifying
// failures per spec.md §4.1's failure model.
func (a *Adapter) runProbe(ctx context.Context, path string, args ...string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errs.Wrap(errs.SourceMissing, fmt.Sprintf("source not found: %s", path), err)
	}

	if err := a.acquire(ctx); err != nil {
		return nil, err
	}
	defer a.release()

	start := time.Now()
	cmd := exec.CommandContext(ctx, a.ffprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	metrics.AdapterDuration.WithLabelValues("probe").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.AdapterInvocationsTotal.WithLabelValues("probe", "error").Inc()
		return nil, toolFailure(cmd, err, stderr.Bytes())
	}
	metrics.AdapterInvocationsTotal.WithLabelValues("probe", "success").Inc()
	return stdout.Bytes(), nil
}

// runRender executes ffmpeg with args, recording duration/outcome under
// the given metric operation label.
func (a *Adapter) runRender(ctx context.Context, op string, args ...string) ([]byte, error) {
	if err := a.acquire(ctx); err != nil {
		return nil, err
	}
	defer a.release()

	start := time.Now()
	cmd := exec.CommandContext(ctx, a.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	metrics.AdapterDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.AdapterInvocationsTotal.WithLabelValues(op, "error").Inc()
		return nil, toolFailure(cmd, err, stderr.Bytes())
	}
	metrics.AdapterInvocationsTotal.WithLabelValues(op, "success").Inc()
	return stderr.Bytes(), nil
}

func toolFailure(cmd *exec.Cmd, runErr error, stderr []byte) error {
	code := -1
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	}
	tail := stderr
	if len(tail) > stderrTailBytes {
		tail = tail[len(tail)-stderrTailBytes:]
	}
	return errs.NewToolFailed(code, string(tail), runErr)
}

// atomicRender runs ffmpeg writing to a `.tmp` sibling of out, then
// renames into place on success — the same atomic-write discipline as
// transcodeDirectToCacheWithOptions in the teacher.
func (a *Adapter) atomicRender(ctx context.Context, op string, buildArgs func(tmpOut string) []string, out string) error {
	tmp := out + ".tmp"
	defer os.Remove(tmp)

	if _, err := a.runRender(ctx, op, buildArgs(tmp)...); err != nil {
		return err
	}

	info, err := os.Stat(tmp)
	if err != nil {
		return errs.Wrap(errs.ToolFailed, "render produced no output", err)
	}
	if info.Size() == 0 {
		return errs.New(errs.ToolFailed, "render produced an empty file")
	}
	return os.Rename(tmp, out)
}
