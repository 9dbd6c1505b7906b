package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewAndError(t *testing.T) {
	e := New(SourceMissing, "movie not found")
	want := "source_missing: movie not found"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
	if e.Unwrap() != nil {
		t.Errorf("Unwrap() = %v, want nil", e.Unwrap())
	}
}

func TestWrapIncludesCause(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(ToolFailed, "ffmpeg exited", cause)
	want := "tool_failed: ffmpeg exited: boom"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
	if !errors.Is(e, cause) {
		t.Errorf("errors.Is(e, cause) = false, want true")
	}
}

func TestKindOfMatchesByKind(t *testing.T) {
	e := New(BadRequest, "bad window")
	wrapped := fmt.Errorf("handler: %w", e)

	kind, ok := KindOf(wrapped)
	if !ok || kind != BadRequest {
		t.Fatalf("KindOf(wrapped) = (%v, %v), want (%v, true)", kind, ok, BadRequest)
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Errorf("KindOf(plain error) ok = true, want false")
	}
}

func TestErrorIsMatchesOnKindOnly(t *testing.T) {
	a := New(DbBusy, "attempt 1")
	b := New(DbBusy, "different message entirely")
	c := New(DbCorrupt, "attempt 1")

	if !errors.Is(a, b) {
		t.Errorf("errors.Is(a, b) = false, want true (same kind)")
	}
	if errors.Is(a, c) {
		t.Errorf("errors.Is(a, c) = true, want false (different kind)")
	}
}

func TestNewToolFailedCarriesCodeAndStderr(t *testing.T) {
	cause := errors.New("exit status 1")
	tf := NewToolFailed(1, "no such filter: tonemap", cause)

	if tf.Code != 1 {
		t.Errorf("Code = %d, want 1", tf.Code)
	}
	if tf.StderrTail != "no such filter: tonemap" {
		t.Errorf("StderrTail = %q, want %q", tf.StderrTail, "no such filter: tonemap")
	}
	kind, ok := KindOf(tf)
	if !ok || kind != ToolFailed {
		t.Fatalf("KindOf(tf) = (%v, %v), want (%v, true)", kind, ok, ToolFailed)
	}
}
