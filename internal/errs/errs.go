// Package errs defines the error taxonomy shared by the derivation
// pipeline: adapter, post-processor, persistence, and orchestrator all
// surface one of these kinds so the HTTP layer can map them to a status
// code without inspecting error strings.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies which bucket of the taxonomy an error belongs to.
type Kind string

const (
	SourceMissing Kind = "source_missing"
	NotProbable   Kind = "not_probable"
	ToolFailed    Kind = "tool_failed"
	ParseFailed   Kind = "parse_failed"
	InfoFailed    Kind = "info_failed"
	DbBusy        Kind = "db_busy"
	DbCorrupt     Kind = "db_corrupt"
	BadRequest    Kind = "bad_request"
	Timeout       Kind = "timeout"
)

// Error is a typed, wrapped error carrying a taxonomy Kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any target *Error of the same Kind, so
// errors.Is(err, errs.New(errs.SourceMissing, "")) matches by kind
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func new_(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func Wrap(kind Kind, msg string, cause error) *Error { return new_(kind, msg, cause) }
func New(kind Kind, msg string) *Error               { return new_(kind, msg, nil) }

// ToolFailure carries the subprocess exit code and a tail of stderr, per
// spec.md §4.1's "ToolFailed{code, stderr_tail}" contract.
type ToolFailure struct {
	Err        *Error
	Code       int
	StderrTail string
}

func (t *ToolFailure) Error() string { return t.Err.Error() }

// Unwrap exposes the ToolFailed-kind *Error so KindOf and errors.Is see it.
func (t *ToolFailure) Unwrap() error { return t.Err }

// NewToolFailed builds a ToolFailed error with an exit code and the last
// portion of captured stderr.
func NewToolFailed(code int, stderrTail string, cause error) *ToolFailure {
	return &ToolFailure{
		Err:        new_(ToolFailed, fmt.Sprintf("exit code %d", code), cause),
		Code:       code,
		StderrTail: stderrTail,
	}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error,
// returning ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
