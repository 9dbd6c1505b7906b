package catalogdb

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"media-viewer/internal/errs"
	"media-viewer/internal/logging"
	"media-viewer/internal/metrics"
)

// retry parameters per spec.md §4.5: up to 15 attempts, backoff
// min(1.5^n * 200ms, 5s), jitter in [0.9, 1.1]. Shape grounded on
// internal/filesystem/retry.go's StatWithRetry loop (attempt counter,
// sleep, capped exponential growth) with jitter added.
const (
	maxRetries     = 15
	baseBackoff    = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	backoffFactor  = 1.5
	jitterLow      = 0.9
	jitterHigh     = 0.1 // jitterLow + 2*jitterHigh*rand = [0.9,1.1]; see backoffWithJitter
)

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return true
		}
	}
	// go-sqlite3 also surfaces "database is locked" / "database is busy"
	// as plain string errors from some code paths; match defensively.
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database is busy") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

func backoffWithJitter(attempt int) time.Duration {
	d := float64(baseBackoff) * pow(backoffFactor, attempt)
	if d > float64(maxBackoff) {
		d = float64(maxBackoff)
	}
	jitter := jitterLow + rand.Float64()*2*jitterHigh // uniform in [0.9, 1.1]
	return time.Duration(d * jitter)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// withRetry runs fn, retrying up to maxRetries times when fn's error
// looks like SQLITE_BUSY / SQLITE_BUSY_SNAPSHOT / SQLITE_LOCKED.
// Exhaustion is reported as an errs.DbBusy-kind error wrapping the last
// driver error.
func withRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	backoff := baseBackoff
	_ = backoff // computed per-attempt by backoffWithJitter instead

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				metrics.DBRetrySuccess.WithLabelValues(operation).Inc()
			}
			return nil
		}
		lastErr = err

		if !isBusyErr(err) {
			return err
		}

		metrics.DBBusyTotal.WithLabelValues(operation).Inc()

		if attempt == maxRetries {
			break
		}

		wait := backoffWithJitter(attempt)
		logging.Debug("catalogdb: busy on %s, retrying in %v (attempt %d/%d)", operation, wait, attempt+1, maxRetries)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	logging.Warn("catalogdb: exhausted %d retries on %s: %v", maxRetries, operation, lastErr)
	metrics.DBRetryExhausted.WithLabelValues(operation).Inc()
	return errs.Wrap(errs.DbBusy, "retries exhausted on "+operation, lastErr)
}
