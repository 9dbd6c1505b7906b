// Package catalogdb is the Persistence Layer: one singleton *sql.DB per
// SQLite file, a per-database write mutex, WAL pragmas, and a
// retry-on-busy wrapper around every write. Four independent databases
// are opened from this package by main.go at the repository root: the
// catalog (movies/tv_shows/missing_data), the process queue, the
// TMDB/blurhash cache, and intros.
//
// Borrows internal/database/database.go's connection setup (sql.Register
// + ConnectHook, WAL connection string, observeQuery helper) and
// internal/filesystem/retry.go's backoff-loop shape, generalized here
// from ESTALE filesystem retries to SQLITE_BUSY driver retries with
// jitter.
package catalogdb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"media-viewer/internal/logging"
	"media-viewer/internal/metrics"
)

const driverName = "sqlite3_catalogdb"

var registerOnce sync.Once

func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				_, err := conn.Exec("PRAGMA mmap_size = 0", nil)
				return err
			},
		})
	})
}

func init() { registerDriver() }

// DB owns exactly one SQLite connection for one database file, opened
// (and pinged) by Open. Writes are serialized by mu; reads do not take
// it.
type DB struct {
	db     *sql.DB
	path   string
	name   string // label used in metrics, e.g. "catalog", "processqueue"
	mu     sync.Mutex
	closed bool
	closeMu sync.RWMutex
}

// Open opens (or creates) the SQLite file at path, sets the required
// pragmas, and returns a DB wrapping the single connection.
func Open(ctx context.Context, path, name string) (*DB, error) {
	connStr := fmt.Sprintf(
		"%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=15000&_foreign_keys=ON&_cache_size=10000&_temp_store=MEMORY",
		path,
	)

	sqlDB, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	// Genuinely one connection: a singleton per database file, not a
	// pool.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", name, err)
	}

	if _, err := sqlDB.ExecContext(ctx, "PRAGMA wal_autocheckpoint=1000"); err != nil {
		logging.Warn("catalogdb[%s]: failed to set wal_autocheckpoint: %v", name, err)
	}

	d := &DB{db: sqlDB, path: path, name: name}
	return d, nil
}

// observeQuery mirrors internal/database/database.go's observeQuery
// helper: records a Prometheus counter+histogram and logs slow queries.
func (d *DB) observeQuery(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		duration := time.Since(start).Seconds()
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
		metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
		if duration > 0.1 {
			logging.Warn("catalogdb[%s]: slow query op=%s duration=%.3fs status=%s err=%v",
				d.name, operation, duration, status, err)
		}
	}
}

// Conn is the narrow interface WithWrite/WithRead hand to callers —
// satisfied by *sql.Conn and *sql.DB alike, so schema/migration code
// written against *sql.DB keeps working unchanged against a checked-out
// connection.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithWrite serializes fn against every other writer on this database
// and runs it inside a BEGIN IMMEDIATE transaction wrapped in the
// busy-retry loop (see retry.go). database/sql's *sql.Tx has no notion
// of SQLite's BEGIN IMMEDIATE, so a single checked-out *sql.Conn is
// used instead and the transaction is driven by raw BEGIN IMMEDIATE/
// COMMIT/ROLLBACK statements on it.
func (d *DB) WithWrite(ctx context.Context, operation string, fn func(conn Conn) error) error {
	d.closeMu.RLock()
	if d.closed {
		d.closeMu.RUnlock()
		return fmt.Errorf("catalogdb[%s]: closed", d.name)
	}
	d.closeMu.RUnlock()

	done := d.observeQuery(operation)
	d.mu.Lock()
	defer d.mu.Unlock()

	err := withRetry(ctx, operation, func() error {
		conn, err := d.db.Conn(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
			return err
		}
		if ferr := fn(conn); ferr != nil {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
			return ferr
		}
		if _, cerr := conn.ExecContext(ctx, "COMMIT"); cerr != nil {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
			return cerr
		}
		return nil
	})
	done(err)
	return err
}

// WithRead runs fn against the shared connection without taking the
// write mutex. Because the pool holds a single connection, a read still
// waits while a write has that connection checked out.
func (d *DB) WithRead(ctx context.Context, operation string, fn func(conn *sql.DB) error) error {
	done := d.observeQuery(operation)
	err := fn(d.db)
	done(err)
	return err
}

// Exec runs a one-shot statement, retried on busy, outside an explicit
// transaction — used for schema/migration statements at startup.
func (d *DB) Exec(ctx context.Context, operation, query string, args ...any) error {
	return withRetry(ctx, operation, func() error {
		_, err := d.db.ExecContext(ctx, query, args...)
		return err
	})
}

// Close checkpoints the WAL and closes the connection: set the closed
// flag (so later WithWrite calls are rejected), checkpoint, then close.
func (d *DB) Close() error {
	d.closeMu.Lock()
	d.closed = true
	d.closeMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logging.Warn("catalogdb[%s]: wal checkpoint on close failed: %v", d.name, err)
	}
	return d.db.Close()
}

// Raw exposes the underlying *sql.DB for ad-hoc migration/schema code
// that needs it before the write-mutex discipline is relevant (schema
// creation happens once at Open time, single-threaded).
func (d *DB) Raw() *sql.DB { return d.db }
