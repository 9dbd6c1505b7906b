package catalogdb

import (
	"context"
	"database/sql"
)

// ProcessStatus is one of the process_queue.status enum values, per
// spec.md §3's Process-queue row invariant.
type ProcessStatus string

const (
	StatusQueued      ProcessStatus = "queued"
	StatusInProgress  ProcessStatus = "in-progress"
	StatusCompleted   ProcessStatus = "completed"
	StatusError       ProcessStatus = "error"
	StatusInterrupted ProcessStatus = "interrupted"
)

// ProcessQueueRow mirrors the process_queue table, keyed by file_key.
type ProcessQueueRow struct {
	FileKey     string
	ProcessType string
	TotalSteps  int
	CurrentStep int
	Status      ProcessStatus
	Message     string
	LastUpdated int64
}

// CreateOrUpdate starts (or restarts) tracking for fileKey, per spec.md
// §4.8's createOrUpdate(file_key, type, total, step=0, "in-progress", msg).
func (d *DB) CreateOrUpdate(ctx context.Context, fileKey, processType string, totalSteps int, message string, now int64) error {
	return d.WithWrite(ctx, "processqueue.create_or_update", func(conn Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO process_queue (file_key, process_type, total_steps, current_step, status, message, last_updated)
			VALUES (?, ?, ?, 0, 'in-progress', ?, ?)
			ON CONFLICT(file_key) DO UPDATE SET
				process_type = excluded.process_type,
				total_steps = excluded.total_steps,
				current_step = 0,
				status = 'in-progress',
				message = excluded.message,
				last_updated = excluded.last_updated
		`, fileKey, processType, totalSteps, message, now)
		return err
	})
}

// Update advances the current step and optional status/message for
// fileKey, per spec.md §4.8's update(step, status?, msg?).
func (d *DB) Update(ctx context.Context, fileKey string, step int, status ProcessStatus, message string, now int64) error {
	return d.WithWrite(ctx, "processqueue.update", func(conn Conn) error {
		_, err := conn.ExecContext(ctx, `
			UPDATE process_queue SET current_step = ?, status = ?, message = ?, last_updated = ?
			WHERE file_key = ?
		`, step, status, message, now, fileKey)
		return err
	})
}

// Finalize marks fileKey completed or errored, per spec.md §4.8's
// finalize(status, msg). On completion current_step is forced to equal
// total_steps, matching the row invariant stated in spec.md §3.
func (d *DB) Finalize(ctx context.Context, fileKey string, status ProcessStatus, message string, now int64) error {
	return d.WithWrite(ctx, "processqueue.finalize", func(conn Conn) error {
		if status == StatusCompleted {
			_, err := conn.ExecContext(ctx, `
				UPDATE process_queue SET current_step = total_steps, status = ?, message = ?, last_updated = ?
				WHERE file_key = ?
			`, status, message, now, fileKey)
			return err
		}
		_, err := conn.ExecContext(ctx, `
			UPDATE process_queue SET status = ?, message = ?, last_updated = ?
			WHERE file_key = ?
		`, status, message, now, fileKey)
		return err
	})
}

// GetProcessQueueRow reads the row for fileKey, returning ok=false if
// no such row exists.
func (d *DB) GetProcessQueueRow(ctx context.Context, fileKey string) (ProcessQueueRow, bool, error) {
	var row ProcessQueueRow
	var found bool
	err := d.WithRead(ctx, "processqueue.get", func(conn *sql.DB) error {
		r := conn.QueryRowContext(ctx, `
			SELECT file_key, process_type, total_steps, current_step, status, message, last_updated
			FROM process_queue WHERE file_key = ?
		`, fileKey)
		scanErr := r.Scan(&row.FileKey, &row.ProcessType, &row.TotalSteps, &row.CurrentStep,
			&row.Status, &row.Message, &row.LastUpdated)
		if scanErr == sql.ErrNoRows {
			return nil
		}
		found = scanErr == nil
		return scanErr
	})
	return row, found, err
}

// ResetInterruptedRows implements spec.md §4.8's startup option: every
// row still marked in-progress from a previous process lifetime is
// either deleted or marked interrupted, selected by markInterrupted.
func (d *DB) ResetInterruptedRows(ctx context.Context, markInterrupted bool, now int64) (int, error) {
	var affected int64
	err := d.WithWrite(ctx, "processqueue.reset_interrupted", func(conn Conn) error {
		var res sql.Result
		var err error
		if markInterrupted {
			res, err = conn.ExecContext(ctx, `
				UPDATE process_queue SET status = 'interrupted', last_updated = ?
				WHERE status = 'in-progress'
			`, now)
		} else {
			res, err = conn.ExecContext(ctx, `DELETE FROM process_queue WHERE status = 'in-progress'`)
		}
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return int(affected), err
}
