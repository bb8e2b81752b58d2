package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/marketplace/internal/db"
)

const jobColumns = `id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created_at, updated_at`

type Repository struct {
	db  *db.DB
	now func() time.Time
}

func NewRepository(d *db.DB) *Repository { return &Repository{db: d, now: time.Now} }

// Enqueue inserts a job into the background_jobs table and returns the new ID
func (r *Repository) Enqueue(ctx context.Context, j *Job) (string, error) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	now := r.now().UTC().UnixMilli()
	if j.ScheduledAt == 0 {
		j.ScheduledAt = now
	}
	j.Status = StatusQueued
	j.Created, j.Updated = now, now

	q := `INSERT INTO background_jobs (id, type, payload, status, attempts, max_attempts, priority, scheduled_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.Exec(ctx, q, j.ID, j.Type, string(j.Payload), j.Status, j.Attempts, j.MaxAttempts, j.Priority, j.ScheduledAt, j.Created, j.Updated); err != nil {
		return "", fmt.Errorf("enqueue failed: %w", db.Classify(err))
	}
	return j.ID, nil
}

// FetchNext claims the next due job respecting priority and schedule. It
// returns nil when nothing is due or another worker claimed the row first.
func (r *Repository) FetchNext(ctx context.Context) (*Job, error) {
	now := r.now().UTC().UnixMilli()
	var j Job
	err := r.db.Get(ctx, &j, `SELECT `+jobColumns+` FROM background_jobs
		WHERE status IN ('queued', 'retry') AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ?
		ORDER BY priority ASC, scheduled_at ASC LIMIT 1`, now, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch next job: %w", db.Classify(err))
	}

	res, err := r.db.Exec(ctx, `UPDATE background_jobs SET status = ?, updated_at = ? WHERE id = ? AND status IN ('queued', 'retry')`, StatusRunning, now, j.ID)
	if err != nil {
		return nil, fmt.Errorf("claim job %s: %w", j.ID, db.Classify(err))
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, err
	}
	j.Status = StatusRunning
	j.Updated = now
	return &j, nil
}

// Get loads one job by id.
func (r *Repository) Get(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.Get(ctx, &j, `SELECT `+jobColumns+` FROM background_jobs WHERE id = ?`, id); err != nil {
		return nil, db.Classify(err)
	}
	return &j, nil
}

// UpdateJob updates attempts, status, next_try_at, last_error
func (r *Repository) UpdateJob(ctx context.Context, j *Job) error {
	j.Updated = r.now().UTC().UnixMilli()
	q := `UPDATE background_jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.Exec(ctx, q, j.Status, j.Attempts, j.NextTryAt, j.LastError, j.Updated, j.ID)
	return db.Classify(err)
}

// MoveToDeadLetter moves a job to dead_letter_jobs and deletes the original
func (r *Repository) MoveToDeadLetter(ctx context.Context, j *Job) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return db.Classify(err)
	}
	insert := tx.Rebind(`INSERT INTO dead_letter_jobs (id, job_id, type, payload, attempts, last_error, failed_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, r.now().UTC().UnixMilli()); err != nil {
		_ = tx.Rollback()
		return db.Classify(err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM background_jobs WHERE id = ?`), j.ID); err != nil {
		_ = tx.Rollback()
		return db.Classify(err)
	}
	return tx.Commit()
}

// DeadLetters lists failed jobs, newest first.
func (r *Repository) DeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []DeadLetter
	err := r.db.Select(ctx, &out, `SELECT id, job_id, type, payload, attempts, last_error, failed_at FROM dead_letter_jobs ORDER BY failed_at DESC LIMIT ?`, limit)
	return out, db.Classify(err)
}
