package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/garnizeh/marketplace/internal/db"
	"github.com/garnizeh/marketplace/pkg/models"
)

const jobColumns = `id, client_id, category, description, details, budget, location, remote, status, accepted_quote_id, created_at, updated_at`

func (r *SQLRepo) CreateJob(ctx context.Context, j *models.Job) error {
	if j == nil {
		return fmt.Errorf("job is nil")
	}
	if j.Status == "" {
		j.Status = models.JobOpen
	}
	ts := now()
	j.Created, j.Updated = ts, ts

	_, err := r.exec(ctx, `INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.ClientID, j.Category, j.Description, j.Details, j.Budget, j.Location, j.Remote, j.Status, j.AcceptedQuoteID, j.Created, j.Updated)
	switch {
	case errors.Is(err, db.ErrForeignKey):
		return fmt.Errorf("create job for client %s: %w", j.ClientID, models.ErrProfileMissing)
	case errors.Is(err, db.ErrUnique):
		return fmt.Errorf("job %s: %w", j.ID, models.ErrConflict)
	}
	return err
}

func (r *SQLRepo) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var j models.Job
	if err := r.get(ctx, &j, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &j, nil
}

// GetJobForUpdate reads the job and, on PostgreSQL, holds an exclusive row
// lock until the transaction ends. SQLite runs on a single connection, so its
// transactions are already serialized.
func (r *SQLRepo) GetJobForUpdate(ctx context.Context, id string) (*models.Job, error) {
	return r.getJobLocked(ctx, id, "FOR UPDATE")
}

// GetJobForShare is GetJobForUpdate with a shared lock: concurrent sharers
// proceed, writers of the job row wait.
func (r *SQLRepo) GetJobForShare(ctx context.Context, id string) (*models.Job, error) {
	return r.getJobLocked(ctx, id, "FOR SHARE")
}

func (r *SQLRepo) getJobLocked(ctx context.Context, id, lock string) (*models.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`
	if r.ext.DriverName() != db.DriverSQLite {
		q += " " + lock
	}
	var j models.Job
	if err := r.get(ctx, &j, q, id); err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *SQLRepo) ListJobsByStatus(ctx context.Context, statuses ...models.JobStatus) ([]models.Job, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`SELECT `+jobColumns+` FROM jobs WHERE status IN (?) ORDER BY created_at DESC`, statusArgs(statuses))
	if err != nil {
		return nil, err
	}

	var out []models.Job
	if err := r.selectAll(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLRepo) ListJobsByClient(ctx context.Context, clientID string) ([]models.JobSummary, error) {
	var out []models.JobSummary
	err := r.selectAll(ctx, &out, `SELECT j.id, j.client_id, j.category, j.description, j.details, j.budget, j.location, j.remote, j.status, j.accepted_quote_id, j.created_at, j.updated_at,
			(SELECT COUNT(1) FROM quotes q WHERE q.job_id = j.id) AS quote_count
		FROM jobs j WHERE j.client_id = ? ORDER BY j.created_at DESC`, clientID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLRepo) UpdateJobFields(ctx context.Context, j *models.Job) error {
	if j == nil {
		return fmt.Errorf("job is nil")
	}
	j.Updated = now()

	n, err := r.execAffected(ctx, `UPDATE jobs SET category = ?, description = ?, details = ?, budget = ?, location = ?, remote = ?, updated_at = ? WHERE id = ?`,
		j.Category, j.Description, j.Details, j.Budget, j.Location, j.Remote, j.Updated, j.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *SQLRepo) TransitionJob(ctx context.Context, id string, to models.JobStatus, from ...models.JobStatus) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transition job %s: no source status", id)
	}
	q, args, err := sqlx.In(`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status IN (?)`, to, now(), id, statusArgs(from))
	if err != nil {
		return false, err
	}
	n, err := r.execAffected(ctx, q, args...)
	return n == 1, err
}

func (r *SQLRepo) SetAcceptedQuote(ctx context.Context, jobID, quoteID string) (bool, error) {
	n, err := r.execAffected(ctx, `UPDATE jobs SET accepted_quote_id = ?, status = ?, updated_at = ?
		WHERE id = ? AND accepted_quote_id IS NULL AND status IN (?, ?)`,
		quoteID, models.JobInProgress, now(), jobID, models.JobOpen, models.JobInProgress)
	return n == 1, err
}

func (r *SQLRepo) DeleteJob(ctx context.Context, id string) error {
	n, err := r.execAffected(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
