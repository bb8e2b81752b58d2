package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/garnizeh/marketplace/internal/db"
	"github.com/garnizeh/marketplace/pkg/models"
)

const quoteColumns = `id, job_id, professional_id, professional_name, price_cents, message, timeline, status, created_at, updated_at`

func (r *SQLRepo) CreateQuote(ctx context.Context, q *models.Quote) error {
	if q == nil {
		return fmt.Errorf("quote is nil")
	}
	if q.Status == "" {
		q.Status = models.QuotePending
	}
	ts := now()
	q.Created, q.Updated = ts, ts

	_, err := r.exec(ctx, `INSERT INTO quotes (`+quoteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.JobID, q.ProfessionalID, q.ProfessionalName, q.PriceCents, q.Message, q.Timeline, q.Status, q.Created, q.Updated)
	switch {
	case errors.Is(err, db.ErrUnique):
		return fmt.Errorf("quote on job %s: %w", q.JobID, models.ErrDuplicateQuote)
	case errors.Is(err, db.ErrForeignKey):
		return fmt.Errorf("quote references missing job %s or professional %s: %w", q.JobID, q.ProfessionalID, models.ErrNotFound)
	}
	return err
}

func (r *SQLRepo) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	var q models.Quote
	if err := r.get(ctx, &q, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *SQLRepo) ListQuotesByJob(ctx context.Context, jobID string) ([]models.Quote, error) {
	var out []models.Quote
	if err := r.selectAll(ctx, &out, `SELECT `+quoteColumns+` FROM quotes WHERE job_id = ? ORDER BY created_at, id`, jobID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLRepo) ListQuotesByProfessional(ctx context.Context, professionalID string) ([]models.Quote, error) {
	var out []models.Quote
	if err := r.selectAll(ctx, &out, `SELECT `+quoteColumns+` FROM quotes WHERE professional_id = ? ORDER BY created_at DESC, id DESC`, professionalID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLRepo) CountQuotesByJob(ctx context.Context, jobID string) (int, error) {
	var n int
	err := r.get(ctx, &n, `SELECT COUNT(1) FROM quotes WHERE job_id = ?`, jobID)
	return n, err
}

func (r *SQLRepo) HasQuoted(ctx context.Context, jobID, professionalID string) (bool, error) {
	var n int
	if err := r.get(ctx, &n, `SELECT COUNT(1) FROM quotes WHERE job_id = ? AND professional_id = ?`, jobID, professionalID); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLRepo) QuotedJobIDs(ctx context.Context, professionalID string) (map[string]bool, error) {
	var ids []string
	if err := r.selectAll(ctx, &ids, `SELECT DISTINCT job_id FROM quotes WHERE professional_id = ?`, professionalID); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *SQLRepo) TransitionQuote(ctx context.Context, id string, from, to models.QuoteStatus) (bool, error) {
	n, err := r.execAffected(ctx, `UPDATE quotes SET status = ?, updated_at = ? WHERE id = ? AND status = ?`, to, now(), id, from)
	if errors.Is(err, db.ErrUnique) {
		// a sibling already holds the single ACCEPTED slot for this job
		return false, nil
	}
	return n == 1, err
}

func (r *SQLRepo) RejectPendingSiblings(ctx context.Context, jobID, keep string) ([]models.Quote, error) {
	var out []models.Quote
	err := r.selectAll(ctx, &out, `UPDATE quotes SET status = ?, updated_at = ? WHERE job_id = ? AND id <> ? AND status = ? RETURNING `+quoteColumns,
		models.QuoteRejected, now(), jobID, keep, models.QuotePending)
	if err != nil {
		return nil, err
	}
	return out, nil
}
