package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/garnizeh/marketplace/internal/notify"
	"github.com/garnizeh/marketplace/pkg/models"
	"github.com/garnizeh/marketplace/pkg/repository"
)

type QuoteInput struct {
	PriceCents int64  `json:"price_cents" validate:"gt=0"`
	Message    string `json:"message" validate:"required,max=5000"`
	Timeline   string `json:"timeline" validate:"max=200"`
}

// SubmitQuote reserves one credit and inserts a PENDING quote in the same
// transaction. Any failed precondition leaves neither a debit nor a row.
func (c *Controller) SubmitQuote(ctx context.Context, jobID, professionalID string, in QuoteInput) (*models.Quote, error) {
	in.Message = strings.TrimSpace(in.Message)
	if err := c.validate.Validate(in); err != nil {
		return nil, err
	}

	var (
		job   *models.Job
		quote *models.Quote
	)
	err := c.inTx(ctx, func(tx repository.Store) error {
		var err error
		// the shared lock holds off delete and close until this commits
		if job, err = tx.GetJobForShare(ctx, jobID); err != nil {
			return err
		}
		pro, err := tx.GetProfile(ctx, professionalID)
		if err != nil {
			return errProfile(professionalID, err)
		}
		quoted, err := tx.HasQuoted(ctx, jobID, professionalID)
		if err != nil {
			return err
		}
		if g := CanSubmitQuote(job, pro, quoted); !g.Allowed {
			return g.Err
		}

		if err := c.ledger.Tx(tx).Reserve(ctx, professionalID, 1); err != nil {
			return err
		}
		q := &models.Quote{
			ID:               uuid.NewString(),
			JobID:            jobID,
			ProfessionalID:   professionalID,
			ProfessionalName: pro.PublicName(),
			PriceCents:       in.PriceCents,
			Message:          in.Message,
			Timeline:         in.Timeline,
			Status:           models.QuotePending,
		}
		if err := tx.CreateQuote(ctx, q); err != nil {
			return err
		}
		quote = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("quote submitted", "quote_id", quote.ID, "job_id", jobID, "professional_id", professionalID)

	c.notify(ctx, job.ClientID, models.NotificationNewQuote, "New quote",
		fmt.Sprintf("%s sent a quote for your %s request.", quote.ProfessionalName, job.Category),
		notify.Meta{JobID: jobID, QuoteID: quote.ID})
	c.mail(ctx, job.ClientID, "", "You received a new quote",
		fmt.Sprintf("%s sent a quote of %s for your %s request.", quote.ProfessionalName, FormatCents(quote.PriceCents), job.Category))
	return quote, nil
}

// AcceptQuote makes quote the single winner of its job. The job row carries
// the winner id and is claimed with a compare-and-swap, so of any number of
// concurrent accepts on sibling quotes exactly one commits.
func (c *Controller) AcceptQuote(ctx context.Context, quoteID, clientID string) (*models.Job, *models.Quote, error) {
	var (
		job      *models.Job
		quote    *models.Quote
		rejected []models.Quote
	)
	err := c.inTx(ctx, func(tx repository.Store) error {
		q, j, err := loadQuote(ctx, tx, quoteID)
		if err != nil {
			return err
		}
		if g := CanAcceptQuote(j, q, clientID); !g.Allowed {
			return g.Err
		}

		ok, err := tx.SetAcceptedQuote(ctx, j.ID, q.ID)
		if err != nil {
			return err
		}
		if !ok {
			return lostAccept(ctx, tx, j.ID)
		}
		ok, err = tx.TransitionQuote(ctx, q.ID, models.QuotePending, models.QuoteAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrAlreadyDecided
		}

		if c.cfg.RejectSiblings() {
			if rejected, err = tx.RejectPendingSiblings(ctx, j.ID, q.ID); err != nil {
				return err
			}
		}

		if job, err = tx.GetJob(ctx, j.ID); err != nil {
			return err
		}
		quote, err = tx.GetQuote(ctx, q.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	c.logger.Info("quote accepted", "quote_id", quote.ID, "job_id", job.ID, "siblings_rejected", len(rejected))

	c.notify(ctx, quote.ProfessionalID, models.NotificationQuoteAccepted, "Quote accepted",
		fmt.Sprintf("Your quote for the %s request was accepted. The client's contact details are now available.", job.Category),
		notify.Meta{JobID: job.ID, QuoteID: quote.ID})
	c.mail(ctx, quote.ProfessionalID, "", "Your quote was accepted",
		fmt.Sprintf("Your quote of %s for the %s request was accepted.", FormatCents(quote.PriceCents), job.Category))
	for _, s := range rejected {
		c.notifyRejected(ctx, job, &s)
	}
	return job, quote, nil
}

// lostAccept explains a failed winner claim.
func lostAccept(ctx context.Context, tx repository.Store, jobID string) error {
	j, err := tx.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !j.Status.Quotable() {
		return models.ErrJobClosed
	}
	return models.ErrAlreadyDecided
}

// RejectQuote declines a PENDING quote. The credit is not returned.
func (c *Controller) RejectQuote(ctx context.Context, quoteID, clientID string) (*models.Quote, error) {
	var (
		job   *models.Job
		quote *models.Quote
	)
	err := c.inTx(ctx, func(tx repository.Store) error {
		q, j, err := loadQuote(ctx, tx, quoteID)
		if err != nil {
			return err
		}
		if g := CanRejectQuote(j, q, clientID); !g.Allowed {
			return g.Err
		}
		ok, err := tx.TransitionQuote(ctx, q.ID, models.QuotePending, models.QuoteRejected)
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrAlreadyDecided
		}
		job = j
		quote, err = tx.GetQuote(ctx, q.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.notifyRejected(ctx, job, quote)
	return quote, nil
}

func (c *Controller) notifyRejected(ctx context.Context, job *models.Job, q *models.Quote) {
	c.notify(ctx, q.ProfessionalID, models.NotificationQuoteRejected, "Quote not selected",
		fmt.Sprintf("Your quote for the %s request was not selected.", job.Category),
		notify.Meta{JobID: job.ID, QuoteID: q.ID})
}

// ListJobQuotes returns every quote of a job to its owner.
func (c *Controller) ListJobQuotes(ctx context.Context, jobID, clientID string) ([]models.Quote, error) {
	job, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !owns(job, clientID) {
		return nil, models.ErrNotOwner
	}
	out, err := c.store.ListQuotesByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Quote{}
	}
	return out, nil
}

func (c *Controller) ListProfessionalQuotes(ctx context.Context, professionalID string) ([]models.Quote, error) {
	out, err := c.store.ListQuotesByProfessional(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Quote{}
	}
	return out, nil
}

func loadQuote(ctx context.Context, tx repository.Store, quoteID string) (*models.Quote, *models.Job, error) {
	q, err := tx.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, nil, err
	}
	j, err := tx.GetJob(ctx, q.JobID)
	if err != nil {
		return nil, nil, err
	}
	return q, j, nil
}

// FormatCents renders a price for humans, e.g. 150000 -> "1500.00 EUR".
func FormatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d EUR", cents/100, cents%100)
}
