package lifecycle

import (
	"context"
	"fmt"

	"github.com/garnizeh/marketplace/pkg/models"
)

// ContactFor returns the counterpart's contact details for viewerID on a
// job. The client sees the accepted professional; a professional sees the
// client once their own quote is accepted.
func (c *Controller) ContactFor(ctx context.Context, jobID, viewerID string) (*models.Contact, error) {
	job, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if owns(job, viewerID) {
		if job.AcceptedQuoteID == nil {
			return nil, models.ErrContactLocked
		}
		q, err := c.store.GetQuote(ctx, *job.AcceptedQuoteID)
		if err != nil {
			return nil, err
		}
		if !CanSeeContact(q) {
			return nil, models.ErrContactLocked
		}
		return c.contact(ctx, q.ProfessionalID)
	}

	quotes, err := c.store.ListQuotesByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var mine *models.Quote
	for i := range quotes {
		if quotes[i].ProfessionalID != viewerID {
			continue
		}
		mine = &quotes[i]
		if CanSeeContact(mine) {
			return c.contact(ctx, job.ClientID)
		}
	}
	if mine == nil {
		return nil, fmt.Errorf("not a party to job %s: %w", jobID, models.ErrForbidden)
	}
	return nil, models.ErrContactLocked
}

func (c *Controller) contact(ctx context.Context, profileID string) (*models.Contact, error) {
	p, err := c.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return &models.Contact{ProfileID: p.ID, Name: p.PublicName(), Email: p.Email, Phone: p.Phone}, nil
}
