package lifecycle

import (
	"fmt"

	"github.com/garnizeh/marketplace/pkg/models"
)

// GuardResult is the outcome of a pure lifecycle check. Err is one of the
// models sentinels when Allowed is false.
type GuardResult struct {
	Allowed bool
	Err     error
}

func (g GuardResult) Error() string {
	if g.Err == nil {
		return ""
	}
	return g.Err.Error()
}

func allow() GuardResult { return GuardResult{Allowed: true} }

func deny(err error) GuardResult { return GuardResult{Err: err} }

func terminal(s models.JobStatus) bool {
	return s == models.JobCancelled || s == models.JobArchived || s == models.JobCompleted
}

func owns(job *models.Job, actorID string) bool {
	return job.ClientID == actorID
}

// CanEditJob allows edits only while the job is OPEN and nobody has quoted.
func CanEditJob(job *models.Job, actorID string, quoteCount int) GuardResult {
	switch {
	case !owns(job, actorID):
		return deny(models.ErrNotOwner)
	case quoteCount > 0:
		return deny(models.ErrHasQuotes)
	case terminal(job.Status):
		return deny(models.ErrAlreadyTerminal)
	case job.Status != models.JobOpen:
		return deny(models.ErrHasQuotes)
	}
	return allow()
}

// CanDeleteJob follows the same rule as CanEditJob.
func CanDeleteJob(job *models.Job, actorID string, quoteCount int) GuardResult {
	return CanEditJob(job, actorID, quoteCount)
}

// CanCloseJob allows cancelling an OPEN job that already has quotes. A job
// without quotes is deleted instead.
func CanCloseJob(job *models.Job, actorID string, quoteCount int) GuardResult {
	switch {
	case !owns(job, actorID):
		return deny(models.ErrNotOwner)
	case terminal(job.Status):
		return deny(models.ErrAlreadyTerminal)
	case job.Status != models.JobOpen:
		return deny(fmt.Errorf("job is %s: %w", job.Status, models.ErrJobClosed))
	case quoteCount == 0:
		return deny(models.ErrNoQuotes)
	}
	return allow()
}

// CanArchiveJob allows archiving from any status but ARCHIVED, once quoted.
func CanArchiveJob(job *models.Job, actorID string, quoteCount int) GuardResult {
	switch {
	case !owns(job, actorID):
		return deny(models.ErrNotOwner)
	case job.Status == models.JobArchived:
		return deny(models.ErrAlreadyTerminal)
	case quoteCount == 0:
		return deny(models.ErrNoQuotes)
	}
	return allow()
}

// CanCompleteJob allows closing out a job whose quote was accepted.
func CanCompleteJob(job *models.Job, actorID string) GuardResult {
	switch {
	case !owns(job, actorID):
		return deny(models.ErrNotOwner)
	case terminal(job.Status):
		return deny(models.ErrAlreadyTerminal)
	case job.Status != models.JobInProgress:
		return deny(fmt.Errorf("job has no accepted quote: %w", models.ErrConflict))
	}
	return allow()
}

// CanSubmitQuote checks everything about a submission except the balance,
// which the ledger enforces atomically.
func CanSubmitQuote(job *models.Job, pro *models.Profile, alreadyQuoted bool) GuardResult {
	switch {
	case !job.Status.Quotable():
		return deny(models.ErrJobNotOpen)
	case pro.Role != models.RoleProfessional:
		return deny(fmt.Errorf("only professionals quote: %w", models.ErrForbidden))
	case pro.ID == job.ClientID:
		return deny(fmt.Errorf("cannot quote own job: %w", models.ErrForbidden))
	case alreadyQuoted:
		return deny(models.ErrDuplicateQuote)
	}
	return allow()
}

func CanAcceptQuote(job *models.Job, quote *models.Quote, actorID string) GuardResult {
	switch {
	case !owns(job, actorID):
		return deny(models.ErrNotOwner)
	case quote.Status != models.QuotePending:
		return deny(models.ErrAlreadyDecided)
	case !job.Status.Quotable():
		return deny(models.ErrJobClosed)
	case job.AcceptedQuoteID != nil:
		return deny(models.ErrAlreadyDecided)
	}
	return allow()
}

func CanRejectQuote(job *models.Job, quote *models.Quote, actorID string) GuardResult {
	switch {
	case !owns(job, actorID):
		return deny(models.ErrNotOwner)
	case quote.Status != models.QuotePending:
		return deny(models.ErrAlreadyDecided)
	}
	return allow()
}

// CanSeeContact is the only gate on exposing email and phone: both parties
// of an accepted quote see each other, permanently.
func CanSeeContact(quote *models.Quote) bool {
	return quote != nil && quote.Status == models.QuoteAccepted
}
