package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/garnizeh/marketplace/internal/matching"
	"github.com/garnizeh/marketplace/internal/notify"
	"github.com/garnizeh/marketplace/pkg/models"
	"github.com/garnizeh/marketplace/pkg/repository"
)

type JobInput struct {
	Category    string         `json:"category" validate:"required,max=100"`
	Description string         `json:"description" validate:"required,max=5000"`
	Details     models.Details `json:"details"`
	Budget      string         `json:"budget" validate:"max=100"`
	Location    string         `json:"location" validate:"max=200"`
	Remote      bool           `json:"remote"`
}

// JobPatch carries the fields a client may change; nil means unchanged.
type JobPatch struct {
	Category    *string         `json:"category" validate:"omitempty,min=1,max=100"`
	Description *string         `json:"description" validate:"omitempty,min=1,max=5000"`
	Details     *models.Details `json:"details"`
	Budget      *string         `json:"budget" validate:"omitempty,max=100"`
	Location    *string         `json:"location" validate:"omitempty,max=200"`
	Remote      *bool           `json:"remote"`
}

// CreateJob posts a new OPEN job for the acting client. A missing profile
// row is repaired once inline.
func (c *Controller) CreateJob(ctx context.Context, actor models.Identity, in JobInput) (*models.Job, error) {
	if actor.Role != "" && actor.Role != models.RoleClient {
		return nil, fmt.Errorf("role %s cannot post jobs: %w", actor.Role, models.ErrForbidden)
	}
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	if err := c.validate.Validate(in); err != nil {
		return nil, err
	}
	if c.catalog != nil {
		if err := c.catalog.ValidateDetails(ctx, in.Category, in.Details); err != nil {
			return nil, err
		}
	}

	job := &models.Job{
		ID:          uuid.NewString(),
		ClientID:    actor.UserID,
		Category:    in.Category,
		Description: in.Description,
		Details:     in.Details,
		Budget:      in.Budget,
		Location:    strings.TrimSpace(in.Location),
		Remote:      in.Remote,
		Status:      models.JobOpen,
	}
	err := c.repair.Do(ctx, actor, func(ctx context.Context) error {
		return c.store.CreateJob(ctx, job)
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("job created", "job_id", job.ID, "client_id", job.ClientID, "category", job.Category)

	c.mail(ctx, actor.UserID, actor.Email, "Your request is live",
		fmt.Sprintf("Your %s request has been published. We will let you know when professionals send quotes.", job.Category))
	if c.cfg.NotifyNewOpportunity {
		c.fanOutOpportunity(ctx, job)
	}
	return job, nil
}

func (c *Controller) fanOutOpportunity(ctx context.Context, job *models.Job) {
	pros, err := c.store.ListProfilesByRole(ctx, models.RoleProfessional)
	if err != nil {
		c.logger.Warn("list professionals for fan-out", "job_id", job.ID, "err", err)
		return
	}
	for _, p := range pros {
		if matching.Relevance(*job, p, c.weights) == 0 {
			continue
		}
		c.notify(ctx, p.ID, models.NotificationNewOpportunity, "New opportunity",
			fmt.Sprintf("A new %s request matches your services.", job.Category), notify.Meta{JobID: job.ID})
	}
}

func (c *Controller) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return c.store.GetJob(ctx, jobID)
}

func (c *Controller) ListClientJobs(ctx context.Context, clientID string) ([]models.JobSummary, error) {
	out, err := c.store.ListJobsByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.JobSummary{}
	}
	return out, nil
}

// EditJob applies patch while the job is OPEN and unquoted.
func (c *Controller) EditJob(ctx context.Context, jobID, clientID string, patch JobPatch) (*models.Job, error) {
	if err := c.validate.Validate(patch); err != nil {
		return nil, err
	}

	var job *models.Job
	err := c.inTx(ctx, func(tx repository.Store) error {
		j, n, err := loadWithCount(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if g := CanEditJob(j, clientID, n); !g.Allowed {
			return g.Err
		}

		applyPatch(j, patch)
		if c.catalog != nil && (patch.Category != nil || patch.Details != nil) {
			if err := c.catalog.ValidateDetails(ctx, j.Category, j.Details); err != nil {
				return err
			}
		}
		if err := tx.UpdateJobFields(ctx, j); err != nil {
			return err
		}
		job = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func applyPatch(j *models.Job, p JobPatch) {
	if p.Category != nil {
		j.Category = strings.TrimSpace(*p.Category)
	}
	if p.Description != nil {
		j.Description = strings.TrimSpace(*p.Description)
	}
	if p.Details != nil {
		j.Details = *p.Details
	}
	if p.Budget != nil {
		j.Budget = *p.Budget
	}
	if p.Location != nil {
		j.Location = strings.TrimSpace(*p.Location)
	}
	if p.Remote != nil {
		j.Remote = *p.Remote
	}
}

// DeleteJob removes an OPEN, unquoted job.
func (c *Controller) DeleteJob(ctx context.Context, jobID, clientID string) error {
	err := c.inTx(ctx, func(tx repository.Store) error {
		j, n, err := loadWithCount(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if g := CanDeleteJob(j, clientID, n); !g.Allowed {
			return g.Err
		}
		return tx.DeleteJob(ctx, jobID)
	})
	if err == nil {
		c.logger.Info("job deleted", "job_id", jobID, "client_id", clientID)
	}
	return err
}

// CloseJob cancels an OPEN job that has quotes.
func (c *Controller) CloseJob(ctx context.Context, jobID, clientID string) (*models.Job, error) {
	return c.transition(ctx, jobID, clientID, CanCloseJob, models.JobCancelled, models.JobOpen)
}

// ArchiveJob moves a quoted job to ARCHIVED from any other status.
func (c *Controller) ArchiveJob(ctx context.Context, jobID, clientID string) (*models.Job, error) {
	return c.transition(ctx, jobID, clientID, CanArchiveJob, models.JobArchived,
		models.JobOpen, models.JobInProgress, models.JobCompleted, models.JobCancelled)
}

// CompleteJob marks an IN_PROGRESS job as done.
func (c *Controller) CompleteJob(ctx context.Context, jobID, clientID string) (*models.Job, error) {
	guard := func(j *models.Job, actorID string, _ int) GuardResult { return CanCompleteJob(j, actorID) }
	return c.transition(ctx, jobID, clientID, guard, models.JobCompleted, models.JobInProgress)
}

func (c *Controller) transition(ctx context.Context, jobID, clientID string,
	guard func(*models.Job, string, int) GuardResult, to models.JobStatus, from ...models.JobStatus,
) (*models.Job, error) {
	var job *models.Job
	err := c.inTx(ctx, func(tx repository.Store) error {
		j, n, err := loadWithCount(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if g := guard(j, clientID, n); !g.Allowed {
			return g.Err
		}
		ok, err := tx.TransitionJob(ctx, jobID, to, from...)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("job %s changed concurrently: %w", jobID, models.ErrConflict)
		}
		job, err = tx.GetJob(ctx, jobID)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("job transitioned", "job_id", jobID, "status", to)
	return job, nil
}

// loadWithCount locks the job row before counting, so a quote cannot land
// between the count and the write that depends on it.
func loadWithCount(ctx context.Context, tx repository.Store, jobID string) (*models.Job, int, error) {
	j, err := tx.GetJobForUpdate(ctx, jobID)
	if err != nil {
		return nil, 0, err
	}
	n, err := tx.CountQuotesByJob(ctx, jobID)
	if err != nil {
		return nil, 0, err
	}
	return j, n, nil
}

// errProfile maps store-level profile misses to the caller-facing error.
func errProfile(userID string, err error) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrProfileMissing) {
		return fmt.Errorf("profile %s: %w", userID, models.ErrProfileInactive)
	}
	return err
}
