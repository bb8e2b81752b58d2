package repository

import (
	"context"

	"github.com/garnizeh/marketplace/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
//
// Lookups return models.ErrNotFound for missing rows. Conditional transitions
// report whether a row matched instead of failing, so callers can tell a lost
// race apart from an infrastructure error.

type ProfileRepo interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	ListProfilesByRole(ctx context.Context, role models.Role) ([]models.Profile, error)
	// CreateProfile inserts a profile and fails with models.ErrConflict if it exists.
	CreateProfile(ctx context.Context, p *models.Profile) error
	// UpdateProfile applies self-service fields: names, location, contacts, services.
	UpdateProfile(ctx context.Context, p *models.Profile) error
	// EnsureProfile inserts p when missing, or fills empty name/email on an
	// existing row. It never touches role, credits or plan of an existing row.
	EnsureProfile(ctx context.Context, p *models.Profile) error
}

type CreditRepo interface {
	// ReserveCredits decrements the balance only if it stays non-negative.
	// It returns models.ErrInsufficientCredits when it would not.
	ReserveCredits(ctx context.Context, professionalID string, amount int) error
	AddCredits(ctx context.Context, professionalID string, amount int) (int, error)
	SetCredits(ctx context.Context, professionalID string, amount int) (int, error)
	SetPlan(ctx context.Context, professionalID string, plan models.Plan) error
}

type JobRepo interface {
	// CreateJob returns models.ErrProfileMissing when the client row is absent.
	CreateJob(ctx context.Context, j *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	// GetJobForUpdate and GetJobForShare read the job inside a transaction
	// and lock its row against concurrent writers until commit.
	GetJobForUpdate(ctx context.Context, id string) (*models.Job, error)
	GetJobForShare(ctx context.Context, id string) (*models.Job, error)
	ListJobsByStatus(ctx context.Context, statuses ...models.JobStatus) ([]models.Job, error)
	ListJobsByClient(ctx context.Context, clientID string) ([]models.JobSummary, error)
	UpdateJobFields(ctx context.Context, j *models.Job) error
	// TransitionJob moves the job to `to` if its status is one of `from`.
	TransitionJob(ctx context.Context, id string, to models.JobStatus, from ...models.JobStatus) (bool, error)
	// SetAcceptedQuote records the winner and moves the job to IN_PROGRESS,
	// only if no winner was recorded yet and the job is still quotable.
	SetAcceptedQuote(ctx context.Context, jobID, quoteID string) (bool, error)
	DeleteJob(ctx context.Context, id string) error
}

type QuoteRepo interface {
	// CreateQuote returns models.ErrDuplicateQuote on a live duplicate and
	// models.ErrNotFound when the job or the professional row is gone.
	CreateQuote(ctx context.Context, q *models.Quote) error
	GetQuote(ctx context.Context, id string) (*models.Quote, error)
	ListQuotesByJob(ctx context.Context, jobID string) ([]models.Quote, error)
	ListQuotesByProfessional(ctx context.Context, professionalID string) ([]models.Quote, error)
	CountQuotesByJob(ctx context.Context, jobID string) (int, error)
	HasQuoted(ctx context.Context, jobID, professionalID string) (bool, error)
	QuotedJobIDs(ctx context.Context, professionalID string) (map[string]bool, error)
	TransitionQuote(ctx context.Context, id string, from, to models.QuoteStatus) (bool, error)
	// RejectPendingSiblings rejects every PENDING quote of the job except keep
	// and returns the rejected rows.
	RejectPendingSiblings(ctx context.Context, jobID, keep string) ([]models.Quote, error)
}

type NotificationRepo interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	// TrimNotifications deletes all but the newest keep rows of the user.
	TrimNotifications(ctx context.Context, userID string, keep int) (int64, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type CategorySchemaRepo interface {
	UpsertCategorySchema(ctx context.Context, s *models.CategorySchema) error
	GetCategorySchema(ctx context.Context, category string) (*models.CategorySchema, error)
	ListCategorySchemas(ctx context.Context) ([]models.CategorySchema, error)
	DeleteCategorySchema(ctx context.Context, category string) error
}

// Store is the full ledger store. InTx runs fn against a Store bound to one
// transaction; fn's error rolls it back.
type Store interface {
	ProfileRepo
	CreditRepo
	JobRepo
	QuoteRepo
	NotificationRepo
	CategorySchemaRepo
	InTx(ctx context.Context, fn func(tx Store) error) error
}
