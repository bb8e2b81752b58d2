package matching

import (
	"context"
	"fmt"

	"github.com/garnizeh/marketplace/pkg/models"
	"github.com/garnizeh/marketplace/pkg/repository"
)

// Reader is the slice of the store the matching service reads from.
type Reader interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	ListJobsByStatus(ctx context.Context, statuses ...models.JobStatus) ([]models.Job, error)
	QuotedJobIDs(ctx context.Context, professionalID string) (map[string]bool, error)
	HasQuoted(ctx context.Context, jobID, professionalID string) (bool, error)
}

var _ Reader = (repository.Store)(nil)

type Service struct {
	store   Reader
	weights Weights
}

func NewService(store Reader, w Weights) *Service {
	return &Service{store: store, weights: w}
}

// ListMatches loads the professional, the quotable jobs and the jobs already
// quoted, and ranks them with Match.
func (s *Service) ListMatches(ctx context.Context, professionalID string, oldestFirst bool) ([]Scored, error) {
	pro, err := s.store.GetProfile(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("load professional %s: %w", professionalID, err)
	}
	if pro.Role != models.RoleProfessional {
		return nil, fmt.Errorf("profile %s is %s: %w", professionalID, pro.Role, models.ErrForbidden)
	}

	jobs, err := s.store.ListJobsByStatus(ctx, models.JobOpen, models.JobInProgress)
	if err != nil {
		return nil, fmt.Errorf("list open jobs: %w", err)
	}
	quoted, err := s.store.QuotedJobIDs(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("list quoted jobs: %w", err)
	}

	out := Match(*pro, jobs, quoted, Options{OldestFirst: oldestFirst, Weights: s.weights})
	if out == nil {
		out = []Scored{}
	}
	return out, nil
}

// AlreadyQuoted reports whether the professional has a quote on the job.
func (s *Service) AlreadyQuoted(ctx context.Context, jobID, professionalID string) (bool, error) {
	return s.store.HasQuoted(ctx, jobID, professionalID)
}
