// Package repair heals actors whose identity exists upstream but whose
// profile row is missing or partial.
package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/garnizeh/marketplace/pkg/models"
)

// Profiles is the store surface needed to look up and upsert profiles.
type Profiles interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	EnsureProfile(ctx context.Context, p *models.Profile) error
}

type Repairer struct {
	store  Profiles
	logger *slog.Logger
}

func New(store Profiles, logger *slog.Logger) *Repairer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repairer{store: store, logger: logger}
}

// Do runs write. When it fails because the actor's profile row is missing,
// a minimal profile is upserted and write is retried once. A second miss
// yields models.ErrProfileInactive; other errors pass through untouched.
func (r *Repairer) Do(ctx context.Context, id models.Identity, write func(ctx context.Context) error) error {
	err := write(ctx)
	if !errors.Is(err, models.ErrProfileMissing) {
		return err
	}

	r.logger.Warn("profile missing, repairing", "user_id", id.UserID)
	if err := r.store.EnsureProfile(ctx, minimal(id)); err != nil {
		return fmt.Errorf("repair profile %s: %w", id.UserID, err)
	}

	err = write(ctx)
	if errors.Is(err, models.ErrProfileMissing) {
		r.logger.Error("profile still missing after repair", "user_id", id.UserID)
		return fmt.Errorf("user %s: %w", id.UserID, models.ErrProfileInactive)
	}
	return err
}

// Ensure returns the actor's profile, creating a minimal one or filling an
// empty display name or email as needed. Repeated calls converge.
func (r *Repairer) Ensure(ctx context.Context, id models.Identity) (*models.Profile, error) {
	if id.UserID == "" {
		return nil, &models.ValidationError{Field: "user_id", Message: "required"}
	}

	p, err := r.store.GetProfile(ctx, id.UserID)
	switch {
	case err == nil && !partial(p, id):
		return p, nil
	case err != nil && !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	if err := r.store.EnsureProfile(ctx, minimal(id)); err != nil {
		return nil, fmt.Errorf("ensure profile %s: %w", id.UserID, err)
	}
	return r.store.GetProfile(ctx, id.UserID)
}

func partial(p *models.Profile, id models.Identity) bool {
	return (p.DisplayName == "" && displayName(id) != "") || (p.Email == "" && id.Email != "")
}

// minimal is the profile a missing actor gets. The role is always CLIENT: a
// repaired row never grants professional standing or credits.
func minimal(id models.Identity) *models.Profile {
	return &models.Profile{
		ID:          id.UserID,
		Role:        models.RoleClient,
		DisplayName: displayName(id),
		Email:       id.Email,
		Credits:     0,
		Plan:        models.PlanFree,
	}
}

func displayName(id models.Identity) string {
	if n := strings.TrimSpace(id.Name); n != "" {
		return n
	}
	if at := strings.IndexByte(id.Email, '@'); at > 0 {
		return id.Email[:at]
	}
	return ""
}
