package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/garnizeh/marketplace/internal/db"
	"github.com/garnizeh/marketplace/pkg/models"
)

const profileColumns = `id, role, display_name, brand_name, location, email, phone, services, credits, plan, verified, created_at, updated_at`

func (r *SQLRepo) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	if err := r.get(ctx, &p, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SQLRepo) ListProfilesByRole(ctx context.Context, role models.Role) ([]models.Profile, error) {
	var out []models.Profile
	if err := r.selectAll(ctx, &out, `SELECT `+profileColumns+` FROM profiles WHERE role = ? ORDER BY created_at`, role); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLRepo) CreateProfile(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}
	if p.Plan == "" {
		p.Plan = models.PlanFree
	}
	ts := now()
	p.Created, p.Updated = ts, ts

	_, err := r.exec(ctx, `INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Role, p.DisplayName, p.BrandName, p.Location, p.Email, p.Phone, p.Services, p.Credits, p.Plan, p.Verified, p.Created, p.Updated)
	if errors.Is(err, db.ErrUnique) {
		return fmt.Errorf("profile %s: %w", p.ID, models.ErrConflict)
	}
	return err
}

func (r *SQLRepo) UpdateProfile(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}
	p.Updated = now()

	n, err := r.execAffected(ctx, `UPDATE profiles SET display_name = ?, brand_name = ?, location = ?, email = ?, phone = ?, services = ?, updated_at = ? WHERE id = ?`,
		p.DisplayName, p.BrandName, p.Location, p.Email, p.Phone, p.Services, p.Updated, p.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *SQLRepo) EnsureProfile(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}
	if p.Role == "" {
		p.Role = models.RoleClient
	}
	if p.Plan == "" {
		p.Plan = models.PlanFree
	}
	ts := now()

	_, err := r.exec(ctx, `INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = CASE WHEN profiles.display_name = '' THEN excluded.display_name ELSE profiles.display_name END,
			email = CASE WHEN profiles.email = '' THEN excluded.email ELSE profiles.email END,
			updated_at = excluded.updated_at`,
		p.ID, p.Role, p.DisplayName, p.BrandName, p.Location, p.Email, p.Phone, p.Services, p.Credits, p.Plan, p.Verified, ts, ts)
	return err
}
