package sqlstore

import (
	"context"
	"fmt"

	"github.com/garnizeh/marketplace/pkg/models"
)

// ReserveCredits is a conditional decrement: concurrent reservations against
// one balance can never drive it below zero.
func (r *SQLRepo) ReserveCredits(ctx context.Context, professionalID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("reserve amount %d: %w", amount, models.ErrInvalidInput)
	}

	n, err := r.execAffected(ctx, `UPDATE profiles SET credits = credits - ?, updated_at = ? WHERE id = ? AND credits >= ?`,
		amount, now(), professionalID, amount)
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	if _, err := r.GetProfile(ctx, professionalID); err != nil {
		return err
	}
	return models.ErrInsufficientCredits
}

func (r *SQLRepo) AddCredits(ctx context.Context, professionalID string, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("credit amount %d: %w", amount, models.ErrInvalidInput)
	}
	var balance int
	err := r.get(ctx, &balance, `UPDATE profiles SET credits = credits + ?, updated_at = ? WHERE id = ? RETURNING credits`,
		amount, now(), professionalID)
	return balance, err
}

func (r *SQLRepo) SetCredits(ctx context.Context, professionalID string, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("credit amount %d: %w", amount, models.ErrInvalidInput)
	}
	var balance int
	err := r.get(ctx, &balance, `UPDATE profiles SET credits = ?, updated_at = ? WHERE id = ? RETURNING credits`,
		amount, now(), professionalID)
	return balance, err
}

func (r *SQLRepo) SetPlan(ctx context.Context, professionalID string, plan models.Plan) error {
	if !plan.Valid() {
		return fmt.Errorf("plan %q: %w", plan, models.ErrInvalidInput)
	}
	n, err := r.execAffected(ctx, `UPDATE profiles SET plan = ?, updated_at = ? WHERE id = ?`, plan, now(), professionalID)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
