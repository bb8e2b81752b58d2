// Package credits implements the professional credit ledger: quote
// reservations, plan refills and admin grants.
package credits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/garnizeh/marketplace/internal/config"
	"github.com/garnizeh/marketplace/pkg/models"
	"github.com/garnizeh/marketplace/pkg/repository"
)

// RefillMode decides what an admin refill does to the current balance.
type RefillMode string

const (
	RefillReset    RefillMode = "reset"
	RefillAdditive RefillMode = "additive"
)

// AgencyAllowance is the effectively unlimited AGENCY refill. It is a plain
// integer so balances stay total under arithmetic.
const AgencyAllowance = 1_000_000

var DefaultPlans = map[models.Plan]int{
	models.PlanFree:   3,
	models.PlanPro:    20,
	models.PlanAgency: AgencyAllowance,
}

type Ledger struct {
	store  repository.Store
	mode   RefillMode
	plans  map[models.Plan]int
	logger *slog.Logger
}

func New(store repository.Store, cfg config.CreditsConfig, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	plans := make(map[models.Plan]int, len(DefaultPlans))
	for p, amount := range DefaultPlans {
		plans[p] = amount
	}
	for name, amount := range cfg.Plans {
		plans[models.Plan(name)] = amount
	}
	mode := RefillMode(cfg.RefillMode)
	if mode != RefillAdditive {
		mode = RefillReset
	}
	return &Ledger{store: store, mode: mode, plans: plans, logger: logger}
}

// Tx returns a ledger whose operations run inside tx.
func (l *Ledger) Tx(tx repository.Store) *Ledger {
	cp := *l
	cp.store = tx
	return &cp
}

// RefillAmount is the allowance granted by a plan refill.
func (l *Ledger) RefillAmount(plan models.Plan) int {
	return l.plans[plan]
}

func (l *Ledger) Mode() RefillMode { return l.mode }

// Reserve debits amount credits, failing with models.ErrInsufficientCredits
// when the balance would go negative. Call it on a ledger bound to the same
// transaction as the write it pays for.
func (l *Ledger) Reserve(ctx context.Context, professionalID string, amount int) error {
	if amount <= 0 {
		amount = 1
	}
	if err := l.store.ReserveCredits(ctx, professionalID, amount); err != nil {
		if errors.Is(err, models.ErrInsufficientCredits) {
			return err
		}
		return fmt.Errorf("reserve credits for %s: %w", professionalID, err)
	}
	return nil
}

// Credit adds amount to the balance and returns the new balance.
func (l *Ledger) Credit(ctx context.Context, professionalID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, &models.ValidationError{Field: "amount", Message: "must be positive"}
	}
	if _, err := l.professional(ctx, professionalID); err != nil {
		return 0, err
	}
	bal, err := l.store.AddCredits(ctx, professionalID, amount)
	if err != nil {
		return 0, fmt.Errorf("credit %s: %w", professionalID, err)
	}
	l.logger.Info("credits granted", "professional_id", professionalID, "amount", amount, "balance", bal)
	return bal, nil
}

// Refill applies the professional's plan allowance according to the
// configured mode and returns the new balance.
func (l *Ledger) Refill(ctx context.Context, professionalID string) (int, error) {
	p, err := l.professional(ctx, professionalID)
	if err != nil {
		return 0, err
	}
	return l.refill(ctx, p.ID, p.Plan)
}

func (l *Ledger) refill(ctx context.Context, professionalID string, plan models.Plan) (int, error) {
	amount := l.RefillAmount(plan)
	var (
		bal int
		err error
	)
	if l.mode == RefillAdditive {
		bal, err = l.store.AddCredits(ctx, professionalID, amount)
	} else {
		bal, err = l.store.SetCredits(ctx, professionalID, amount)
	}
	if err != nil {
		return 0, fmt.Errorf("refill %s: %w", professionalID, err)
	}
	l.logger.Info("credits refilled", "professional_id", professionalID, "plan", plan, "mode", l.mode, "balance", bal)
	return bal, nil
}

// SetPlan changes the tier and refills against the new tier atomically.
func (l *Ledger) SetPlan(ctx context.Context, professionalID string, plan models.Plan) (int, error) {
	if !plan.Valid() {
		return 0, &models.ValidationError{Field: "plan", Message: fmt.Sprintf("unknown plan %q", plan)}
	}
	var bal int
	err := l.store.InTx(ctx, func(tx repository.Store) error {
		txl := l.Tx(tx)
		if _, err := txl.professional(ctx, professionalID); err != nil {
			return err
		}
		if err := tx.SetPlan(ctx, professionalID, plan); err != nil {
			return err
		}
		var err error
		bal, err = txl.refill(ctx, professionalID, plan)
		return err
	})
	return bal, err
}

// Balance returns the current credits and plan.
func (l *Ledger) Balance(ctx context.Context, professionalID string) (int, models.Plan, error) {
	p, err := l.professional(ctx, professionalID)
	if err != nil {
		return 0, "", err
	}
	return p.Credits, p.Plan, nil
}

func (l *Ledger) professional(ctx context.Context, id string) (*models.Profile, error) {
	p, err := l.store.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role != models.RoleProfessional {
		return nil, fmt.Errorf("profile %s is %s: %w", id, p.Role, models.ErrForbidden)
	}
	return p, nil
}
