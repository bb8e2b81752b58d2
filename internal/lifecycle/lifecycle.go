// Package lifecycle is the state machine for jobs and quotes: credit-gated
// submission, single-winner acceptance, client-side job management and the
// contact unlock that acceptance grants.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garnizeh/marketplace/internal/config"
	"github.com/garnizeh/marketplace/internal/credits"
	"github.com/garnizeh/marketplace/internal/mail"
	"github.com/garnizeh/marketplace/internal/matching"
	"github.com/garnizeh/marketplace/internal/notify"
	"github.com/garnizeh/marketplace/internal/repair"
	"github.com/garnizeh/marketplace/internal/validation"
	"github.com/garnizeh/marketplace/pkg/models"
	"github.com/garnizeh/marketplace/pkg/repository"
)

const defaultTxTimeout = 5 * time.Second

// Notifier records an in-app notification for a user.
type Notifier interface {
	Notify(ctx context.Context, userID string, typ models.NotificationType, title, message string, meta notify.Meta) (*models.Notification, error)
}

// Outbox queues an email for asynchronous delivery.
type Outbox interface {
	Enqueue(ctx context.Context, m mail.Email) error
}

// Catalog checks job details against the category intake schema.
type Catalog interface {
	ValidateDetails(ctx context.Context, category string, details models.Details) error
}

// Controller drives job and quote state changes and their side effects.
type Controller struct {
	store    repository.Store
	ledger   *credits.Ledger
	repair   *repair.Repairer
	notifier Notifier
	outbox   Outbox
	catalog  Catalog
	validate *validation.AppValidator
	weights  matching.Weights
	cfg      config.LifecycleConfig
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithOutbox enables lifecycle emails.
func WithOutbox(o Outbox) Option { return func(c *Controller) { c.outbox = o } }

// WithCatalog validates job details on create and edit.
func WithCatalog(cat Catalog) Option { return func(c *Controller) { c.catalog = cat } }

// WithWeights sets the relevance weights used for opportunity fan-out.
func WithWeights(w matching.Weights) Option { return func(c *Controller) { c.weights = w } }

// New creates a Controller. A zero TxTimeout falls back to five seconds.
func New(store repository.Store, ledger *credits.Ledger, notifier Notifier, cfg config.LifecycleConfig, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = defaultTxTimeout
	}
	c := &Controller{
		store:    store,
		ledger:   ledger,
		repair:   repair.New(store, logger),
		notifier: notifier,
		validate: validation.New(),
		weights:  matching.DefaultWeights,
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// inTx runs fn in one store transaction bounded by the configured timeout.
// A timeout surfaces as models.ErrRetryable; the rollback leaves no trace.
func (c *Controller) inTx(ctx context.Context, fn func(tx repository.Store) error) error {
	tctx, cancel := context.WithTimeout(ctx, c.cfg.TxTimeout)
	defer cancel()

	err := c.store.InTx(tctx, fn)
	if err == nil || errors.Is(err, models.ErrRetryable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", models.ErrRetryable, err)
	}
	return err
}

// notify and mail are best-effort echoes of a committed change.
func (c *Controller) notify(ctx context.Context, userID string, typ models.NotificationType, title, message string, meta notify.Meta) {
	if c.notifier == nil {
		return
	}
	if _, err := c.notifier.Notify(ctx, userID, typ, title, message, meta); err != nil {
		c.logger.Warn("notify failed", "user_id", userID, "type", typ, "err", err)
	}
}

func (c *Controller) mail(ctx context.Context, userID, fallbackEmail, subject, body string) {
	if c.outbox == nil {
		return
	}
	to := fallbackEmail
	if to == "" {
		p, err := c.store.GetProfile(ctx, userID)
		if err != nil {
			c.logger.Warn("mail recipient lookup failed", "user_id", userID, "err", err)
			return
		}
		to = p.Email
	}
	if err := c.outbox.Enqueue(ctx, mail.Email{To: to, Subject: subject, Body: body}); err != nil {
		c.logger.Warn("mail enqueue failed", "user_id", userID, "subject", subject, "err", err)
	}
}
