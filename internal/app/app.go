// Package app wires the store, domain services and background workers
// from a validated config.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/garnizeh/marketplace/internal/catalog"
	"github.com/garnizeh/marketplace/internal/config"
	"github.com/garnizeh/marketplace/internal/credits"
	"github.com/garnizeh/marketplace/internal/db"
	"github.com/garnizeh/marketplace/internal/jobs"
	"github.com/garnizeh/marketplace/internal/lifecycle"
	"github.com/garnizeh/marketplace/internal/mail"
	"github.com/garnizeh/marketplace/internal/matching"
	"github.com/garnizeh/marketplace/internal/notify"
	"github.com/garnizeh/marketplace/internal/repair"
	"github.com/garnizeh/marketplace/internal/repository/sqlstore"
)

type App struct {
	DB        *db.DB
	Store     *sqlstore.SQLRepo
	Ledger    *credits.Ledger
	Catalog   *catalog.Loader
	Notify    *notify.Dispatcher
	Broker    *notify.Broker
	Matching  *matching.Service
	Repair    *repair.Repairer
	Lifecycle *lifecycle.Controller
	Jobs      *jobs.Repository
	Workers   *jobs.WorkerPool
	Outbox    *mail.Outbox

	logger *slog.Logger
}

// New builds every service on top of an open, migrated database.
func New(ctx context.Context, cfg *config.Config, d *db.DB, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store := sqlstore.New(d, logger.With("component", "store"))
	cat, err := catalog.NewLoader(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	mailer, err := mail.New(cfg.Mail, logger.With("component", "mail"))
	if err != nil {
		return nil, err
	}
	jobRepo := jobs.NewRepository(d)
	workers := jobs.NewWorkerPool(jobRepo, map[string]jobs.Handler{
		mail.JobType: mail.Handler(mailer),
	}, logger.With("component", "workers"), cfg.Workers.Count)
	outbox := mail.NewOutbox(workers, cfg.Workers.MaxAttempts, logger)

	broker := notify.NewBroker(16, logger)
	feed := notify.NewDispatcher(store, logger.With("component", "notify"),
		notify.WithCap(cfg.Notify.FeedCap), notify.WithPublisher(broker))
	ledger := credits.New(store, cfg.Credits, logger.With("component", "credits"))
	weights := matching.WeightsFrom(cfg.Matching)

	ctl := lifecycle.New(store, ledger, feed, cfg.Lifecycle, logger.With("component", "lifecycle"),
		lifecycle.WithOutbox(outbox),
		lifecycle.WithCatalog(cat),
		lifecycle.WithWeights(weights),
	)

	return &App{
		DB:        d,
		Store:     store,
		Ledger:    ledger,
		Catalog:   cat,
		Notify:    feed,
		Broker:    broker,
		Matching:  matching.NewService(store, weights),
		Repair:    repair.New(store, logger),
		Lifecycle: ctl,
		Jobs:      jobRepo,
		Workers:   workers,
		Outbox:    outbox,
		logger:    logger,
	}, nil
}

// Start launches the background workers.
func (a *App) Start(ctx context.Context) {
	a.Workers.Start(ctx)
	a.logger.Info("workers started")
}

// Stop waits for in-flight background jobs to finish.
func (a *App) Stop() {
	a.Workers.Stop()
	a.logger.Info("workers stopped")
}
