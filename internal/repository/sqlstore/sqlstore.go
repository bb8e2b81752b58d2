package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/garnizeh/marketplace/internal/db"
	"github.com/garnizeh/marketplace/pkg/models"
	"github.com/garnizeh/marketplace/pkg/repository"
)

// SQLRepo implements repository interfaces on top of the internal DB wrapper.
// A SQLRepo returned to an InTx callback routes every query through that
// transaction.
type SQLRepo struct {
	conn   *db.DB
	ext    sqlx.ExtContext
	logger *slog.Logger
}

// Ensure SQLRepo implements the public interfaces.
var _ repository.Store = (*SQLRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLRepo {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &SQLRepo{conn: conn, ext: conn.X(), logger: logger}
}

func (r *SQLRepo) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if _, nested := r.ext.(*sqlx.Tx); nested {
		return fn(r)
	}

	tx, err := r.conn.BeginTxx(ctx, nil)
	if err != nil {
		return db.Classify(fmt.Errorf("begin tx: %w", err))
	}
	if err := fn(&SQLRepo{conn: r.conn, ext: tx, logger: r.logger}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.logger.Warn("rollback failed", "err", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return db.Classify(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (r *SQLRepo) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(query), args...)
	return res, db.Classify(err)
}

// execAffected runs a statement and returns the number of affected rows.
func (r *SQLRepo) execAffected(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLRepo) get(ctx context.Context, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, r.ext, dest, r.ext.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	return db.Classify(err)
}

func (r *SQLRepo) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return db.Classify(sqlx.SelectContext(ctx, r.ext, dest, r.ext.Rebind(query), args...))
}

func statusArgs[S ~string](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}
