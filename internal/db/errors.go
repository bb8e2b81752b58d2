package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/garnizeh/marketplace/pkg/models"
)

var (
	ErrForeignKey = errors.New("foreign key violation")
	ErrUnique     = errors.New("unique violation")
)

// Classify maps driver errors onto ErrForeignKey, ErrUnique or
// models.ErrRetryable, keeping the original error in the chain. Other errors
// are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", models.ErrRetryable, err)
	}

	var lite *sqlite.Error
	if errors.As(err, &lite) {
		code := lite.Code()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %w", ErrForeignKey, err)
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", ErrUnique, err)
		case code&0xff == sqlite3.SQLITE_BUSY, code&0xff == sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", models.ErrRetryable, err)
		}
		return err
	}

	var pg *pgconn.PgError
	if errors.As(err, &pg) {
		switch pg.Code {
		case "23503":
			return fmt.Errorf("%w: %w", ErrForeignKey, err)
		case "23505":
			return fmt.Errorf("%w: %w", ErrUnique, err)
		case "40001", "40P01", "55P03", "57014":
			return fmt.Errorf("%w: %w", models.ErrRetryable, err)
		}
	}

	return err
}
