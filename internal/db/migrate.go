package db

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

type categorySeed struct {
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

// Migrate applies migrations and optional seed files found in the repository.
// It creates a `schema_migrations` table to track applied migrations and applies
// any SQL files in `migrations/` that have not yet been recorded, each in its
// own transaction. Category schemas under `seed/categories/` are inserted only
// when the category has no schema yet, so admin edits survive restarts.
func Migrate(ctx context.Context, d *DB, migrationFS embed.FS, seedFS embed.FS) error {
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied BIGINT NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	migDir := "migrations"

	entries, err := fs.ReadDir(migrationFS, migDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	for _, fname := range files {
		version := strings.TrimSuffix(fname, path.Ext(fname))

		var count int
		if err := d.Get(ctx, &count, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version); err != nil {
			return fmt.Errorf("scan migration applied count: %w", err)
		}
		if count > 0 {
			continue
		}

		b, err := fs.ReadFile(migrationFS, path.Join(migDir, fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}
		if err := applyMigration(ctx, d, version, string(b)); err != nil {
			return fmt.Errorf("apply migration %s: %w", fname, err)
		}
		d.logger.Info("migration applied", "version", version)
	}

	return seedCategories(ctx, d, seedFS)
}

func applyMigration(ctx context.Context, d *DB, version, body string) error {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, body); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_migrations (version, applied) VALUES (?, ?)`), version, time.Now().UTC().Unix()); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func seedCategories(ctx context.Context, d *DB, seedFS embed.FS) error {
	seedDir := path.Join("seed", "categories")
	entries, err := fs.ReadDir(seedFS, seedDir)
	if err != nil {
		// seeds are optional
		return nil
	}

	now := time.Now().UTC().UnixMilli()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := fs.ReadFile(seedFS, path.Join(seedDir, e.Name()))
		if err != nil {
			return fmt.Errorf("read seed %s: %w", e.Name(), err)
		}
		var s categorySeed
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode seed %s: %w", e.Name(), err)
		}
		if s.Category == "" || len(s.Schema) == 0 {
			return fmt.Errorf("seed %s: category and schema are required", e.Name())
		}
		if _, err := d.Exec(ctx, `INSERT INTO category_schemas (category, description, schema_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT (category) DO NOTHING`,
			s.Category, s.Description, string(s.Schema), now, now); err != nil {
			return fmt.Errorf("seed category %s: %w", s.Category, err)
		}
	}

	return nil
}
