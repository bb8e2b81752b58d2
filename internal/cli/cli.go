// Package cli implements marketctl, the operator CLI for migrations,
// credits, categories, professional onboarding and dev tokens.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/garnizeh/marketplace/internal/app"
	"github.com/garnizeh/marketplace/internal/config"
	"github.com/garnizeh/marketplace/internal/db"
)

var (
	ok   = color.New(color.FgGreen).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
	bold = color.New(color.Bold).SprintFunc()
)

// RootCmd builds the marketctl command tree.
func RootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "marketctl",
		Short:         "Operate the marketplace database",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Path to config YAML file")

	root.AddCommand(MigrateCmd())
	root.AddCommand(CreditsCmd())
	root.AddCommand(CatalogCmd())
	root.AddCommand(ProfessionalCmd())
	root.AddCommand(TokenCmd())
	root.AddCommand(DeadLettersCmd())
	root.AddCommand(BackupCmd())
	root.AddCommand(RestoreCmd())
	return root
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	d, err := db.New(ctx, cfg.Database.Driver, cfg.Database.DSN, quietLogger())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return d, nil
}

// withApp opens the database, builds the services and runs fn. Workers are
// not started; mail queued by fn is delivered by the server.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	d, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	a, err := app.New(ctx, cfg, d, quietLogger())
	if err != nil {
		return err
	}
	return fn(ctx, a)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
