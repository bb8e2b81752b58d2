package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	dbfs "github.com/garnizeh/marketplace/db"
	"github.com/garnizeh/marketplace/internal/db"
)

func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply migrations and seed category schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			d, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := db.Migrate(cmd.Context(), d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s database initialized (%s)\n", ok("✓"), cfg.Database.Driver)
			return nil
		},
	}
}
