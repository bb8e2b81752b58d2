package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garnizeh/marketplace/internal/db"
)

// sqlitePath extracts the file path from a sqlite DSN.
func sqlitePath(dsn string) (string, error) {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" || p == ":memory:" {
		return "", errors.New("database is not a sqlite file")
	}
	return p, nil
}

func BackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of the sqlite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != db.DriverSQLite {
				return fmt.Errorf("backup supports sqlite only; use pg_dump for %s", cfg.Database.Driver)
			}
			src, err := sqlitePath(cfg.Database.DSN)
			if err != nil {
				return err
			}
			dst, _ := cmd.Flags().GetString("out")
			if dst == "" {
				dst = src + ".bak"
			}
			if _, err := os.Stat(dst); err == nil {
				return fmt.Errorf("%s already exists", dst)
			}

			d, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			if _, err := d.Exec(cmd.Context(), `VACUUM INTO ?`, dst); err != nil {
				return fmt.Errorf("backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s backup written to %s\n", ok("✓"), dst)
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "Backup file (default <db>.bak)")
	return cmd
}

// RestoreCmd copies a backup over the database file. Stop the server first.
func RestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore [backup-file]",
		Short: "Replace the sqlite database with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != db.DriverSQLite {
				return fmt.Errorf("restore supports sqlite only; use pg_restore for %s", cfg.Database.Driver)
			}
			dst, err := sqlitePath(cfg.Database.DSN)
			if err != nil {
				return err
			}

			srcFile, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			defer srcFile.Close()

			tmp := dst + ".restore"
			dstFile, err := os.Create(tmp)
			if err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			if _, err := io.Copy(dstFile, srcFile); err != nil {
				dstFile.Close()
				os.Remove(tmp)
				return fmt.Errorf("restore: %w", err)
			}
			if err := dstFile.Close(); err != nil {
				os.Remove(tmp)
				return fmt.Errorf("restore: %w", err)
			}
			// stale journals would be replayed over the restored file
			for _, suffix := range []string{"-wal", "-shm", "-journal"} {
				os.Remove(dst + suffix)
			}
			if err := os.Rename(tmp, dst); err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s restored %s from %s\n", ok("✓"), dst, args[0])
			return nil
		},
	}
	return cmd
}
