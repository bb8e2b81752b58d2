package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garnizeh/marketplace/internal/app"
	"github.com/garnizeh/marketplace/pkg/models"
)

func CatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage category intake schemas",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories with a schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				schemas, err := a.Store.ListCategorySchemas(ctx)
				if err != nil {
					return err
				}
				if len(schemas) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), warn("no categories"))
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "CATEGORY\tDESCRIPTION")
				for _, s := range schemas {
					fmt.Fprintf(w, "%s\t%s\n", s.Category, s.Description)
				}
				return w.Flush()
			})
		},
	})

	set := &cobra.Command{
		Use:   "set [category]",
		Short: "Create or replace a category's JSON Schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			description, _ := cmd.Flags().GetString("description")
			b, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read schema: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := &models.CategorySchema{Category: args[0], Description: description, SchemaJSON: string(b)}
				if err := a.Catalog.Put(ctx, s); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s schema stored for %s\n", ok("✓"), bold(args[0]))
				return nil
			})
		},
	}
	set.Flags().StringP("file", "f", "", "JSON Schema file")
	set.Flags().String("description", "", "Category description")
	_ = set.MarkFlagRequired("file")
	cmd.AddCommand(set)

	return cmd
}
