package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/garnizeh/marketplace/internal/app"
)

func DeadLettersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dead-letters",
		Short: "List background jobs that exhausted their attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				dls, err := a.Jobs.DeadLetters(ctx, limit)
				if err != nil {
					return err
				}
				if len(dls) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), ok("no dead letters"))
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "JOB\tTYPE\tATTEMPTS\tFAILED AT\tERROR")
				for _, d := range dls {
					lastErr := ""
					if d.LastError != nil {
						lastErr = *d.LastError
					}
					failed := time.UnixMilli(d.FailedAt).UTC().Format(time.RFC3339)
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", d.JobID, d.Type, d.Attempts, failed, warn(lastErr))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().Int("limit", 50, "Maximum rows")
	return cmd
}
