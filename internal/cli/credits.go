package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/garnizeh/marketplace/internal/app"
	"github.com/garnizeh/marketplace/pkg/models"
)

func CreditsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Inspect and adjust professional credit balances",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show [professional-id]",
		Short: "Show balance and plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				bal, plan, err := a.Ledger.Balance(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s credits  plan %s\n", bold(args[0]), ok(bal), plan)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "grant [professional-id] [amount]",
		Short: "Add credits to a balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("amount must be an integer: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				bal, err := a.Ledger.Credit(ctx, args[0], amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s granted %d to %s, balance %d\n", ok("✓"), amount, args[0], bal)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "refill [professional-id]",
		Short: "Apply the plan allowance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				bal, err := a.Ledger.Refill(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s refilled %s (%s), balance %d\n", ok("✓"), args[0], a.Ledger.Mode(), bal)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "plan [professional-id] [FREE|PRO|AGENCY]",
		Short: "Change plan and refill against it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				bal, err := a.Ledger.SetPlan(ctx, args[0], models.Plan(args[1]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s is now %s, balance %d\n", ok("✓"), args[0], args[1], bal)
				return nil
			})
		},
	})

	return cmd
}
