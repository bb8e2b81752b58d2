package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garnizeh/marketplace/internal/app"
	"github.com/garnizeh/marketplace/pkg/models"
)

// ProfessionalCmd onboards professionals. Self-service sign-in only ever
// yields a CLIENT profile.
func ProfessionalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "professional",
		Short: "Onboard professionals",
	}

	create := &cobra.Command{
		Use:   "create [user-id]",
		Short: "Create a professional profile with the plan allowance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			brand, _ := cmd.Flags().GetString("brand")
			email, _ := cmd.Flags().GetString("email")
			location, _ := cmd.Flags().GetString("location")
			services, _ := cmd.Flags().GetStringSlice("services")
			plan, _ := cmd.Flags().GetString("plan")
			if !models.Plan(plan).Valid() {
				return fmt.Errorf("unknown plan %q", plan)
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				p := &models.Profile{
					ID:          args[0],
					Role:        models.RoleProfessional,
					DisplayName: name,
					BrandName:   brand,
					Email:       email,
					Location:    location,
					Services:    models.StringSet(services),
					Plan:        models.PlanFree,
				}
				if err := a.Store.CreateProfile(ctx, p); err != nil {
					return err
				}
				bal, err := a.Ledger.SetPlan(ctx, p.ID, models.Plan(plan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s professional %s created on %s with %d credits\n", ok("✓"), bold(p.ID), plan, bal)
				return nil
			})
		},
	}
	create.Flags().String("name", "", "Display name")
	create.Flags().String("brand", "", "Brand name shown on quotes")
	create.Flags().String("email", "", "Contact email")
	create.Flags().String("location", "", "Service area")
	create.Flags().StringSlice("services", nil, "Offered categories")
	create.Flags().String("plan", string(models.PlanFree), "FREE, PRO or AGENCY")
	_ = create.MarkFlagRequired("name")
	cmd.AddCommand(create)

	return cmd
}
