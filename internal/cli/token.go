package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/garnizeh/marketplace/api"
	"github.com/garnizeh/marketplace/pkg/models"
)

func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [user-id]",
		Short: "Mint a signed bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			tok, err := api.IssueToken(cfg.JWTSecret, models.Identity{UserID: args[0], Role: models.Role(role), Name: name, Email: email}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("role", string(models.RoleClient), "CLIENT, PROFESSIONAL or ADMIN")
	cmd.Flags().String("name", "", "Display name claim")
	cmd.Flags().String("email", "", "Email claim")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
