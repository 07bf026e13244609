package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage forum user profiles",
}

var userEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create or refresh the acting user's profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := app.Gateway.EnsureUser(cmd.Context(), app.Session.CurrentUserID(), app.Session.CurrentUserEmail())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s\n", p.ID, p.Email, p.Role)
		return nil
	},
}

var userRoleCmd = &cobra.Command{
	Use:   "role [USER_ID]",
	Short: "Show a user's role (default the acting user)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := app.Session.CurrentUserID()
		if len(args) == 1 {
			userID = args[0]
		}
		role, found, err := app.Gateway.UserRole(cmd.Context(), userID)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintf(cmd.OutOrStdout(), "%s has no profile\n", userID)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s role=%s manage_events=%t\n", userID, role, role.CanManageEvents())
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations for the configured backend",
	Long:  `Opening a sqlite or postgres backend applies pending migrations; this command does only that and exits.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date for %s backend\n", app.Config.Backend)
		return nil
	},
}

func init() {
	userCmd.AddCommand(userEnsureCmd, userRoleCmd)
}
