package cmd

import (
	"context"
	"fmt"

	"github.com/gregriff/huddle/configs"
	"github.com/gregriff/huddle/internal/app"
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Run(cmd.Context(), configs.AppConfig(), func(_ context.Context, a *app.App) error {
			if !a.Session.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			a.Session.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
