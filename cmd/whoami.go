package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/gregriff/huddle/configs"
	"github.com/gregriff/huddle/internal/app"
	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Run(cmd.Context(), configs.AppConfig(), func(_ context.Context, a *app.App) error {
			if !a.Session.IsAuthenticated() {
				return app.ErrNotAuthenticated
			}
			user := a.Session.User()
			if user == nil {
				return errors.New("session token is saved but the server did not return a user. try logging in again")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "username: %s\n", user.Username())
			fmt.Fprintf(out, "nickname: %s\n", user.DisplayName())
			fmt.Fprintf(out, "id:       %s\n", user.ID())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
