package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/gregriff/huddle/configs"
	"github.com/gregriff/huddle/internal/app"
	"github.com/gregriff/huddle/internal/netw/crud"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Change your nickname or avatar",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		if !cmd.Flags().Changed("nickname") && !cmd.Flags().Changed("avatar") {
			return errors.New("nothing to update. pass --nickname and/or --avatar")
		}
		return nil
	},
	RunE: updateProfile,
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().String("nickname", "", "name shown to other players")
	profileCmd.Flags().String("avatar", "", "avatar URL")
}

func updateProfile(cmd *cobra.Command, _ []string) error {
	var update crud.ProfileUpdate
	if cmd.Flags().Changed("nickname") {
		nickname, _ := cmd.Flags().GetString("nickname")
		update.Nickname = &nickname
	}
	if cmd.Flags().Changed("avatar") {
		avatar, _ := cmd.Flags().GetString("avatar")
		update.Avatar = &avatar
	}

	return app.Run(cmd.Context(), configs.AppConfig(), func(ctx context.Context, a *app.App) error {
		if !a.Session.IsAuthenticated() {
			return app.ErrNotAuthenticated
		}
		res := a.Session.UpdateProfile(ctx, update)
		if !res.Success {
			return errors.New(res.Message)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Profile updated, now playing as %s\n", a.Session.User().DisplayName())
		return nil
	})
}
