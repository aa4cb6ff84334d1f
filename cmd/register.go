package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/gregriff/huddle/configs"
	"github.com/gregriff/huddle/internal/app"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var registerCmd = &cobra.Command{
	Use:   "register [username]",
	Short: "Create a new account on the game server",
	Long: `Arguments:
      username    The account name (required)

The password is prompted for, or read from stdin when it is not a terminal.
Registering does not log in.
	`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(_ *cobra.Command, args []string) error {
		if err := validateUsername(args[0]); err != nil {
			return fmt.Errorf("invalid username %s (%w)", args[0], err)
		}
		return nil
	},
	RunE: registerUser,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	var flagName string

	flagName = "nickname"
	registerCmd.Flags().String(flagName, "", "name shown to other players")
	_ = viper.BindPFlag("register."+flagName, registerCmd.Flags().Lookup(flagName))
}

func registerUser(cmd *cobra.Command, args []string) error {
	username, nickname := args[0], viper.GetString("register.nickname")

	password, err := readPassword(cmd.OutOrStdout(), os.Stdin)
	if err != nil {
		return err
	}
	if vErr := validatePassword(password); vErr != nil {
		return fmt.Errorf("invalid password (%w)", vErr)
	}

	userData := map[string]string{"username": username, "password": password}
	if nickname != "" {
		userData["nickname"] = nickname
	}

	return app.Run(cmd.Context(), configs.AppConfig(), func(ctx context.Context, a *app.App) error {
		res := a.Session.Register(ctx, userData)
		if !res.Success {
			return errors.New(res.Message)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	})
}

var validCharsUsername = regexp.MustCompile(`^[A-Za-z\d_.-]+$`)
var validCharsPassword = regexp.MustCompile(`^[A-Za-z\d@$!%*?&#_.-]+$`)

func validateUsername(username string) error {
	if len(username) == 0 {
		return errors.New("empty username")
	}
	if len(username) > 32 {
		return errors.New("username too long. Must be 32 characters or less")
	}
	if valid := validCharsUsername.MatchString(username); !valid {
		return errors.New("invalid character(s) detected. only letters, numbers, '_', '.' and '-' allowed")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) == 0 {
		return errors.New("empty password")
	}
	if len(password) < 6 {
		return errors.New("password too short. Must be 6 characters or more")
	}
	if len(password) > 64 {
		return errors.New("password too long. Must be 64 characters or less")
	}
	if valid := validCharsPassword.MatchString(password); !valid {
		return errors.New("invalid character(s) detected. only normal characters, numbers, and some symbols allowed")
	}
	return nil
}
