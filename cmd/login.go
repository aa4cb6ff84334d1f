package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gregriff/huddle/configs"
	"github.com/gregriff/huddle/internal/app"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in and remember the session",
	Long: `Arguments:
      username    The account to log in as (required)

The password is prompted for, or read from stdin when it is not a terminal.
	`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(_ *cobra.Command, args []string) error {
		return validateUsername(args[0])
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd.OutOrStdout(), os.Stdin)
		if err != nil {
			return err
		}
		return app.Run(cmd.Context(), configs.AppConfig(), func(ctx context.Context, a *app.App) error {
			res := a.Session.Login(ctx, args[0], password)
			if !res.Success {
				return errors.New(res.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", displayName(a, args[0]))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

// readPassword prompts without echo on a terminal, otherwise reads one line from in.
func readPassword(out io.Writer, in *os.File) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(out, "Password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("error reading password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("error reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// displayName is the session user's display name, or fallback while the user is unknown.
func displayName(a *app.App, fallback string) string {
	if name := a.Session.User().DisplayName(); name != "" {
		return name
	}
	return fallback
}
