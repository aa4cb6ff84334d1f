package room

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gregriff/huddle/configs"
	"github.com/gregriff/huddle/internal/app"
	"github.com/spf13/cobra"
)

var joinRoomCmd = &cobra.Command{
	Use:   "join [room-code]",
	Short: "Join a room by its code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomCode := strings.ToUpper(args[0])
		return app.Run(cmd.Context(), configs.AppConfig(), func(ctx context.Context, a *app.App) error {
			if !a.Session.IsAuthenticated() {
				return app.ErrNotAuthenticated
			}
			res := a.Rooms.JoinRoom(ctx, roomCode)
			if !res.Success {
				return errors.New(res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Joined room")
			printRoom(cmd.OutOrStdout(), res.Room)
			return nil
		})
	},
}
