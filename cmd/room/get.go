package room

import (
	"context"
	"fmt"
	"strings"

	"github.com/gregriff/huddle/configs"
	"github.com/gregriff/huddle/internal/app"
	"github.com/spf13/cobra"
)

var getRoomCmd = &cobra.Command{
	Use:   "get [room-code]",
	Short: "Show a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomCode := strings.ToUpper(args[0])
		return app.Run(cmd.Context(), configs.AppConfig(), func(ctx context.Context, a *app.App) error {
			room := a.Rooms.GetRoom(ctx, roomCode)
			if room == nil {
				return fmt.Errorf("room %s could not be fetched", roomCode)
			}
			printRoom(cmd.OutOrStdout(), room)
			return nil
		})
	},
}
