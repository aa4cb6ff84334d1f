package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gregriff/huddle/configs"
	"github.com/gregriff/huddle/internal/app"
	"github.com/spf13/cobra"
)

var createRoomCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a room and make it your current room",
	Long: `Arguments:
      name    The name of the room (required)
	`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		roomName := args[0]
		if roomName == "" {
			return fmt.Errorf("must specify a room name")
		}
		if len(roomName) > 50 {
			return fmt.Errorf("room name too long")
		}
		if players, _ := cmd.Flags().GetInt("max-players"); players < 2 {
			return fmt.Errorf("a room needs room for at least 2 players")
		}
		return nil
	},
	RunE: createRoom,
}

func init() {
	createRoomCmd.Flags().Int("max-players", 12, "maximum number of players")
}

func createRoom(cmd *cobra.Command, args []string) error {
	maxPlayers, _ := cmd.Flags().GetInt("max-players")
	data := map[string]any{"room_name": args[0], "max_players": maxPlayers}

	return app.Run(cmd.Context(), configs.AppConfig(), func(ctx context.Context, a *app.App) error {
		if !a.Session.IsAuthenticated() {
			return app.ErrNotAuthenticated
		}
		res := a.Rooms.CreateRoom(ctx, data)
		if !res.Success {
			return errors.New(res.Message)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Created room")
		printRoom(cmd.OutOrStdout(), res.Room)
		return nil
	})
}
