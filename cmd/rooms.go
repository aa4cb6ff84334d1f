package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gregriff/huddle/configs"
	"github.com/gregriff/huddle/internal/app"
	"github.com/gregriff/huddle/internal/netw/crud"
	"github.com/spf13/cobra"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List rooms on the game server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, _ := cmd.Flags().GetString("status")
		return app.Run(cmd.Context(), configs.AppConfig(), func(ctx context.Context, a *app.App) error {
			a.Rooms.FetchRoomsByStatus(ctx, status)
			printRooms(cmd.OutOrStdout(), a.Rooms.Rooms())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(roomsCmd)
	roomsCmd.Flags().String("status", "", "only list rooms in this status (waiting, playing, finished)")
}

var statusColors = map[string]*color.Color{
	"waiting":  color.New(color.FgGreen),
	"playing":  color.New(color.FgYellow),
	"finished": color.New(color.FgHiBlack),
}

func printRooms(w io.Writer, rooms []crud.Room) {
	if len(rooms) == 0 {
		fmt.Fprintln(w, "No rooms")
		return
	}
	for _, room := range rooms {
		status := room.Status()
		if c, ok := statusColors[status]; ok {
			status = c.Sprint(status)
		}
		fmt.Fprintf(w, "%-8s %-24s %s\n", room.Code(), room.Name(), status)
	}
}
