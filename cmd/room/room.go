package room

import (
	"fmt"
	"io"

	"github.com/gregriff/huddle/internal/netw/crud"
	"github.com/spf13/cobra"
)

var RoomCmd = &cobra.Command{
	Use:   "room",
	Short: "Create, join or inspect a game room",
}

func init() {
	RoomCmd.AddCommand(createRoomCmd)
	RoomCmd.AddCommand(joinRoomCmd)
	RoomCmd.AddCommand(getRoomCmd)
}

func printRoom(w io.Writer, room crud.Room) {
	fmt.Fprintf(w, "code:    %s\n", room.Code())
	fmt.Fprintf(w, "name:    %s\n", room.Name())
	if status := room.Status(); status != "" {
		fmt.Fprintf(w, "status:  %s\n", status)
	}
}
