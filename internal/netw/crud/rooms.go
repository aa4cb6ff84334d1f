package crud

// rooms.go implements room-related CRUD.
import (
	"context"
	"net/http"
	"net/url"
)

// ListRooms returns the server's room listing, optionally filtered by status ("waiting", "playing", ...).
func ListRooms(ctx context.Context, client *http.Client, status string) ([]Room, error) {
	path := "/rooms/"
	if status != "" {
		path += "?" + url.Values{"status": {status}}.Encode()
	}

	var rooms []Room
	if err := do(ctx, client, http.MethodGet, path, "", nil, &rooms); err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []Room{}
	}
	return rooms, nil
}

// CreateRoom creates a room from data and returns the server's record of it.
func CreateRoom(ctx context.Context, client *http.Client, data any) (Room, error) {
	var room Room
	if err := postJSON(ctx, client, http.MethodPost, "/rooms/", data, &room); err != nil {
		return nil, err
	}
	return room, nil
}

type joinRequest struct {
	RoomCode string `json:"room_code"`
}

// JoinRoom joins the room with the given code.
func JoinRoom(ctx context.Context, client *http.Client, roomCode string) (Room, error) {
	var room Room
	if err := postJSON(ctx, client, http.MethodPost, "/rooms/join", joinRequest{RoomCode: roomCode}, &room); err != nil {
		return nil, err
	}
	return room, nil
}

// GetRoom fetches a single room by code.
func GetRoom(ctx context.Context, client *http.Client, roomCode string) (Room, error) {
	var room Room
	if err := do(ctx, client, http.MethodGet, "/rooms/"+url.PathEscape(roomCode), "", nil, &room); err != nil {
		return nil, err
	}
	return room, nil
}
