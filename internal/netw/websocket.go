// package netw implements the live connection between the client and a room's channel on the
// game server. CRUD operations with the game server are contained in the crud subpackage.
package netw

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/net/websocket"
)

// Origin is sent on the websocket handshake. There is no real origin because we're not a browser.
const Origin = "app://huddle"

// credentials are what a room connection is authenticated with
type credentials struct {
	baseURL,
	token string

	// tokenInQuery keeps the ?token= query credential that existing servers expect.
	// The token is always sent as a bearer header as well.
	tokenInQuery bool
}

// NewCredentials creates credentials needed to open websocket connections
// to rooms on the game server.
func NewCredentials(baseURL, token string, tokenInQuery bool) *credentials {
	return &credentials{
		baseURL:      baseURL,
		token:        token,
		tokenInQuery: tokenInQuery,
	}
}

// RoomURL returns the websocket location of a room: ws://<host>/ws/room/{code}?token={token}.
// Only the scheme and host of baseURL are used; room channels live at the server root even
// when the REST API is mounted under a path such as /api. https origins become wss.
func RoomURL(baseURL, roomCode, token string, tokenInQuery bool) string {
	scheme, host := "ws", ""
	if u, err := url.Parse(baseURL); err == nil {
		host = u.Host
		if u.Scheme == "https" {
			scheme = "wss"
		}
	}

	loc := scheme + "://" + host + "/ws/room/" + url.PathEscape(roomCode)
	if tokenInQuery {
		loc += "?token=" + url.QueryEscape(token)
	}
	return loc
}

// newWebsocketConfig creates a new websocket.Config for a room, with bearer auth.
func newWebsocketConfig(c *credentials, roomCode string) (*websocket.Config, error) {
	loc := RoomURL(c.baseURL, roomCode, c.token, c.tokenInQuery)

	cfg, err := websocket.NewConfig(loc, Origin)
	if err != nil {
		return nil, fmt.Errorf("invalid room location: %w", err)
	}

	// set bearer auth for the http request that initiates the ws connection
	if c.token != "" {
		cfg.Header.Set("Authorization", "Bearer "+c.token)
	}
	return cfg, nil
}

// Dialer opens the websocket described by cfg.
type Dialer func(ctx context.Context, cfg *websocket.Config) (*websocket.Conn, error)

func dialWebsocket(ctx context.Context, cfg *websocket.Config) (*websocket.Conn, error) {
	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("error dialing ws: %w", err)
	}
	return ws, nil
}
