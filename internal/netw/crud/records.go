package crud

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Room is a server-defined room record. Its shape belongs to the server, so it is kept
// as decoded JSON; accessors cover the fields clients commonly need.
type Room map[string]any

// Code returns the room's shareable code.
func (r Room) Code() string {
	if code := str(r, "room_code"); code != "" {
		return code
	}
	return str(r, "code")
}

func (r Room) ID() string     { return str(r, "id") }
func (r Room) Name() string   { return str(r, "room_name") }
func (r Room) Status() string { return str(r, "status") }

// User is the server's record of the authenticated user.
type User map[string]any

func (u User) ID() string       { return str(u, "id") }
func (u User) Username() string { return str(u, "username") }

// DisplayName is the nickname if set, else the username.
func (u User) DisplayName() string {
	if nick := str(u, "nickname"); nick != "" {
		return nick
	}
	return u.Username()
}

// str renders a scalar field as a string. JSON numbers decode to float64 or json.Number.
func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
