package netw

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Inbound frame types sent by the game server on a room channel.
const (
	TypeConnected    = "connected"
	TypeChat         = "chat"
	TypePlayerJoined = "player_joined"
	TypePlayerLeft   = "player_left"
	TypeGameLog      = "game_log"
	TypeGameAction   = "game_action"
	TypeGameStatus   = "game_status"
	TypeError        = "error"
)

// Outbound-only frame types.
const (
	TypeSpeech    = "speech"
	TypeGetStatus = "get_status"
)

// Inbound is a frame received from a room. Type, Message and UserID are lifted out for
// convenience; Raw holds the whole frame for Decode.
type Inbound struct {
	Type string
	// Message is the frame's message. Servers relay chat messages as the sender wrote them,
	// so a message that is not a JSON string is kept as its compact JSON text.
	Message string
	// UserID is empty when the frame has no numeric user_id.
	UserID json.Number
	Raw    json.RawMessage
}

func (m *Inbound) UnmarshalJSON(data []byte) error {
	var frame struct {
		Type    string          `json:"type"`
		Message json.RawMessage `json:"message"`
		UserID  json.RawMessage `json:"user_id"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	*m = Inbound{
		Type:    frame.Type,
		Message: liftString(frame.Message),
		UserID:  liftNumber(frame.UserID),
		Raw:     append(json.RawMessage(nil), data...),
	}
	return nil
}

func liftString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func liftNumber(raw json.RawMessage) json.Number {
	var n json.Number
	if len(raw) == 0 || json.Unmarshal(raw, &n) != nil {
		return ""
	}
	return n
}

// Decode unmarshals the full frame into v.
func (m Inbound) Decode(v any) error {
	return json.Unmarshal(m.Raw, v)
}

func decodeInbound(data []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return Inbound{}, fmt.Errorf("invalid frame: %w", err)
	}
	if msg.Type == "" {
		return Inbound{}, errors.New("invalid frame: missing type")
	}
	return msg, nil
}

// GameStatus is the payload of a game_status frame.
type GameStatus struct {
	Status       string `json:"status"`
	CurrentRound int    `json:"current_round"`
	CurrentPhase string `json:"current_phase"`
}

// GameLog is the payload of a game_log frame.
type GameLog struct {
	Message    string `json:"message"`
	Phase      string `json:"phase"`
	Round      int    `json:"round"`
	PlayerName string `json:"player_name"`
}

// ChatMessage is broadcast to everyone else in the room.
type ChatMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Chat builds a chat frame stamped with the current time in milliseconds.
func Chat(text string) ChatMessage {
	return ChatMessage{Type: TypeChat, Message: text, Timestamp: time.Now().UnixMilli()}
}

// SpeechMessage is an in-game statement, recorded in the game log.
type SpeechMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func Speech(content string) SpeechMessage {
	return SpeechMessage{Type: TypeSpeech, Content: content}
}

// GameActionMessage carries a night action, a vote, etc.
type GameActionMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   any    `json:"data,omitempty"`
}

func GameAction(action string, data any) GameActionMessage {
	return GameActionMessage{Type: TypeGameAction, Action: action, Data: data}
}

// GetStatus asks the server for a game_status frame.
func GetStatus() map[string]string {
	return map[string]string{"type": TypeGetStatus}
}
