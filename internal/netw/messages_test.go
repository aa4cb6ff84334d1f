package netw

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInboundLiftsFields(t *testing.T) {
	tests := []struct {
		name, frame      string
		message, userID string
	}{
		{"string message", `{"type":"chat","user_id":3,"message":"hi"}`, "hi", "3"},
		{"object message", `{"type":"chat","user_id":3,"message": {"text": "hi"}}`, `{"text":"hi"}`, "3"},
		{"number message", `{"type":"chat","user_id":3,"message":42}`, "42", "3"},
		{"null message", `{"type":"game_log","message":null}`, "", ""},
		{"quoted user id", `{"type":"chat","user_id":"8","message":"hi"}`, "hi", "8"},
		{"non-numeric user id", `{"type":"chat","user_id":"bob","message":"hi"}`, "hi", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := decodeInbound([]byte(tt.frame))
			require.NoError(t, err)
			assert.Contains(t, []string{TypeChat, TypeGameLog}, msg.Type)
			assert.Equal(t, tt.message, msg.Message)
			assert.Equal(t, json.Number(tt.userID), msg.UserID)
			assert.JSONEq(t, tt.frame, string(msg.Raw))
		})
	}
}

func TestDecodeInboundKeepsRawForDecode(t *testing.T) {
	msg, err := decodeInbound([]byte(`{"type":"chat","user_id":3,"message":{"text":"hi","mood":"smug"}}`))
	require.NoError(t, err)

	var chat struct {
		Message struct {
			Text string `json:"text"`
			Mood string `json:"mood"`
		} `json:"message"`
	}
	require.NoError(t, msg.Decode(&chat))
	assert.Equal(t, "hi", chat.Message.Text)
	assert.Equal(t, "smug", chat.Message.Mood)
}

func TestDecodeInboundRejects(t *testing.T) {
	for _, frame := range []string{"not json", `{"message":"no type"}`, `{"type":7}`, `[]`} {
		_, err := decodeInbound([]byte(frame))
		assert.Error(t, err, frame)
	}
}
