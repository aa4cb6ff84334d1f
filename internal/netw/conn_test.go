package netw

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

const testTimeout = 5 * time.Second

// roomServer is a websocket endpoint that records what clients send.
type roomServer struct {
	*httptest.Server
	frames  chan string
	queries chan string
	headers chan http.Header
}

// newRoomServer starts a server that runs handle for each connection after recording the
// handshake. A nil handle reads frames into rs.frames until the client goes away.
func newRoomServer(t *testing.T, handle func(rs *roomServer, ws *websocket.Conn)) *roomServer {
	t.Helper()
	rs := &roomServer{
		frames:  make(chan string, 16),
		queries: make(chan string, 4),
		headers: make(chan http.Header, 4),
	}
	rs.Server = httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {
		rs.queries <- ws.Request().URL.RawQuery
		rs.headers <- ws.Request().Header.Clone()
		if handle != nil {
			handle(rs, ws)
			return
		}
		rs.readAll(ws)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *roomServer) readAll(ws *websocket.Conn) {
	for {
		var frame string
		if err := websocket.Message.Receive(ws, &frame); err != nil {
			return
		}
		rs.frames <- frame
	}
}

// syncWriter lets the test read log output written from the connection goroutine.
type syncWriter struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func waitState(t *testing.T, c *Conn, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want }, testTimeout, 5*time.Millisecond,
		"connection never reached %s (is %s)", want, c.State())
}

func waitDone(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(testTimeout):
		t.Fatalf("connection did not close (state %s)", c.State())
	}
	assert.Equal(t, StateClosed, c.State())
}

func TestRoomURL(t *testing.T) {
	tests := []struct {
		name, base, code, token string
		inQuery                 bool
		want                    string
	}{
		{"plain", "http://localhost:8000", "ABC123", "tok", true, "ws://localhost:8000/ws/room/ABC123?token=tok"},
		{"trailing slash", "http://localhost:8000/", "ABC123", "tok", true, "ws://localhost:8000/ws/room/ABC123?token=tok"},
		{"tls", "https://game.example", "ABC123", "tok", true, "wss://game.example/ws/room/ABC123?token=tok"},
		{"header only", "http://localhost:8000", "ABC123", "tok", false, "ws://localhost:8000/ws/room/ABC123"},
		{"escaping", "http://h", "a b", "x+y/z", true, "ws://h/ws/room/a%20b?token=x%2By%2Fz"},
		{"api mount", "http://localhost:8000/api", "ABC123", "tok", true, "ws://localhost:8000/ws/room/ABC123?token=tok"},
		{"api mount tls", "https://game.example/api/", "ABC123", "tok", false, "wss://game.example/ws/room/ABC123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoomURL(tt.base, tt.code, tt.token, tt.inQuery))
		})
	}
}

func TestConnectSendReceiveClose(t *testing.T) {
	rs := newRoomServer(t, func(rs *roomServer, ws *websocket.Conn) {
		_ = websocket.Message.Send(ws, `{"type":"connected","room_code":"ABC123","user_id":7,"message":"ok"}`)
		rs.readAll(ws)
	})

	var opened, closed atomic.Int32
	inbound := make(chan Inbound, 4)
	c, err := Connect(context.Background(), NewCredentials(rs.URL, "tok", true), "ABC123", Handlers{
		OnOpen:    func() { opened.Add(1) },
		OnClose:   func() { closed.Add(1) },
		OnError:   func(err error) { t.Errorf("unexpected error: %v", err) },
		OnMessage: func(m Inbound) { inbound <- m },
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "ABC123", c.RoomCode)

	waitState(t, c, StateOpen)
	assert.Equal(t, int32(1), opened.Load())
	assert.Equal(t, "token=tok", <-rs.queries)
	assert.Equal(t, "Bearer tok", (<-rs.headers).Get("Authorization"))

	select {
	case m := <-inbound:
		assert.Equal(t, TypeConnected, m.Type)
		assert.Equal(t, "ok", m.Message)
		assert.Equal(t, "7", m.UserID.String())
		var payload struct {
			RoomCode string `json:"room_code"`
		}
		require.NoError(t, m.Decode(&payload))
		assert.Equal(t, "ABC123", payload.RoomCode)
	case <-time.After(testTimeout):
		t.Fatal("no connected frame")
	}

	require.NoError(t, c.Send(map[string]string{"type": "chat", "message": "hi"}))
	select {
	case frame := <-rs.frames:
		assert.JSONEq(t, `{"type":"chat","message":"hi"}`, frame)
	case <-time.After(testTimeout):
		t.Fatal("server never received the frame")
	}

	require.NoError(t, c.Close())
	waitDone(t, c)
	assert.Equal(t, int32(1), closed.Load())
	assert.ErrorIs(t, c.Send(Chat("late")), ErrNotOpen)
	assert.NoError(t, c.Close(), "second close is a no-op")
}

func TestTokenOmittedFromQuery(t *testing.T) {
	rs := newRoomServer(t, nil)

	c, err := Connect(context.Background(), NewCredentials(rs.URL, "tok", false), "ABC123", Handlers{})
	require.NoError(t, err)
	waitState(t, c, StateOpen)

	assert.Empty(t, <-rs.queries)
	assert.Equal(t, "Bearer tok", (<-rs.headers).Get("Authorization"))
	require.NoError(t, c.Close())
	waitDone(t, c)
}

func TestSendWhileConnectingIsRejected(t *testing.T) {
	rs := newRoomServer(t, nil)
	release := make(chan struct{})
	blockingDial := func(ctx context.Context, cfg *websocket.Config) (*websocket.Conn, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return cfg.DialContext(ctx)
	}

	c, err := Connect(context.Background(), NewCredentials(rs.URL, "tok", true), "ABC123", Handlers{},
		WithDialer(blockingDial))
	require.NoError(t, err)
	assert.Equal(t, StateConnecting, c.State())
	assert.ErrorIs(t, c.Send(Chat("too early")), ErrNotOpen)

	close(release)
	waitState(t, c, StateOpen)
	require.NoError(t, c.Send(Chat("on time")))

	select {
	case frame := <-rs.frames:
		assert.Contains(t, frame, "on time")
	case <-time.After(testTimeout):
		t.Fatal("server never received the frame")
	}
	require.NoError(t, c.Close())
	waitDone(t, c)
	assert.Empty(t, rs.frames, "the early frame must never be transmitted")
}

func TestCloseDuringHandshake(t *testing.T) {
	var errs atomic.Int32
	hang := func(ctx context.Context, _ *websocket.Config) (*websocket.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	c, err := Connect(context.Background(), NewCredentials("http://127.0.0.1:1", "tok", true), "ABC123",
		Handlers{OnError: func(error) { errs.Add(1) }}, WithDialer(hang))
	require.NoError(t, err)

	require.NoError(t, c.Close())
	waitDone(t, c)
	assert.Zero(t, errs.Load(), "an aborted handshake is not an error")
}

func TestContextCancelClosesConnection(t *testing.T) {
	rs := newRoomServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	c, err := Connect(ctx, NewCredentials(rs.URL, "tok", true), "ABC123", Handlers{})
	require.NoError(t, err)
	waitState(t, c, StateOpen)

	cancel()
	waitDone(t, c)
}

func TestServerCloseIsNotAnError(t *testing.T) {
	rs := newRoomServer(t, func(*roomServer, *websocket.Conn) {})

	var closed, errs atomic.Int32
	c, err := Connect(context.Background(), NewCredentials(rs.URL, "tok", true), "ABC123", Handlers{
		OnError: func(error) { errs.Add(1) },
		OnClose: func() { closed.Add(1) },
	})
	require.NoError(t, err)

	waitDone(t, c)
	assert.Equal(t, int32(1), closed.Load())
	assert.Zero(t, errs.Load())
}

func TestDialFailureReportsError(t *testing.T) {
	rs := newRoomServer(t, nil)
	url := rs.URL
	rs.Close()

	errs := make(chan error, 1)
	c, err := Connect(context.Background(), NewCredentials(url, "tok", true), "ABC123", Handlers{
		OnError: func(err error) { errs <- err },
	})
	require.NoError(t, err)

	waitDone(t, c)
	select {
	case err := <-errs:
		assert.Error(t, err)
	default:
		t.Fatal("dial failure was not reported")
	}
}

func TestUndecodableFramesAreDropped(t *testing.T) {
	rs := newRoomServer(t, func(rs *roomServer, ws *websocket.Conn) {
		_ = websocket.Message.Send(ws, "not json")
		_ = websocket.Message.Send(ws, `{"message":"no type"}`)
		_ = websocket.Message.Send(ws, `{"type":"chat","user_id":3,"message":{"text":"hi"}}`)
		_ = websocket.Message.Send(ws, `{"type":"game_status","status":"playing","current_round":2,"current_phase":"night"}`)
		rs.readAll(ws)
	})

	logs := &syncWriter{buf: &bytes.Buffer{}}
	inbound := make(chan Inbound, 4)
	c, err := Connect(context.Background(), NewCredentials(rs.URL, "tok", true), "ABC123",
		Handlers{OnMessage: func(m Inbound) { inbound <- m }},
		WithLogger(zerolog.New(logs)))
	require.NoError(t, err)

	select {
	case m := <-inbound:
		assert.Equal(t, TypeChat, m.Type, "a chat frame with an object message is still delivered")
		assert.Equal(t, `{"text":"hi"}`, m.Message)
	case <-time.After(testTimeout):
		t.Fatal("chat frame was not delivered")
	}
	select {
	case m := <-inbound:
		assert.Equal(t, TypeGameStatus, m.Type)
		var status GameStatus
		require.NoError(t, m.Decode(&status))
		assert.Equal(t, GameStatus{Status: "playing", CurrentRound: 2, CurrentPhase: "night"}, status)
	case <-time.After(testTimeout):
		t.Fatal("valid frame was not delivered")
	}
	require.NoError(t, c.Close())
	waitDone(t, c)
	assert.Contains(t, logs.String(), "dropping undecodable frame")
}

func TestOutboundFrames(t *testing.T) {
	chat := Chat("hello")
	assert.Equal(t, TypeChat, chat.Type)
	assert.NotZero(t, chat.Timestamp)

	assert.Equal(t, SpeechMessage{Type: "speech", Content: "I am the seer"}, Speech("I am the seer"))
	assert.Equal(t, "vote", GameAction("vote", map[string]int{"target": 3}).Action)
	assert.Equal(t, "get_status", GetStatus()["type"])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "absent", StateAbsent.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.False(t, errors.Is(ErrNotOpen, context.Canceled))
}
