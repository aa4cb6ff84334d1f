// package rooms holds the client's view of game rooms: the last fetched listing, the room the
// user is in, and at most one live connection to a room.
package rooms

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"

	"github.com/gregriff/huddle/internal/netw"
	"github.com/gregriff/huddle/internal/netw/crud"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RoomResult is the outcome of creating or joining a room.
type RoomResult struct {
	Success bool
	Room    crud.Room
	Message string
}

// Manager is safe for concurrent use.
type Manager struct {
	client       *http.Client
	baseURL      string
	token        func() string
	tokenInQuery bool
	dial         netw.Dialer
	log          zerolog.Logger

	mu      sync.RWMutex
	rooms   []crud.Room
	current crud.Room
	conn    *netw.Conn
	gen     uint64 // bumped whenever conn is replaced, so stale handlers can tell

	onMessage func(netw.Inbound)
	onState   []func(netw.State)
}

type Option func(*Manager)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithTokenSource sets where the bearer token for REST calls comes from, typically the
// session manager's Token method.
func WithTokenSource(token func() string) Option {
	return func(m *Manager) { m.token = token }
}

// WithTokenInQuery controls whether room connections carry the token in the ?token= query
// parameter. The default is true. The bearer header is sent either way.
func WithTokenInQuery(on bool) Option {
	return func(m *Manager) { m.tokenInQuery = on }
}

func WithDialer(d netw.Dialer) Option {
	return func(m *Manager) { m.dial = d }
}

// New returns a manager that talks to the game server at baseURL. client must already
// resolve relative paths against baseURL (see crud.NewClient).
func New(client *http.Client, baseURL string, opts ...Option) *Manager {
	m := &Manager{
		client:       client,
		baseURL:      baseURL,
		tokenInQuery: true,
		log:          log.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With().Str("module", "rooms").Logger()
	return m
}

func (m *Manager) authed(ctx context.Context) context.Context {
	if m.token == nil {
		return ctx
	}
	return crud.WithToken(ctx, m.token())
}

// FetchRooms replaces the room listing. On failure the error is logged and the previous
// listing is kept.
func (m *Manager) FetchRooms(ctx context.Context) {
	m.FetchRoomsByStatus(ctx, "")
}

// FetchRoomsByStatus is FetchRooms restricted to rooms in the given status, such as "waiting".
func (m *Manager) FetchRoomsByStatus(ctx context.Context, status string) {
	rooms, err := crud.ListRooms(m.authed(ctx), m.client, status)
	if err != nil {
		m.log.Error().Err(err).Str("status", status).Msg("error fetching rooms")
		return
	}

	m.mu.Lock()
	m.rooms = rooms
	m.mu.Unlock()
	m.log.Debug().Int("count", len(rooms)).Msg("fetched rooms")
}

// CreateRoom creates a room from data and makes it the current room.
func (m *Manager) CreateRoom(ctx context.Context, data any) RoomResult {
	room, err := crud.CreateRoom(m.authed(ctx), m.client, data)
	if err != nil {
		m.log.Debug().Err(err).Msg("create room rejected")
		return RoomResult{Message: crud.DetailOr(err, "failed to create room")}
	}
	m.setCurrent(room)
	return RoomResult{Success: true, Room: room}
}

// JoinRoom joins the room with the given code and makes it the current room.
func (m *Manager) JoinRoom(ctx context.Context, roomCode string) RoomResult {
	room, err := crud.JoinRoom(m.authed(ctx), m.client, roomCode)
	if err != nil {
		m.log.Debug().Err(err).Str("room", roomCode).Msg("join room rejected")
		return RoomResult{Message: crud.DetailOr(err, "failed to join room")}
	}
	m.setCurrent(room)
	return RoomResult{Success: true, Room: room}
}

// GetRoom fetches a room and makes it the current room. It returns nil on failure, after
// logging the error; the current room is then left as it was.
func (m *Manager) GetRoom(ctx context.Context, roomCode string) crud.Room {
	room, err := crud.GetRoom(m.authed(ctx), m.client, roomCode)
	if err != nil {
		m.log.Error().Err(err).Str("room", roomCode).Msg("error fetching room")
		return nil
	}
	m.setCurrent(room)
	return room
}

func (m *Manager) setCurrent(room crud.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = room
}

// Rooms returns the last fetched listing, in server order.
func (m *Manager) Rooms() []crud.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.rooms)
}

// CurrentRoom returns the room last created, joined or fetched, or nil.
func (m *Manager) CurrentRoom() crud.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// ConnectWebSocket starts opening a connection to roomCode authenticated with token, and
// returns it while it is still connecting. Any existing connection is closed first.
// Cancelling ctx closes the connection.
func (m *Manager) ConnectWebSocket(ctx context.Context, roomCode, token string) (*netw.Conn, error) {
	m.mu.Lock()
	if old := m.conn; old != nil {
		m.log.Info().Str("room", old.RoomCode).Msg("closing previous room connection")
		_ = old.Close()
		m.conn = nil
	}
	m.gen++
	gen := m.gen

	opts := []netw.Option{netw.WithLogger(m.log)}
	if m.dial != nil {
		opts = append(opts, netw.WithDialer(m.dial))
	}
	// lifecycle handlers hold off until observers have seen StateConnecting
	announced := make(chan struct{})
	defer close(announced)

	creds := netw.NewCredentials(m.baseURL, token, m.tokenInQuery)
	conn, err := netw.Connect(ctx, creds, roomCode, m.handlers(gen, roomCode, announced), opts...)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.conn = conn
	m.mu.Unlock()

	m.log.Debug().Str("room", roomCode).Msg("connecting to room")
	m.notifyState(gen, netw.StateConnecting)
	return conn, nil
}

// handlers log the lifecycle of one connection and pass its events on to observers for as
// long as it is the manager's current connection. Nothing is passed on before announced is
// closed.
func (m *Manager) handlers(gen uint64, roomCode string, announced <-chan struct{}) netw.Handlers {
	l := m.log.With().Str("room", roomCode).Logger()
	return netw.Handlers{
		OnOpen: func() {
			<-announced
			l.Info().Msg("room connection established")
			m.notifyState(gen, netw.StateOpen)
		},
		OnError: func(err error) {
			<-announced
			l.Error().Err(err).Msg("room connection error")
			m.notifyState(gen, netw.StateClosing)
		},
		OnClose: func() {
			<-announced
			l.Info().Msg("room connection closed")
			m.notifyState(gen, netw.StateClosed)
		},
		OnMessage: func(msg netw.Inbound) {
			m.mu.RLock()
			fn, current := m.onMessage, m.gen == gen
			m.mu.RUnlock()
			if fn != nil && current {
				fn(msg)
			}
		},
	}
}

// DisconnectWebSocket closes and forgets the current connection. It is a no-op if there is none.
func (m *Manager) DisconnectWebSocket() {
	m.mu.Lock()
	conn := m.conn
	if conn == nil {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	_ = conn.Close()
	m.log.Debug().Str("room", conn.RoomCode).Msg("disconnected from room")
	m.notifyState(gen, netw.StateAbsent)
}

// SendMessage writes message as JSON to the current connection. It is dropped without
// error unless the connection exists and is open.
func (m *Manager) SendMessage(message any) {
	conn := m.Connection()
	if conn == nil {
		m.log.Debug().Msg("no room connection, message dropped")
		return
	}
	if err := conn.Send(message); err != nil {
		if errors.Is(err, netw.ErrNotOpen) {
			m.log.Debug().Stringer("state", conn.State()).Msg("room connection not open, message dropped")
			return
		}
		m.log.Error().Err(err).Msg("error sending message")
	}
}

// Connection returns the current connection handle, or nil.
func (m *Manager) Connection() *netw.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn
}

func (m *Manager) ConnectionState() netw.State {
	conn := m.Connection()
	if conn == nil {
		return netw.StateAbsent
	}
	return conn.State()
}

// OnMessage sets the callback for frames received on the current connection. It runs on the
// connection's read goroutine.
func (m *Manager) OnMessage(fn func(netw.Inbound)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onMessage = fn
}

// OnStateChange registers fn to be called when the current connection changes state.
func (m *Manager) OnStateChange(fn func(netw.State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onState = append(m.onState, fn)
}

func (m *Manager) notifyState(gen uint64, s netw.State) {
	m.mu.RLock()
	if m.gen != gen {
		m.mu.RUnlock()
		return
	}
	observers := m.onState
	m.mu.RUnlock()

	for _, fn := range observers {
		fn(s)
	}
}

// Close drops the current connection.
func (m *Manager) Close() {
	m.DisconnectWebSocket()
}
