package netw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/websocket"
)

// State is the lifecycle state of a room connection.
type State int32

const (
	// StateAbsent means there is no connection. A Conn never reports it; owners use it
	// once they have dropped their handle.
	StateAbsent State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrNotOpen is returned by Send when the connection is not open. Nothing is queued.
var ErrNotOpen = errors.New("connection is not open")

// Handlers observe a connection. All of them run on the connection's own goroutine, so they
// must not block for long. Any of them may be nil.
type Handlers struct {
	OnOpen  func()
	OnError func(error)
	// OnClose runs exactly once, after the transport is released, whether or not the
	// connection ever opened.
	OnClose   func()
	OnMessage func(Inbound)
}

// Conn is a single live connection to one room, authenticated with one token.
// It is opened asynchronously: Connect returns while the handshake is still in flight.
// There is no reconnection; once closed, a Conn stays closed.
type Conn struct {
	ID       string
	RoomCode string

	state    atomic.Int32
	mu       sync.Mutex // guards ws and state transitions
	ws       *websocket.Conn
	cancel   context.CancelFunc
	done     chan struct{}
	handlers Handlers
	dial     Dialer
	log      zerolog.Logger
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger a connection writes to.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Conn) { c.log = l }
}

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Conn) {
		if d != nil {
			c.dial = d
		}
	}
}

// Connect starts opening a connection to roomCode and returns its handle in StateConnecting.
// Cancelling ctx closes the connection. The returned error is only for an unusable location;
// handshake failures are reported to h.OnError.
func Connect(ctx context.Context, creds *credentials, roomCode string, h Handlers, opts ...Option) (*Conn, error) {
	cfg, err := newWebsocketConfig(creds, roomCode)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		ID:       uuid.NewString(),
		RoomCode: roomCode,
		done:     make(chan struct{}),
		handlers: h,
		dial:     dialWebsocket,
		log:      log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("conn", c.ID).Str("room", roomCode).Logger()
	c.state.Store(int32(StateConnecting))

	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx, cfg)
	return c, nil
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Done is closed once the connection has reached StateClosed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Send serializes v to JSON and writes it as a single text frame.
// It returns ErrNotOpen unless the connection is open.
func (c *Conn) Send(v any) error {
	c.mu.Lock()
	ws, state := c.ws, c.State()
	c.mu.Unlock()
	if state != StateOpen || ws == nil {
		return ErrNotOpen
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshaling before writing to websocket: %w", err)
	}
	if err := websocket.Message.Send(ws, string(data)); err != nil {
		return fmt.Errorf("error writing to websocket: %w", err)
	}
	c.log.Debug().Int("bytes", len(data)).Msg("wrote to ws")
	return nil
}

// Close starts closing the connection and aborts an in-flight handshake. It does not wait
// for StateClosed; use Done for that. Closing more than once is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	state := c.State()
	if state == StateClosing || state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.setState(StateClosing)
	ws := c.ws
	c.mu.Unlock()

	c.cancel()
	if ws == nil {
		return nil
	}
	return ws.Close() // unblocks the reader
}

func (c *Conn) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old != s {
		c.log.Debug().Stringer("from", old).Stringer("to", s).Msg("connection state changed")
	}
}

// run dials, then reads until the connection ends. It owns the transition to StateClosed.
func (c *Conn) run(ctx context.Context, cfg *websocket.Config) {
	defer func() {
		c.cancel()
		c.setState(StateClosed)
		close(c.done)
		if c.handlers.OnClose != nil {
			c.handlers.OnClose()
		}
	}()

	ws, err := c.dial(ctx, cfg)
	if err != nil {
		c.fail(err)
		return
	}

	c.mu.Lock()
	if c.State() != StateConnecting { // closed during the handshake
		c.mu.Unlock()
		_ = ws.Close()
		return
	}
	c.ws = ws
	c.setState(StateOpen)
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if c.handlers.OnOpen != nil {
		c.handlers.OnOpen()
	}
	c.readLoop(ws)
}

// readLoop delivers inbound frames until the websocket is closed or fails.
func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		var data []byte
		if err := websocket.Message.Receive(ws, &data); err != nil {
			if errors.Is(err, io.EOF) && c.State() == StateOpen {
				c.log.Debug().Msg("connection closed by server")
				c.mu.Lock()
				c.setState(StateClosing)
				c.mu.Unlock()
				_ = ws.Close()
				return
			}
			c.fail(err)
			_ = ws.Close()
			return
		}

		msg, err := decodeInbound(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping undecodable frame")
			continue
		}
		if c.handlers.OnMessage != nil {
			c.handlers.OnMessage(msg)
		}
	}
}

// fail moves the connection to closing and reports err, unless the failure is the
// result of a Close already in progress.
func (c *Conn) fail(err error) {
	c.mu.Lock()
	closing := c.State() == StateClosing
	c.setState(StateClosing)
	c.mu.Unlock()

	if closing {
		return
	}
	if c.handlers.OnError != nil {
		c.handlers.OnError(err)
	}
}
