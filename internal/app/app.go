// package app wires the session and room managers together from configuration. It is the one
// place that knows both exist: the room manager only sees the session through its token.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gregriff/huddle/internal/netw"
	"github.com/gregriff/huddle/internal/netw/crud"
	"github.com/gregriff/huddle/internal/rooms"
	"github.com/gregriff/huddle/internal/session"
	"github.com/gregriff/huddle/internal/storage"
	"github.com/rs/zerolog"
)

// ErrNotAuthenticated is returned by operations that need a logged-in session.
var ErrNotAuthenticated = errors.New("not logged in")

type Config struct {
	ServerOrigin   string
	Timeout        time.Duration
	TokenInQuery   bool
	StorageBackend string
	StoragePath    string
	Logger         zerolog.Logger
}

// App owns everything built from a Config. Close releases it.
type App struct {
	Session *session.Manager
	Rooms   *rooms.Manager

	client *http.Client
	store  storage.Store
}

// New opens token storage and builds both managers. If a token was persisted, the session
// starts fetching its user in the background.
func New(ctx context.Context, cfg Config) (*App, error) {
	client, err := crud.NewClient(cfg.ServerOrigin, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid server origin: %w", err)
	}
	store, err := storage.Open(cfg.StorageBackend, cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("error opening token storage: %w", err)
	}
	cfg.Logger.Debug().
		Str("server", cfg.ServerOrigin).
		Str("storage", cfg.StorageBackend).
		Msg("starting")

	sess := session.New(ctx, client, store, session.WithLogger(cfg.Logger))
	rms := rooms.New(client, cfg.ServerOrigin,
		rooms.WithLogger(cfg.Logger),
		rooms.WithTokenSource(sess.Token),
		rooms.WithTokenInQuery(cfg.TokenInQuery),
	)
	return &App{Session: sess, Rooms: rms, client: client, store: store}, nil
}

// ConnectRoom opens the room connection with the session's token.
func (a *App) ConnectRoom(ctx context.Context, roomCode string) (*netw.Conn, error) {
	token := a.Session.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	return a.Rooms.ConnectWebSocket(ctx, roomCode, token)
}

// Close drops the room connection, stops background session work and closes storage.
func (a *App) Close() error {
	a.Rooms.Close()
	a.Session.Close()
	a.client.CloseIdleConnections()
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("error closing token storage: %w", err)
	}
	return nil
}

// Run builds an App from cfg, waits for the restored session to settle, and hands it to fn.
// The App is closed when fn returns.
func Run(ctx context.Context, cfg Config, fn func(context.Context, *App) error) (err error) {
	a, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	a.Session.Wait()
	return fn(ctx, a)
}
