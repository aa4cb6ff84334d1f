// package session holds the client's authentication state: the access token and the record of
// the user it belongs to. The token is kept in durable storage so a session survives restarts.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gregriff/huddle/internal/netw/crud"
	"github.com/gregriff/huddle/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TokenKey is the storage key the access token is persisted under.
const TokenKey = "token"

// Result is the outcome of a user-facing operation. Message is meant to be shown as-is.
type Result struct {
	Success bool
	Message string
}

// Snapshot is a copy of the session state, handed to observers.
type Snapshot struct {
	Token         string
	User          crud.User
	Authenticated bool
}

// Manager owns the session. It is safe for concurrent use.
type Manager struct {
	client *http.Client
	store  storage.Store
	log    zerolog.Logger

	mu        sync.RWMutex
	token     string
	user      crud.User
	observers []func(Snapshot)

	// background work started by New
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Manager)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// New restores the persisted token, if any, and starts fetching the user it belongs to in the
// background. Failures of that fetch are logged only. Use Wait to join it and Close to abandon it.
func New(ctx context.Context, client *http.Client, store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		client: client,
		store:  store,
		log:    log.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With().Str("module", "session").Logger()
	m.ctx, m.cancel = context.WithCancel(ctx)

	token, err := store.Get(TokenKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		m.log.Error().Err(err).Msg("error reading persisted token")
	}
	m.token = token

	if token != "" {
		m.log.Debug().Msg("restored session token")
		m.wg.Go(func() {
			m.FetchUserInfo(m.ctx)
		})
	}
	return m
}

// Login exchanges credentials for a token, persists it, then fetches the current user.
// A failed user fetch does not fail the login.
func (m *Manager) Login(ctx context.Context, username, password string) Result {
	token, err := crud.Login(ctx, m.client, username, password)
	if err != nil {
		m.log.Debug().Err(err).Str("username", username).Msg("login rejected")
		return Result{Message: crud.DetailOr(err, "login failed")}
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	// the in-memory token still authenticates this process
	if err := m.store.Set(TokenKey, token); err != nil {
		m.log.Error().Err(err).Msg("error persisting token")
	}
	m.notify()

	m.FetchUserInfo(ctx)
	return Result{Success: true}
}

// Register creates an account. It does not log in.
func (m *Manager) Register(ctx context.Context, userData any) Result {
	if err := crud.Register(ctx, m.client, userData); err != nil {
		m.log.Debug().Err(err).Msg("registration rejected")
		return Result{Message: crud.DetailOr(err, "registration failed")}
	}
	return Result{Success: true, Message: "registration succeeded, please log in"}
}

// FetchUserInfo refreshes the current user. On failure the error is logged and the previous
// user is kept. A response for a token that has since been replaced is discarded.
func (m *Manager) FetchUserInfo(ctx context.Context) {
	token := m.Token()
	user, err := crud.Me(crud.WithToken(ctx, token), m.client)
	if err != nil {
		m.log.Error().Err(err).Msg("error fetching user info")
		return
	}

	m.mu.Lock()
	if m.token != token {
		m.mu.Unlock()
		m.log.Debug().Msg("session changed during user fetch, discarding result")
		return
	}
	m.user = user
	m.mu.Unlock()
	m.notify()
}

// UpdateProfile changes the current user's nickname and/or avatar and caches the
// server's updated record.
func (m *Manager) UpdateProfile(ctx context.Context, update crud.ProfileUpdate) Result {
	token := m.Token()
	user, err := crud.UpdateMe(crud.WithToken(ctx, token), m.client, update)
	if err != nil {
		m.log.Debug().Err(err).Msg("profile update rejected")
		return Result{Message: crud.DetailOr(err, "failed to update profile")}
	}

	m.mu.Lock()
	changed := m.token == token
	if changed {
		m.user = user
	}
	m.mu.Unlock()
	if changed {
		m.notify()
	}
	return Result{Success: true}
}

// Logout forgets the token and user locally. The server is not contacted.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.mu.Unlock()

	if err := m.store.Remove(TokenKey); err != nil {
		m.log.Error().Err(err).Msg("error removing persisted token")
	}
	m.notify()
}

func (m *Manager) IsAuthenticated() bool {
	return m.Token() != ""
}

func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// User returns the current user record, or nil if it is unknown.
func (m *Manager) User() crud.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{Token: m.token, User: m.user, Authenticated: m.token != ""}
}

// OnChange registers fn to be called with the new state after every change to the token or
// user. fn runs on the goroutine that made the change.
func (m *Manager) OnChange(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Manager) notify() {
	m.mu.RLock()
	snap := Snapshot{Token: m.token, User: m.user, Authenticated: m.token != ""}
	observers := m.observers
	m.mu.RUnlock()

	for _, fn := range observers {
		fn(snap)
	}
}

// Wait blocks until background work started by New is finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close cancels background work and waits for it to return. The persisted token is kept.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}
