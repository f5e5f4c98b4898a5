// Package auth tracks who the user is: a small state machine over the API
// token, moving between loading, authenticated, unauthenticated, and guest.
package auth

import (
	"context"
	"sync"

	"qaproof/internal/api"
	"qaproof/internal/kv"
	"qaproof/internal/logging"
	"qaproof/internal/qa"
)

// State is the authentication state.
type State string

const (
	// StateLoading covers startup while a persisted token is being
	// validated. No auth-dependent view should render yet.
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
	// StateGuest is unauthenticated with local-only editing enabled.
	StateGuest State = "guest"
)

// Manager owns the auth state and the persisted token. It is safe for
// concurrent use.
type Manager struct {
	client *api.Client
	store  kv.Store

	mu    sync.RWMutex
	state State
	user  *qa.User
}

// NewManager starts in StateLoading; call Bootstrap to resolve it.
func NewManager(client *api.Client, store kv.Store) *Manager {
	return &Manager{client: client, store: store, state: StateLoading}
}

// Bootstrap restores a persisted token and validates it against the server.
// A missing token, or one the server rejects, resolves silently to
// StateUnauthenticated; an expired token on startup is normal, not an error
// the user needs to see.
func (m *Manager) Bootstrap(ctx context.Context) State {
	raw, err := m.store.Get(kv.KeyAuthToken)
	if err != nil {
		if err != kv.ErrNotFound {
			logging.AuthError("read persisted token: %v", err)
		}
		return m.setState(StateUnauthenticated, nil)
	}

	m.client.SetToken(string(raw))
	user, err := m.client.Me(ctx)
	if err != nil {
		logging.Auth("persisted token rejected, clearing: %v", err)
		m.client.SetToken("")
		if derr := m.store.Delete(kv.KeyAuthToken); derr != nil {
			logging.AuthError("clear persisted token: %v", derr)
		}
		return m.setState(StateUnauthenticated, nil)
	}
	logging.Auth("restored session for %s", user.Username)
	return m.setState(StateAuthenticated, user)
}

// Login authenticates and persists the token on success.
func (m *Manager) Login(ctx context.Context, username, password string) (*qa.User, error) {
	res, err := m.client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(kv.KeyAuthToken, []byte(res.AccessToken)); err != nil {
		// In-memory auth still works for this run.
		logging.AuthError("persist token: %v", err)
	}
	logging.Auth("logged in as %s", res.User.Username)
	m.setState(StateAuthenticated, &res.User)
	return &res.User, nil
}

// Logout drops the session locally regardless of whether the server call
// succeeds.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.client.Logout(ctx); err != nil {
		logging.Auth("server logout failed, clearing locally: %v", err)
	}
	if err := m.store.Delete(kv.KeyAuthToken); err != nil {
		logging.AuthError("remove persisted token: %v", err)
	}
	m.setState(StateUnauthenticated, nil)
}

// EnterGuest switches to guest mode. Only valid when no user is signed in.
func (m *Manager) EnterGuest() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateUnauthenticated {
		return false
	}
	m.state = StateGuest
	return true
}

// ExitGuest returns from guest mode to unauthenticated.
func (m *Manager) ExitGuest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateGuest {
		m.state = StateUnauthenticated
	}
}

// State returns the current auth state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// User returns the signed-in user, nil otherwise.
func (m *Manager) User() *qa.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// IsAdmin reports whether the signed-in user has the admin role.
func (m *Manager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil && m.user.Role == "admin"
}

func (m *Manager) setState(s State, u *qa.User) State {
	m.mu.Lock()
	m.state = s
	m.user = u
	m.mu.Unlock()
	return s
}
