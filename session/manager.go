package session

import (
	"context"
	"sync"

	"github.com/gatehouse-dev/gatehouse/client"
)

// Identity is the part of the API client the Manager depends on.
type Identity interface {
	WhoAmI(ctx context.Context) (*client.User, error)
}

// Manager is the single source of truth for authentication state. All
// mutation funnels through apply; reads are synchronous snapshots. No other
// component may cache user identity independently.
type Manager struct {
	mu       sync.RWMutex
	state    State
	identity Identity
	initOnce sync.Once
}

// NewManager creates a Manager in the Indeterminate phase.
func NewManager(identity Identity) *Manager {
	return &Manager{identity: identity}
}

// Init performs the one-time identity check against the server. Until it
// returns, snapshots report Indeterminate. A network or server failure
// resolves the session to Unauthenticated with Err set; repeated calls are
// no-ops.
func (m *Manager) Init(ctx context.Context) {
	m.initOnce.Do(func() {
		user, err := m.identity.WhoAmI(ctx)
		switch {
		case err != nil:
			m.apply(CheckFailed{Err: err})
		case user == nil:
			m.apply(CheckAnonymous{})
		default:
			m.apply(CheckSucceeded{User: user})
		}
	})
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// SetAuthState marks the session authenticated with the given user, or
// unauthenticated (clearing the cached user) when called with nil.
func (m *Manager) SetAuthState(user *client.User) {
	if user == nil {
		m.apply(LoggedOut{})
		return
	}
	m.apply(LoggedIn{User: user})
}

// SetTwoFactorEnabled flips the cached user's twoFactorEnabled flag.
// No-op while unauthenticated.
func (m *Manager) SetTwoFactorEnabled(enabled bool) {
	m.apply(TwoFactorChanged{Enabled: enabled})
}

func (m *Manager) apply(ev Event) {
	m.mu.Lock()
	m.state = Apply(m.state, ev)
	m.mu.Unlock()
}
