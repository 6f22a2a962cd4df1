// Package flow orchestrates the authentication flows: password login with
// an optional two-factor challenge, signup, TOTP enrollment and disable,
// and the passkey ceremonies. Flows validate input client-side, call the
// API, and apply the resulting session transitions. The UI layers only
// render state and relay intent.
package flow

import (
	"errors"
	"log/slog"

	"github.com/gatehouse-dev/gatehouse/client"
	"github.com/gatehouse-dev/gatehouse/passkey"
	"github.com/gatehouse-dev/gatehouse/session"
)

var (
	// ErrNoPendingLogin: two-factor verification attempted without a
	// pending challenge. A hard precondition failure; callers redirect
	// to password login instead of displaying it.
	ErrNoPendingLogin = errors.New("flow: no pending login challenge")
	// ErrTwoFactorNotEnabled: disable requested while the session user
	// does not have two-factor enabled. Callers redirect away.
	ErrTwoFactorNotEnabled = errors.New("flow: two-factor authentication is not enabled")
)

// Flow wires the API client, session manager, and authenticator together.
type Flow struct {
	api     *client.Client
	session *session.Manager
	authn   passkey.Authenticator
	pending session.PendingLogin
	log     *slog.Logger
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the structured logger for flow events.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		f.log = logger
	}
}

// New creates a Flow. The authenticator may be nil when passkey flows are
// not used (they return ErrUnsupported in that case).
func New(api *client.Client, sess *session.Manager, authn passkey.Authenticator, opts ...Option) *Flow {
	f := &Flow{api: api, session: sess, authn: authn}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = slog.New(slog.DiscardHandler)
	}
	return f
}

// Session returns the session manager the flows mutate.
func (f *Flow) Session() *session.Manager {
	return f.session
}

// Pending returns the pending two-factor login challenge.
func (f *Flow) Pending() *session.PendingLogin {
	return &f.pending
}

// Teardown destroys transient challenge state. UIs call it on unload so a
// stale challenge cannot be reused across restarts.
func (f *Flow) Teardown() {
	f.pending.Clear()
}
