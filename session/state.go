// Package session holds the client-side authentication state: a pure
// transition function over auth events, a single-writer Manager around it,
// and the short-lived pending-login challenge used by the two-factor flow.
package session

import "github.com/gatehouse-dev/gatehouse/client"

// Phase is the resolution state of the session.
type Phase int

const (
	// Indeterminate means the initial identity check has not resolved.
	// Consumers must not render anything decisive.
	Indeterminate Phase = iota
	// Unauthenticated means the session resolved without a user.
	Unauthenticated
	// Authenticated means the last identity check or login returned a
	// user object.
	Authenticated
)

func (p Phase) String() string {
	switch p {
	case Indeterminate:
		return "indeterminate"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// State is a snapshot of the session. The zero value is Indeterminate.
type State struct {
	Phase Phase
	User  *client.User
	Err   error
}

// IsAuthenticated reports whether the session holds a user.
func (s State) IsAuthenticated() bool {
	return s.Phase == Authenticated && s.User != nil
}

// Event is an auth-state transition input for Apply.
type Event interface{ isSessionEvent() }

// CheckSucceeded: the identity check returned a user.
type CheckSucceeded struct{ User *client.User }

// CheckAnonymous: the identity check returned the unauthenticated marker.
type CheckAnonymous struct{}

// CheckFailed: the identity check failed at the network or server level.
// The session resolves unauthenticated with the error surfaced.
type CheckFailed struct{ Err error }

// LoggedIn: a login or verify call returned a user.
type LoggedIn struct{ User *client.User }

// LoggedOut: the session ended or the cached user must be cleared.
type LoggedOut struct{}

// TwoFactorChanged: the user's twoFactorEnabled flag flipped.
type TwoFactorChanged struct{ Enabled bool }

func (CheckSucceeded) isSessionEvent()   {}
func (CheckAnonymous) isSessionEvent()   {}
func (CheckFailed) isSessionEvent()      {}
func (LoggedIn) isSessionEvent()         {}
func (LoggedOut) isSessionEvent()        {}
func (TwoFactorChanged) isSessionEvent() {}

// Apply is the pure session transition function. The user is replaced
// wholesale on every transition; TwoFactorChanged is the single exception,
// mutating only that flag on a copy.
func Apply(s State, ev Event) State {
	switch ev := ev.(type) {
	case CheckSucceeded:
		if ev.User == nil {
			return State{Phase: Unauthenticated}
		}
		return State{Phase: Authenticated, User: ev.User}
	case CheckAnonymous:
		return State{Phase: Unauthenticated}
	case CheckFailed:
		return State{Phase: Unauthenticated, Err: ev.Err}
	case LoggedIn:
		if ev.User == nil {
			return State{Phase: Unauthenticated}
		}
		return State{Phase: Authenticated, User: ev.User}
	case LoggedOut:
		return State{Phase: Unauthenticated}
	case TwoFactorChanged:
		if !s.IsAuthenticated() {
			return s
		}
		user := *s.User
		user.TwoFactorEnabled = ev.Enabled
		return State{Phase: Authenticated, User: &user}
	default:
		return s
	}
}
