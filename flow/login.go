package flow

import (
	"context"
	"strings"

	"github.com/gatehouse-dev/gatehouse/client"
	"github.com/gatehouse-dev/gatehouse/internal/util"
)

// LoginOutcome is the result of a password login attempt.
type LoginOutcome struct {
	// User is set when the session is fully established.
	User *client.User
	// TwoFactorRequired is set when the password was accepted but a
	// second factor must be verified. The challenge nonce is held by
	// Pending().
	TwoFactorRequired bool
}

// Login performs the password login flow. On full success the session
// transitions to authenticated; on a two-factor challenge the nonce is
// recorded and the session stays unauthenticated. On failure the session
// is untouched and the attempt may simply be repeated.
func (f *Flow) Login(ctx context.Context, username, password string) (LoginOutcome, error) {
	if err := ValidateLoginUsername(username); err != nil {
		return LoginOutcome{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return LoginOutcome{}, err
	}

	result, err := f.api.Login(ctx, util.NormalizeCredential(username), password)
	if err != nil {
		f.log.Warn("login failed", "username", username, "error", err)
		return LoginOutcome{}, err
	}

	if result.RequiresTwoFactor() {
		f.pending.Begin(result.LoginNonce)
		f.log.Info("login requires second factor", "username", username)
		return LoginOutcome{TwoFactorRequired: true}, nil
	}

	f.session.SetAuthState(result.User)
	f.log.Info("login succeeded", "username", result.User.Username)
	return LoginOutcome{User: result.User}, nil
}

// VerifyLogin completes a pending two-factor challenge. Calling it without
// a pending challenge is a precondition failure (ErrNoPendingLogin), not a
// retryable error. A rejected code preserves the challenge so the same
// nonce can be retried.
func (f *Flow) VerifyLogin(ctx context.Context, code string) (*client.User, error) {
	nonce, ok := f.pending.Peek()
	if !ok {
		return nil, ErrNoPendingLogin
	}
	code = strings.TrimSpace(code)
	if err := ValidateCode(code); err != nil {
		return nil, err
	}

	user, err := f.api.LoginTwoFactor(ctx, nonce, code)
	if err != nil {
		f.log.Warn("two-factor verification failed", "error", err)
		return nil, err
	}

	f.pending.Clear()
	f.session.SetAuthState(user)
	f.log.Info("two-factor verification succeeded", "username", user.Username)
	return user, nil
}

// CancelLogin abandons a pending two-factor challenge, e.g. on explicit
// back-to-login navigation.
func (f *Flow) CancelLogin() {
	f.pending.Clear()
}

// Logout ends the server session and clears the cached user.
func (f *Flow) Logout(ctx context.Context) error {
	if err := f.api.Logout(ctx); err != nil {
		return err
	}
	f.session.SetAuthState(nil)
	f.pending.Clear()
	f.log.Info("logged out")
	return nil
}
