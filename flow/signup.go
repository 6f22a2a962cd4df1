package flow

import (
	"context"

	"github.com/gatehouse-dev/gatehouse/client"
	"github.com/gatehouse-dev/gatehouse/internal/util"
)

// Signup creates an account. The session is left untouched since the server
// expects an explicit login afterwards, so callers navigate to the login
// screen on success.
func (f *Flow) Signup(ctx context.Context, username, password string) (*client.User, error) {
	if err := ValidateAccountUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	user, err := f.api.Signup(ctx, util.NormalizeCredential(username), password)
	if err != nil {
		f.log.Warn("signup failed", "username", username, "error", err)
		return nil, err
	}
	f.log.Info("signup succeeded", "username", user.Username)
	return user, nil
}
