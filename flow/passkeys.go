package flow

import (
	"context"
	"strings"

	"github.com/gatehouse-dev/gatehouse/client"
	"github.com/gatehouse-dev/gatehouse/internal/util"
	"github.com/gatehouse-dev/gatehouse/passkey"
)

// RegisterPasskey runs the full registration ceremony: fetch creation
// options for the label, create the credential with the authenticator,
// submit the attestation. Nothing is persisted client-side between steps;
// a failed ceremony simply restarts from the top on the next call with
// freshly fetched options.
func (f *Flow) RegisterPasskey(ctx context.Context, label string) error {
	if err := ValidateLabel(label); err != nil {
		return err
	}
	if f.authn == nil {
		return passkey.ErrUnsupported
	}
	label = strings.TrimSpace(label)

	opts, err := f.api.PasskeyRegistrationOptions(ctx, label)
	if err != nil {
		return err
	}
	credential, err := f.authn.CreateCredential(ctx, opts.Options)
	if err != nil {
		f.log.Warn("passkey creation ceremony failed", "error", err)
		return err
	}
	if err := f.api.PasskeyRegistrationVerify(ctx, label, credential); err != nil {
		return err
	}
	f.log.Info("passkey registered", "label", label)
	return nil
}

// LoginWithPasskey runs the authentication ceremony for the named account.
// The challenge options and nonce live only for the duration of this call.
// On success the session transitions to authenticated.
func (f *Flow) LoginWithPasskey(ctx context.Context, username string) (*client.User, error) {
	if err := ValidateAccountUsername(username); err != nil {
		return nil, err
	}
	if f.authn == nil {
		return nil, passkey.ErrUnsupported
	}

	opts, err := f.api.PasskeyAuthenticationOptions(ctx, util.NormalizeCredential(username))
	if err != nil {
		return nil, err
	}
	assertion, err := f.authn.GetCredential(ctx, opts.Options)
	if err != nil {
		f.log.Warn("passkey assertion ceremony failed", "error", err)
		return nil, err
	}
	user, err := f.api.PasskeyAuthenticationVerify(ctx, opts.AuthNonce, assertion)
	if err != nil {
		return nil, err
	}

	f.session.SetAuthState(user)
	f.log.Info("passkey login succeeded", "username", user.Username)
	return user, nil
}

// Passkeys lists the registered credentials for the current user.
func (f *Flow) Passkeys(ctx context.Context) (client.PasskeyList, error) {
	return f.api.ListPasskeys(ctx)
}

// RenamePasskey relabels a credential. An empty or whitespace-only name is
// rejected client-side and never issues the network call.
func (f *Flow) RenamePasskey(ctx context.Context, id, label string) error {
	if err := ValidateLabel(label); err != nil {
		return err
	}
	return f.api.RenamePasskey(ctx, id, strings.TrimSpace(label))
}

// RemovePasskey deletes a credential. The explicit confirmation step is
// the caller's responsibility; this method performs the call.
func (f *Flow) RemovePasskey(ctx context.Context, id string) error {
	return f.api.DeletePasskey(ctx, id)
}
