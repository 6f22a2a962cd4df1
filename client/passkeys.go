package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-webauthn/webauthn/protocol"
)

// PasskeyRegistrationOptions calls POST /auth/passkey/registration/options,
// starting a registration ceremony for the authenticated user.
func (c *Client) PasskeyRegistrationOptions(ctx context.Context, label string) (RegistrationOptionsResponse, error) {
	var resp RegistrationOptionsResponse
	err := c.do(ctx, http.MethodPost, "/auth/passkey/registration/options",
		RegistrationOptionsRequest{Label: label}, &resp)
	return resp, err
}

// PasskeyRegistrationVerify calls POST /auth/passkey/registration/verify
// with the attestation produced by the authenticator.
func (c *Client) PasskeyRegistrationVerify(ctx context.Context, label string, credential *protocol.CredentialCreationResponse) error {
	return c.do(ctx, http.MethodPost, "/auth/passkey/registration/verify",
		RegistrationVerifyRequest{Label: label, Credential: credential}, nil)
}

// PasskeyAuthenticationOptions calls POST /auth/passkey/authentication/options,
// starting an authentication ceremony for the named account.
func (c *Client) PasskeyAuthenticationOptions(ctx context.Context, username string) (AuthenticationOptionsResponse, error) {
	var resp AuthenticationOptionsResponse
	err := c.do(ctx, http.MethodPost, "/auth/passkey/authentication/options",
		AuthenticationOptionsRequest{Username: username}, &resp)
	return resp, err
}

// PasskeyAuthenticationVerify calls POST /auth/passkey/authentication/verify
// with the assertion produced by the authenticator. On success the server
// establishes a session and returns the full user.
func (c *Client) PasskeyAuthenticationVerify(ctx context.Context, authNonce string, credential *protocol.CredentialAssertionResponse) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodPost, "/auth/passkey/authentication/verify",
		AuthenticationVerifyRequest{AuthNonce: authNonce, Credential: credential}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListPasskeys calls GET /auth/passkey/me/passkeys.
func (c *Client) ListPasskeys(ctx context.Context) (PasskeyList, error) {
	var list PasskeyList
	err := c.do(ctx, http.MethodGet, "/auth/passkey/me/passkeys", nil, &list)
	return list, err
}

// RenamePasskey calls PATCH /auth/passkey/me/passkeys/{id}.
func (c *Client) RenamePasskey(ctx context.Context, id, label string) error {
	return c.do(ctx, http.MethodPatch, "/auth/passkey/me/passkeys/"+url.PathEscape(id),
		RenamePasskeyRequest{Label: label}, nil)
}

// DeletePasskey calls DELETE /auth/passkey/me/passkeys/{id}.
func (c *Client) DeletePasskey(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/auth/passkey/me/passkeys/"+url.PathEscape(id), nil, nil)
}
