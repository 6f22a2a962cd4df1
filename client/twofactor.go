package client

import (
	"context"
	"net/http"
)

// SetupTwoFactor calls POST /auth/2fa/setup, beginning TOTP enrollment.
// The returned otpauth URI embeds the shared secret.
func (c *Client) SetupTwoFactor(ctx context.Context) (SetupTwoFactorResponse, error) {
	var resp SetupTwoFactorResponse
	err := c.do(ctx, http.MethodPost, "/auth/2fa/setup", nil, &resp)
	return resp, err
}

// VerifyTwoFactor calls POST /auth/2fa/verify, confirming enrollment with a
// code from the authenticator app. Only after this succeeds is two-factor
// enforcement active on the account.
func (c *Client) VerifyTwoFactor(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/2fa/verify", TwoFactorCodeRequest{Token: token}, nil)
}

// DisableTwoFactor calls POST /auth/2fa/disable with a confirmation code.
func (c *Client) DisableTwoFactor(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/2fa/disable", TwoFactorCodeRequest{Token: token}, nil)
}
