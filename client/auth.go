package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Signup calls POST /auth/signup. The session is not affected: the server
// expects an explicit login afterwards.
func (c *Client) Signup(ctx context.Context, username, password string) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodPost, "/auth/signup", SignupRequest{
		Username: username,
		Password: password,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login calls POST /auth/login. The result either carries the full user
// (session established) or a two-factor challenge nonce.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, http.MethodPost, "/auth/login", LoginRequest{
		Username: username,
		Password: password,
	}, &result)
	return result, err
}

// LoginTwoFactor calls POST /auth/login/2fa, completing a pending
// two-factor challenge.
func (c *Client) LoginTwoFactor(ctx context.Context, loginNonce, token string) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodPost, "/auth/login/2fa", LoginTwoFactorRequest{
		LoginNonce: loginNonce,
		Token:      token,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout calls POST /auth/logout, ending the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// WhoAmI calls GET /user/whoami. It returns (nil, nil) when the server
// answers with the unauthenticated marker; that is a resolved state, not
// an error.
func (c *Client) WhoAmI(ctx context.Context) (*User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/user/whoami", nil, &raw); err != nil {
		return nil, err
	}

	var marker struct {
		IsUnauthenticated bool `json:"isUnauthenticated"`
	}
	if err := json.Unmarshal(raw, &marker); err != nil {
		return nil, fmt.Errorf("GET /user/whoami: decoding response: %w", err)
	}
	if marker.IsUnauthenticated {
		return nil, nil
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("GET /user/whoami: decoding user: %w", err)
	}
	return &user, nil
}
