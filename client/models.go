package client

import (
	"encoding/json"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
)

// User is the authenticated account profile as returned by the server.
type User struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

// UnmarshalJSON accepts both the "id" and legacy "_id" field names; the
// server is not consistent between the login and whoami payloads.
func (u *User) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID               string `json:"id"`
		LegacyID         string `json:"_id"`
		Username         string `json:"username"`
		TwoFactorEnabled bool   `json:"twoFactorEnabled"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	id := wire.ID
	if id == "" {
		id = wire.LegacyID
	}
	*u = User{
		ID:               id,
		Username:         wire.Username,
		TwoFactorEnabled: wire.TwoFactorEnabled,
	}
	return nil
}

// SignupRequest is the JSON body for POST /auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the union returned by POST /auth/login: either a full user
// object, or a two-factor challenge with a login nonce.
type LoginResult struct {
	User       *User
	LoginNonce string
}

// RequiresTwoFactor reports whether the password was accepted but a second
// factor is still required.
func (r LoginResult) RequiresTwoFactor() bool {
	return r.User == nil && r.LoginNonce != ""
}

func (r *LoginResult) UnmarshalJSON(data []byte) error {
	var wire struct {
		RequiresTwoFactor bool   `json:"requiresTwoFactor"`
		LoginNonce        string `json:"loginNonce"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.RequiresTwoFactor {
		*r = LoginResult{LoginNonce: wire.LoginNonce}
		return nil
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return err
	}
	*r = LoginResult{User: &user}
	return nil
}

// LoginTwoFactorRequest is the JSON body for POST /auth/login/2fa.
type LoginTwoFactorRequest struct {
	LoginNonce string `json:"loginNonce"`
	Token      string `json:"token"`
}

// SetupTwoFactorResponse is returned from POST /auth/2fa/setup.
type SetupTwoFactorResponse struct {
	OtpauthURI string `json:"otpauthUri"`
}

// TwoFactorCodeRequest is the JSON body for POST /auth/2fa/verify and
// POST /auth/2fa/disable.
type TwoFactorCodeRequest struct {
	Token string `json:"token"`
}

// RegistrationOptionsRequest is the JSON body for
// POST /auth/passkey/registration/options.
type RegistrationOptionsRequest struct {
	Label string `json:"label"`
}

// RegistrationOptionsResponse is returned from
// POST /auth/passkey/registration/options.
type RegistrationOptionsResponse struct {
	Options *protocol.CredentialCreation `json:"options"`
	Label   string                       `json:"label"`
}

// RegistrationVerifyRequest is the JSON body for
// POST /auth/passkey/registration/verify.
type RegistrationVerifyRequest struct {
	Label      string                               `json:"label"`
	Credential *protocol.CredentialCreationResponse `json:"credential"`
}

// AuthenticationOptionsRequest is the JSON body for
// POST /auth/passkey/authentication/options.
type AuthenticationOptionsRequest struct {
	Username string `json:"username"`
}

// AuthenticationOptionsResponse is returned from
// POST /auth/passkey/authentication/options.
type AuthenticationOptionsResponse struct {
	Options   *protocol.CredentialAssertion `json:"options"`
	AuthNonce string                        `json:"authNonce"`
}

// AuthenticationVerifyRequest is the JSON body for
// POST /auth/passkey/authentication/verify.
type AuthenticationVerifyRequest struct {
	AuthNonce  string                                `json:"authNonce"`
	Credential *protocol.CredentialAssertionResponse `json:"credential"`
}

// Passkey is a registered credential record. The client only ever sees
// descriptive metadata, never key material.
type Passkey struct {
	ID           string     `json:"id"`
	CredentialID string     `json:"credentialId"`
	Label        string     `json:"label"`
	DeviceType   string     `json:"deviceType"`
	BackedUp     bool       `json:"backedUp"`
	Transports   []string   `json:"transports"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastUsedAt   *time.Time `json:"lastUsedAt,omitempty"`
}

// PasskeyList is returned from GET /auth/passkey/me/passkeys.
type PasskeyList struct {
	Passkeys []Passkey `json:"passkeys"`
	Count    int       `json:"count"`
}

// RenamePasskeyRequest is the JSON body for
// PATCH /auth/passkey/me/passkeys/{id}.
type RenamePasskeyRequest struct {
	Label string `json:"label"`
}
