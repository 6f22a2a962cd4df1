// Package passkey models the WebAuthn ceremonies the auth flows depend on:
// an Authenticator interface with a closed set of failure variants, and a
// software implementation backed by a local credential store.
package passkey

import (
	"context"
	"errors"

	"github.com/go-webauthn/webauthn/protocol"
)

// Ceremony failure variants. Callers match on these rather than on
// loosely-typed error strings; anything else is an unknown ceremony
// failure and maps to the generic message.
var (
	// ErrCancelled: the user cancelled or the operation was not allowed.
	ErrCancelled = errors.New("passkey: ceremony cancelled or not allowed")
	// ErrUnsupported: the device cannot perform the ceremony.
	ErrUnsupported = errors.New("passkey: not supported on this device")
	// ErrSecurity: the ceremony violated a security policy.
	ErrSecurity = errors.New("passkey: security error")
	// ErrCredentialExists: registration hit a credential already bound to
	// this device.
	ErrCredentialExists = errors.New("passkey: credential already registered on this device")
	// ErrNoCredential: authentication found no credential for the account
	// on this device.
	ErrNoCredential = errors.New("passkey: no credential for this account on this device")
)

// Authenticator performs the two WebAuthn ceremonies against whatever
// hardware or software credential source is available.
type Authenticator interface {
	// CreateCredential runs the registration ceremony with the given
	// creation options and returns the attestation response.
	CreateCredential(ctx context.Context, opts *protocol.CredentialCreation) (*protocol.CredentialCreationResponse, error)
	// GetCredential runs the authentication ceremony with the given
	// request options and returns the assertion response.
	GetCredential(ctx context.Context, opts *protocol.CredentialAssertion) (*protocol.CredentialAssertionResponse, error)
}

// RegistrationMessage maps a registration ceremony failure to its fixed
// user-facing message.
func RegistrationMessage(err error) string {
	switch {
	case errors.Is(err, ErrCancelled):
		return "Passkey creation was cancelled or not allowed."
	case errors.Is(err, ErrUnsupported):
		return "This device doesn't support passkeys."
	case errors.Is(err, ErrSecurity):
		return "Security error occurred. Please try again."
	case errors.Is(err, ErrCredentialExists):
		return "A passkey already exists for this account on this device."
	default:
		return "Failed to create passkey. Please try again."
	}
}

// AuthenticationMessage maps an authentication ceremony failure to its
// fixed user-facing message.
func AuthenticationMessage(err error) string {
	switch {
	case errors.Is(err, ErrCancelled):
		return "Authentication was cancelled or not allowed."
	case errors.Is(err, ErrUnsupported):
		return "This device doesn't support passkeys."
	case errors.Is(err, ErrSecurity):
		return "Security error occurred. Please try again."
	case errors.Is(err, ErrNoCredential):
		return "No passkey found for this account on this device."
	default:
		return "Failed to authenticate with passkey. Please try again."
	}
}
