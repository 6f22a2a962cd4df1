package passkey

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOrigin = "https://auth.example.com"
	testRPID   = "auth.example.com"
)

func creationOptions(t *testing.T) *protocol.CredentialCreation {
	t.Helper()
	challenge, err := protocol.CreateChallenge()
	require.NoError(t, err)
	return &protocol.CredentialCreation{
		Response: protocol.PublicKeyCredentialCreationOptions{
			Challenge: challenge,
			RelyingParty: protocol.RelyingPartyEntity{
				CredentialEntity: protocol.CredentialEntity{Name: "Gatehouse"},
				ID:               testRPID,
			},
			User: protocol.UserEntity{
				CredentialEntity: protocol.CredentialEntity{Name: "alice"},
				DisplayName:      "alice",
				ID:               base64.RawURLEncoding.EncodeToString([]byte("user-1")),
			},
			Parameters: []protocol.CredentialParameter{{
				Type:      protocol.PublicKeyCredentialType,
				Algorithm: webauthncose.AlgES256,
			}},
		},
	}
}

func assertionOptions(t *testing.T, allowed ...[]byte) *protocol.CredentialAssertion {
	t.Helper()
	challenge, err := protocol.CreateChallenge()
	require.NoError(t, err)
	opts := &protocol.CredentialAssertion{
		Response: protocol.PublicKeyCredentialRequestOptions{
			Challenge:      challenge,
			RelyingPartyID: testRPID,
		},
	}
	for _, id := range allowed {
		opts.Response.AllowedCredentials = append(opts.Response.AllowedCredentials,
			protocol.CredentialDescriptor{
				Type:         protocol.PublicKeyCredentialType,
				CredentialID: id,
			})
	}
	return opts
}

func TestCreateCredentialProducesParseableAttestation(t *testing.T) {
	store := NewMemoryStore()
	auth := NewSoftAuthenticator(store, testOrigin)

	opts := creationOptions(t)
	resp, err := auth.CreateCredential(t.Context(), opts)
	require.NoError(t, err)

	raw, err := resp.Parse()
	require.NoError(t, err)

	assert.Equal(t, "webauthn.create", string(raw.Response.CollectedClientData.Type))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(opts.Response.Challenge),
		raw.Response.CollectedClientData.Challenge)
	assert.Equal(t, testOrigin, raw.Response.CollectedClientData.Origin)
	assert.True(t, bytes.Equal(resp.RawID, raw.Response.AttestationObject.AuthData.AttData.CredentialID))
	assert.Equal(t, "none", raw.Response.AttestationObject.Format)

	held, err := store.ForRP(testRPID)
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, []byte("user-1"), held[0].UserHandle)
}

func TestCreateCredentialHonorsExcludeList(t *testing.T) {
	store := NewMemoryStore()
	auth := NewSoftAuthenticator(store, testOrigin)

	first, err := auth.CreateCredential(t.Context(), creationOptions(t))
	require.NoError(t, err)

	opts := creationOptions(t)
	opts.Response.CredentialExcludeList = []protocol.CredentialDescriptor{{
		Type:         protocol.PublicKeyCredentialType,
		CredentialID: first.RawID,
	}}
	_, err = auth.CreateCredential(t.Context(), opts)
	assert.ErrorIs(t, err, ErrCredentialExists)
}

func TestCreateCredentialRejectsUnsupportedAlgorithms(t *testing.T) {
	auth := NewSoftAuthenticator(NewMemoryStore(), testOrigin)

	opts := creationOptions(t)
	opts.Response.Parameters = []protocol.CredentialParameter{{
		Type:      protocol.PublicKeyCredentialType,
		Algorithm: webauthncose.AlgEdDSA,
	}}
	_, err := auth.CreateCredential(t.Context(), opts)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestGetCredentialSignsVerifiableAssertion(t *testing.T) {
	store := NewMemoryStore()
	auth := NewSoftAuthenticator(store, testOrigin)

	created, err := auth.CreateCredential(t.Context(), creationOptions(t))
	require.NoError(t, err)
	parsedCreation, err := created.Parse()
	require.NoError(t, err)

	opts := assertionOptions(t, created.RawID)
	resp, err := auth.GetCredential(t.Context(), opts)
	require.NoError(t, err)
	require.True(t, bytes.Equal(created.RawID, resp.RawID))
	assert.Equal(t, []byte("user-1"), []byte(resp.AssertionResponse.UserHandle))

	raw, err := resp.Parse()
	require.NoError(t, err)
	assert.Equal(t, "webauthn.get", string(raw.Response.CollectedClientData.Type))

	// The signature must verify against the public key registered at
	// creation time.
	pub, err := webauthncose.ParsePublicKey(
		parsedCreation.Response.AttestationObject.AuthData.AttData.CredentialPublicKey)
	require.NoError(t, err)

	clientDataHash := sha256Sum(resp.AssertionResponse.ClientDataJSON)
	signed := append(append([]byte{}, resp.AssertionResponse.AuthenticatorData...), clientDataHash...)
	valid, err := webauthncose.VerifySignature(pub, signed, resp.AssertionResponse.Signature)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestGetCredentialSignCountIncrements(t *testing.T) {
	store := NewMemoryStore()
	auth := NewSoftAuthenticator(store, testOrigin)

	created, err := auth.CreateCredential(t.Context(), creationOptions(t))
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		_, err := auth.GetCredential(t.Context(), assertionOptions(t, created.RawID))
		require.NoError(t, err)
	}
	held, err := store.ForRP(testRPID)
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, uint32(3), held[0].SignCount)
}

func TestGetCredentialNoMatchingCredential(t *testing.T) {
	auth := NewSoftAuthenticator(NewMemoryStore(), testOrigin)

	_, err := auth.GetCredential(t.Context(), assertionOptions(t))
	assert.ErrorIs(t, err, ErrNoCredential)

	// Held credential, but the allow list names a different one.
	store := NewMemoryStore()
	auth = NewSoftAuthenticator(store, testOrigin)
	_, err = auth.CreateCredential(t.Context(), creationOptions(t))
	require.NoError(t, err)

	_, err = auth.GetCredential(t.Context(), assertionOptions(t, []byte("other-credential")))
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestApprovalHookCancelsCeremony(t *testing.T) {
	denied := errors.New("user said no")
	auth := NewSoftAuthenticator(NewMemoryStore(), testOrigin,
		WithApproval(func(context.Context, string) error { return denied }))

	_, err := auth.CreateCredential(t.Context(), creationOptions(t))
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestCeremonyMessages(t *testing.T) {
	assert.Equal(t, "Passkey creation was cancelled or not allowed.", RegistrationMessage(ErrCancelled))
	assert.Equal(t, "A passkey already exists for this account on this device.", RegistrationMessage(ErrCredentialExists))
	assert.Equal(t, "Failed to create passkey. Please try again.", RegistrationMessage(errors.New("weird")))

	assert.Equal(t, "Authentication was cancelled or not allowed.", AuthenticationMessage(ErrCancelled))
	assert.Equal(t, "No passkey found for this account on this device.", AuthenticationMessage(ErrNoCredential))
	assert.Equal(t, "This device doesn't support passkeys.", AuthenticationMessage(ErrUnsupported))
	assert.Equal(t, "Failed to authenticate with passkey. Please try again.", AuthenticationMessage(errors.New("weird")))
}

func TestBoltStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passkeys.db")
	store, err := NewBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	auth := NewSoftAuthenticator(store, testOrigin)
	created, err := auth.CreateCredential(t.Context(), creationOptions(t))
	require.NoError(t, err)

	_, err = auth.GetCredential(t.Context(), assertionOptions(t, created.RawID))
	require.NoError(t, err)

	held, err := store.ForRP(testRPID)
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, uint32(1), held[0].SignCount)
	assert.NotEmpty(t, held[0].PrivateKey)
}

func sha256Sum(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}
