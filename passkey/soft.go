package passkey

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/awnumar/memguard"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"

	"github.com/gatehouse-dev/gatehouse/internal/util"
)

const (
	credentialIDBytes = 32

	flagUserPresent       = 0x01
	flagUserVerified      = 0x04
	flagAttestedCredsIncl = 0x40
)

var ctap2Enc = mustCTAP2EncMode()

func mustCTAP2EncMode() cbor.EncMode {
	em, err := cbor.CTAP2EncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// SoftAuthenticator is a software passkey: ES256 keys held in a local
// Store, "none" attestation, user verification always performed (the
// operating user unlocked the store). It stands in for the platform
// authenticator a browser would mediate.
type SoftAuthenticator struct {
	store   Store
	origin  string
	approve func(ctx context.Context, rpID string) error
}

var _ Authenticator = (*SoftAuthenticator)(nil)

// SoftOption configures a SoftAuthenticator.
type SoftOption func(*SoftAuthenticator)

// WithApproval installs a hook run before each ceremony; returning an
// error aborts it as cancelled. UIs use this for the confirm step.
func WithApproval(fn func(ctx context.Context, rpID string) error) SoftOption {
	return func(a *SoftAuthenticator) {
		a.approve = fn
	}
}

// NewSoftAuthenticator creates a software authenticator that answers for
// the given origin and keeps credentials in store.
func NewSoftAuthenticator(store Store, origin string, opts ...SoftOption) *SoftAuthenticator {
	a := &SoftAuthenticator{store: store, origin: origin}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreateCredential implements Authenticator.
func (a *SoftAuthenticator) CreateCredential(ctx context.Context, opts *protocol.CredentialCreation) (*protocol.CredentialCreationResponse, error) {
	if opts == nil || len(opts.Response.Challenge) == 0 {
		return nil, fmt.Errorf("passkey: missing creation options")
	}
	rpID, err := a.resolveRPID(opts.Response.RelyingParty.ID)
	if err != nil {
		return nil, err
	}
	if !supportsES256(opts.Response.Parameters) {
		return nil, ErrUnsupported
	}
	if err := a.checkApproval(ctx, rpID); err != nil {
		return nil, err
	}

	held, err := a.store.ForRP(rpID)
	if err != nil {
		return nil, fmt.Errorf("passkey: reading credential store: %w", err)
	}
	for _, excl := range opts.Response.CredentialExcludeList {
		for _, cred := range held {
			if bytes.Equal(cred.ID, excl.CredentialID) {
				return nil, ErrCredentialExists
			}
		}
	}

	userHandle, err := userHandleBytes(opts.Response.User.ID)
	if err != nil {
		return nil, fmt.Errorf("passkey: invalid user handle: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("passkey: generating key: %w", err)
	}
	credID, err := util.RandomBytes(credentialIDBytes)
	if err != nil {
		return nil, fmt.Errorf("passkey: generating credential id: %w", err)
	}

	authData, err := buildAttestedAuthData(rpID, credID, &key.PublicKey)
	if err != nil {
		return nil, err
	}
	attObj, err := ctap2Enc.Marshal(attestationObject{
		AuthData:     authData,
		Format:       "none",
		AttStatement: map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("passkey: encoding attestation object: %w", err)
	}
	clientData, err := marshalClientData("webauthn.create", opts.Response.Challenge, a.origin)
	if err != nil {
		return nil, err
	}

	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("passkey: encoding private key: %w", err)
	}
	if err := a.store.Save(Credential{
		ID:         credID,
		RPID:       rpID,
		UserHandle: userHandle,
		PrivateKey: der,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("passkey: persisting credential: %w", err)
	}

	return &protocol.CredentialCreationResponse{
		PublicKeyCredential: protocol.PublicKeyCredential{
			Credential: protocol.Credential{
				ID:   base64.RawURLEncoding.EncodeToString(credID),
				Type: string(protocol.PublicKeyCredentialType),
			},
			RawID:                   credID,
			AuthenticatorAttachment: "platform",
		},
		AttestationResponse: protocol.AuthenticatorAttestationResponse{
			AuthenticatorResponse: protocol.AuthenticatorResponse{
				ClientDataJSON: clientData,
			},
			AttestationObject: attObj,
			Transports:        []string{"internal"},
		},
	}, nil
}

// GetCredential implements Authenticator.
func (a *SoftAuthenticator) GetCredential(ctx context.Context, opts *protocol.CredentialAssertion) (*protocol.CredentialAssertionResponse, error) {
	if opts == nil || len(opts.Response.Challenge) == 0 {
		return nil, fmt.Errorf("passkey: missing assertion options")
	}
	rpID, err := a.resolveRPID(opts.Response.RelyingPartyID)
	if err != nil {
		return nil, err
	}
	if err := a.checkApproval(ctx, rpID); err != nil {
		return nil, err
	}

	held, err := a.store.ForRP(rpID)
	if err != nil {
		return nil, fmt.Errorf("passkey: reading credential store: %w", err)
	}
	cred, ok := selectCredential(held, opts.Response.AllowedCredentials)
	if !ok {
		return nil, ErrNoCredential
	}

	clientData, err := marshalClientData("webauthn.get", opts.Response.Challenge, a.origin)
	if err != nil {
		return nil, err
	}

	newCount := cred.SignCount + 1
	authData := buildAssertionAuthData(rpID, newCount)

	sig, err := a.sign(cred, authData, clientData)
	if err != nil {
		return nil, err
	}
	if err := a.store.SetSignCount(rpID, cred.ID, newCount); err != nil {
		return nil, fmt.Errorf("passkey: updating sign count: %w", err)
	}

	return &protocol.CredentialAssertionResponse{
		PublicKeyCredential: protocol.PublicKeyCredential{
			Credential: protocol.Credential{
				ID:   base64.RawURLEncoding.EncodeToString(cred.ID),
				Type: string(protocol.PublicKeyCredentialType),
			},
			RawID:                   cred.ID,
			AuthenticatorAttachment: "platform",
		},
		AssertionResponse: protocol.AuthenticatorAssertionResponse{
			AuthenticatorResponse: protocol.AuthenticatorResponse{
				ClientDataJSON: clientData,
			},
			AuthenticatorData: authData,
			Signature:         sig,
			UserHandle:        cred.UserHandle,
		},
	}, nil
}

// sign produces the ES256 assertion signature over
// authData || SHA-256(clientDataJSON). The DER-encoded private key lives in
// a locked buffer for the duration of the operation.
func (a *SoftAuthenticator) sign(cred Credential, authData, clientData []byte) ([]byte, error) {
	// Copy first: NewBufferFromBytes wipes its source, and the store may
	// still own that slice.
	keyBuf := memguard.NewBufferFromBytes(util.CopyBytes(cred.PrivateKey))
	defer keyBuf.Destroy()

	key, err := x509.ParseECPrivateKey(keyBuf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("passkey: corrupt private key: %w", err)
	}
	clientDataHash := sha256.Sum256(clientData)
	digest := sha256.Sum256(append(append([]byte{}, authData...), clientDataHash[:]...))
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("passkey: signing assertion: %w", err)
	}
	return sig, nil
}

func (a *SoftAuthenticator) checkApproval(ctx context.Context, rpID string) error {
	if err := ctx.Err(); err != nil {
		return ErrCancelled
	}
	if a.approve == nil {
		return nil
	}
	if err := a.approve(ctx, rpID); err != nil {
		return fmt.Errorf("%w: %s", ErrCancelled, err)
	}
	return nil
}

// resolveRPID falls back to the origin host when the server omitted the
// relying party ID, mirroring browser behavior.
func (a *SoftAuthenticator) resolveRPID(rpID string) (string, error) {
	if rpID != "" {
		return rpID, nil
	}
	u, err := url.Parse(a.origin)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("passkey: no relying party id and origin %q has no host", a.origin)
	}
	return u.Hostname(), nil
}

func supportsES256(params []protocol.CredentialParameter) bool {
	if len(params) == 0 {
		return true
	}
	for _, p := range params {
		if p.Algorithm == webauthncose.AlgES256 {
			return true
		}
	}
	return false
}

func selectCredential(held []Credential, allowed []protocol.CredentialDescriptor) (Credential, bool) {
	if len(allowed) == 0 {
		if len(held) == 0 {
			return Credential{}, false
		}
		// Discoverable-credential style request: use the newest.
		newest := held[0]
		for _, c := range held[1:] {
			if c.CreatedAt.After(newest.CreatedAt) {
				newest = c
			}
		}
		return newest, true
	}
	for _, desc := range allowed {
		for _, c := range held {
			if bytes.Equal(c.ID, desc.CredentialID) {
				return c, true
			}
		}
	}
	return Credential{}, false
}

// userHandleBytes normalizes the loosely-typed user.id field from creation
// options. Servers send it as a base64url string over JSON.
func userHandleBytes(v any) ([]byte, error) {
	switch id := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return id, nil
	case protocol.URLEncodedBase64:
		return id, nil
	case string:
		if decoded, err := base64.RawURLEncoding.DecodeString(id); err == nil {
			return decoded, nil
		}
		if decoded, err := base64.StdEncoding.DecodeString(id); err == nil {
			return decoded, nil
		}
		return []byte(id), nil
	default:
		return nil, fmt.Errorf("unsupported user.id type %T", v)
	}
}

type attestationObject struct {
	AuthData     []byte         `cbor:"authData"`
	Format       string         `cbor:"fmt"`
	AttStatement map[string]any `cbor:"attStmt"`
}

type collectedClientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

func marshalClientData(ceremony string, challenge protocol.URLEncodedBase64, origin string) ([]byte, error) {
	data, err := json.Marshal(collectedClientData{
		Type:      ceremony,
		Challenge: base64.RawURLEncoding.EncodeToString(challenge),
		Origin:    origin,
	})
	if err != nil {
		return nil, fmt.Errorf("passkey: encoding client data: %w", err)
	}
	return data, nil
}

// buildAttestedAuthData assembles WebAuthn authenticator data carrying the
// new credential: rpIdHash || flags || counter || AAGUID || credId || COSE key.
func buildAttestedAuthData(rpID string, credID []byte, pub *ecdsa.PublicKey) ([]byte, error) {
	coseKey, err := marshalCOSEKey(pub)
	if err != nil {
		return nil, err
	}

	rpHash := sha256.Sum256([]byte(rpID))
	buf := &bytes.Buffer{}
	buf.Write(rpHash[:])
	buf.WriteByte(flagUserPresent | flagUserVerified | flagAttestedCredsIncl)
	_ = binary.Write(buf, binary.BigEndian, uint32(0)) // sign counter
	buf.Write(make([]byte, 16))                        // zero AAGUID: anonymous software authenticator
	_ = binary.Write(buf, binary.BigEndian, uint16(len(credID)))
	buf.Write(credID)
	buf.Write(coseKey)
	return buf.Bytes(), nil
}

func buildAssertionAuthData(rpID string, signCount uint32) []byte {
	rpHash := sha256.Sum256([]byte(rpID))
	buf := &bytes.Buffer{}
	buf.Write(rpHash[:])
	buf.WriteByte(flagUserPresent | flagUserVerified)
	_ = binary.Write(buf, binary.BigEndian, signCount)
	return buf.Bytes()
}

// marshalCOSEKey encodes a P-256 public key as a COSE_Key EC2 map
// (kty=2, alg=ES256, crv=P-256).
func marshalCOSEKey(pub *ecdsa.PublicKey) ([]byte, error) {
	x := make([]byte, 32)
	y := make([]byte, 32)
	pub.X.FillBytes(x)
	pub.Y.FillBytes(y)
	key, err := ctap2Enc.Marshal(map[int]any{
		1:  2,  // kty: EC2
		3:  -7, // alg: ES256
		-1: 1,  // crv: P-256
		-2: x,
		-3: y,
	})
	if err != nil {
		return nil, fmt.Errorf("passkey: encoding COSE key: %w", err)
	}
	return key, nil
}
