package apitest

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

// Authenticator data flag bits, per the WebAuthn spec.
const (
	flagBackupEligible = 0x08
	flagBackupState    = 0x10
)

type registrationOptionsRequest struct {
	Label string `json:"label"`
}

// PasskeyRegistrationOptions handles POST /auth/passkey/registration/options.
// The ceremony challenge is held server-side per account, so starting a new
// ceremony invalidates any earlier one.
func (s *Server) PasskeyRegistrationOptions(w http.ResponseWriter, r *http.Request) {
	account, _ := s.sessionAccount(r)
	req, ok := decodeJSON[registrationOptionsRequest](w, r)
	if !ok {
		return
	}
	if req.Label == "" || len(req.Label) > 50 {
		writeError(w, http.StatusBadRequest, "Invalid passkey label")
		return
	}

	challenge, err := protocol.CreateChallenge()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create challenge")
		return
	}

	s.mu.Lock()
	var exclude []protocol.CredentialDescriptor
	for _, rec := range account.Passkeys {
		exclude = append(exclude, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: rec.CredentialID,
		})
	}
	s.regChallenges[account.Username] = regChallenge{
		Challenge: base64.RawURLEncoding.EncodeToString(challenge),
		Label:     req.Label,
	}
	s.mu.Unlock()

	creation := &protocol.CredentialCreation{
		Response: protocol.PublicKeyCredentialCreationOptions{
			Challenge: challenge,
			RelyingParty: protocol.RelyingPartyEntity{
				CredentialEntity: protocol.CredentialEntity{Name: totpIssuer},
				ID:               s.rpID,
			},
			User: protocol.UserEntity{
				CredentialEntity: protocol.CredentialEntity{Name: account.Username},
				DisplayName:      account.Username,
				ID:               []byte(account.ID),
			},
			Parameters: []protocol.CredentialParameter{
				{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgES256},
			},
			CredentialExcludeList: exclude,
		},
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"options": creation,
		"label":   req.Label,
	})
}

type registrationVerifyRequest struct {
	Label      string          `json:"label"`
	Credential json.RawMessage `json:"credential"`
}

// PasskeyRegistrationVerify handles POST /auth/passkey/registration/verify.
// Attestation statements are not validated beyond structural parsing.
func (s *Server) PasskeyRegistrationVerify(w http.ResponseWriter, r *http.Request) {
	account, _ := s.sessionAccount(r)
	req, ok := decodeJSON[registrationVerifyRequest](w, r)
	if !ok {
		return
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(req.Credential))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid registration credential")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pending, exists := s.regChallenges[account.Username]
	if !exists || pending.Challenge != parsed.Response.CollectedClientData.Challenge {
		writeError(w, http.StatusBadRequest, "No matching registration ceremony")
		return
	}
	if parsed.Response.CollectedClientData.Origin != s.rpOrigin {
		writeError(w, http.StatusBadRequest, "Origin mismatch")
		return
	}
	delete(s.regChallenges, account.Username)

	authData := parsed.Response.AttestationObject.AuthData
	flags := byte(authData.Flags)
	deviceType := "singleDevice"
	if flags&flagBackupEligible != 0 {
		deviceType = "multiDevice"
	}

	var transports []string
	for _, t := range parsed.Response.Transports {
		transports = append(transports, string(t))
	}

	rec := &PasskeyRecord{
		ID:           s.nextID("pk"),
		CredentialID: authData.AttData.CredentialID,
		Label:        pending.Label,
		DeviceType:   deviceType,
		BackedUp:     flags&flagBackupState != 0,
		Transports:   transports,
		PublicKey:    authData.AttData.CredentialPublicKey,
		SignCount:    authData.Counter,
		CreatedAt:    time.Now().UTC(),
	}
	account.Passkeys = append(account.Passkeys, rec)

	writeJSON(w, http.StatusOK, map[string]any{"verified": true})
}

type authenticationOptionsRequest struct {
	Username string `json:"username"`
}

// PasskeyAuthenticationOptions handles POST /auth/passkey/authentication/options.
// It is deliberately unauthenticated; the nonce ties the eventual assertion
// back to this ceremony.
func (s *Server) PasskeyAuthenticationOptions(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[authenticationOptionsRequest](w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	account, exists := s.accounts[req.Username]
	if !exists {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if len(account.Passkeys) == 0 {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "No passkeys registered for this account")
		return
	}

	challenge, err := protocol.CreateChallenge()
	if err != nil {
		s.mu.Unlock()
		writeError(w, http.StatusInternalServerError, "Failed to create challenge")
		return
	}

	var allowed []protocol.CredentialDescriptor
	for _, rec := range account.Passkeys {
		allowed = append(allowed, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: rec.CredentialID,
		})
	}
	nonce := uuid.NewString()
	s.authNonces[nonce] = authChallenge{
		Username:  account.Username,
		Challenge: base64.RawURLEncoding.EncodeToString(challenge),
	}
	s.mu.Unlock()

	assertion := &protocol.CredentialAssertion{
		Response: protocol.PublicKeyCredentialRequestOptions{
			Challenge:          challenge,
			RelyingPartyID:     s.rpID,
			AllowedCredentials: allowed,
		},
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"options":   assertion,
		"authNonce": nonce,
	})
}

type authenticationVerifyRequest struct {
	AuthNonce  string          `json:"authNonce"`
	Credential json.RawMessage `json:"credential"`
}

// PasskeyAuthenticationVerify handles POST /auth/passkey/authentication/verify.
// The assertion signature is checked against the stored credential public
// key. The nonce is consumed only on success; a failed ceremony restarts
// from the options endpoint.
func (s *Server) PasskeyAuthenticationVerify(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[authenticationVerifyRequest](w, r)
	if !ok {
		return
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(req.Credential))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid authentication credential")
		return
	}

	s.mu.Lock()
	pending, exists := s.authNonces[req.AuthNonce]
	if !exists {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid or expired authentication request")
		return
	}
	account := s.accounts[pending.Username]
	if pending.Challenge != parsed.Response.CollectedClientData.Challenge {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Challenge mismatch")
		return
	}

	var rec *PasskeyRecord
	for _, candidate := range account.Passkeys {
		if bytes.Equal(candidate.CredentialID, parsed.RawID) {
			rec = candidate
			break
		}
	}
	if rec == nil {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Unknown credential")
		return
	}

	pubKey, err := webauthncose.ParsePublicKey(rec.PublicKey)
	if err != nil {
		s.mu.Unlock()
		writeError(w, http.StatusInternalServerError, "Stored credential is corrupt")
		return
	}

	clientDataHash := sha256.Sum256(parsed.Raw.AssertionResponse.ClientDataJSON)
	signed := append([]byte{}, parsed.Raw.AssertionResponse.AuthenticatorData...)
	signed = append(signed, clientDataHash[:]...)

	valid, err := webauthncose.VerifySignature(pubKey, signed, parsed.Response.Signature)
	if err != nil || !valid {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Signature verification failed")
		return
	}

	delete(s.authNonces, req.AuthNonce)
	rec.SignCount = parsed.Response.AuthenticatorData.Counter
	now := time.Now().UTC()
	rec.LastUsedAt = &now
	s.mu.Unlock()

	s.openSession(w, account.Username)
	writeJSON(w, http.StatusOK, userJSON(account))
}

// ListPasskeys handles GET /auth/passkey/me/passkeys.
func (s *Server) ListPasskeys(w http.ResponseWriter, r *http.Request) {
	account, _ := s.sessionAccount(r)

	s.mu.Lock()
	passkeys := make([]map[string]any, 0, len(account.Passkeys))
	for _, rec := range account.Passkeys {
		passkeys = append(passkeys, passkeyJSON(rec))
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"passkeys": passkeys,
		"count":    len(passkeys),
	})
}

type renameRequest struct {
	Label string `json:"label"`
}

// RenamePasskey handles PATCH /auth/passkey/me/passkeys/{passkeyID}.
func (s *Server) RenamePasskey(w http.ResponseWriter, r *http.Request) {
	account, _ := s.sessionAccount(r)
	req, ok := decodeJSON[renameRequest](w, r)
	if !ok {
		return
	}
	if req.Label == "" || len(req.Label) > 50 {
		writeError(w, http.StatusBadRequest, "Invalid passkey label")
		return
	}

	id := chi.URLParam(r, "passkeyID")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range account.Passkeys {
		if rec.ID == id {
			rec.Label = req.Label
			writeJSON(w, http.StatusOK, passkeyJSON(rec))
			return
		}
	}
	writeError(w, http.StatusNotFound, "Passkey not found")
}

// DeletePasskey handles DELETE /auth/passkey/me/passkeys/{passkeyID}.
func (s *Server) DeletePasskey(w http.ResponseWriter, r *http.Request) {
	account, _ := s.sessionAccount(r)
	id := chi.URLParam(r, "passkeyID")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range account.Passkeys {
		if rec.ID == id {
			account.Passkeys = append(account.Passkeys[:i], account.Passkeys[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Passkey not found")
}

func passkeyJSON(rec *PasskeyRecord) map[string]any {
	out := map[string]any{
		"id":           rec.ID,
		"credentialId": base64.RawURLEncoding.EncodeToString(rec.CredentialID),
		"label":        rec.Label,
		"deviceType":   rec.DeviceType,
		"backedUp":     rec.BackedUp,
		"transports":   rec.Transports,
		"createdAt":    rec.CreatedAt,
	}
	if rec.LastUsedAt != nil {
		out["lastUsedAt"] = rec.LastUsedAt
	}
	return out
}
