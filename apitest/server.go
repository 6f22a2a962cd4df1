// Package apitest provides an in-memory reference implementation of the
// Gatehouse authentication API, for tests and local development. It keeps
// accounts, sessions, and challenge nonces in process memory and verifies
// real TOTP codes and WebAuthn assertions, but performs no attestation
// chain validation.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gatehouse-dev/gatehouse/internal/totp"
)

const (
	sessionCookieName = "gatehouse_session"
	totpIssuer        = "Gatehouse"
)

// Account is a server-side user record.
type Account struct {
	ID                string
	Username          string
	Password          string
	TwoFactorEnabled  bool
	TOTPSecret        string
	PendingTOTPSecret string
	Passkeys          []*PasskeyRecord
}

// PasskeyRecord is a stored WebAuthn credential.
type PasskeyRecord struct {
	ID           string
	CredentialID []byte
	Label        string
	DeviceType   string
	BackedUp     bool
	Transports   []string
	PublicKey    []byte
	SignCount    uint32
	CreatedAt    time.Time
	LastUsedAt   *time.Time
}

// regChallenge is a pending registration ceremony, keyed by username.
type regChallenge struct {
	Challenge string
	Label     string
}

// authChallenge is a pending authentication ceremony, keyed by nonce.
type authChallenge struct {
	Username  string
	Challenge string
}

// Server is the in-memory API server state.
type Server struct {
	mu            sync.Mutex
	rpID          string
	rpOrigin      string
	accounts      map[string]*Account // by username
	sessions      map[string]string   // token -> username
	loginNonces   map[string]string   // nonce -> username
	authNonces    map[string]authChallenge
	regChallenges map[string]regChallenge
	idSeq         int
}

// New creates a Server answering WebAuthn ceremonies for the given relying
// party ID and origin.
func New(rpID, rpOrigin string) *Server {
	return &Server{
		rpID:          rpID,
		rpOrigin:      rpOrigin,
		accounts:      make(map[string]*Account),
		sessions:      make(map[string]string),
		loginNonces:   make(map[string]string),
		authNonces:    make(map[string]authChallenge),
		regChallenges: make(map[string]regChallenge),
	}
}

// Router returns a chi.Router with the full API surface mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/signup", s.Signup)
	r.Post("/auth/login", s.Login)
	r.Post("/auth/login/2fa", s.LoginTwoFactor)
	r.Post("/auth/logout", s.Logout)
	r.Get("/user/whoami", s.WhoAmI)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Post("/auth/2fa/setup", s.SetupTwoFactor)
		r.Post("/auth/2fa/verify", s.VerifyTwoFactor)
		r.Post("/auth/2fa/disable", s.DisableTwoFactor)
		r.Post("/auth/passkey/registration/options", s.PasskeyRegistrationOptions)
		r.Post("/auth/passkey/registration/verify", s.PasskeyRegistrationVerify)
		r.Get("/auth/passkey/me/passkeys", s.ListPasskeys)
		r.Patch("/auth/passkey/me/passkeys/{passkeyID}", s.RenamePasskey)
		r.Delete("/auth/passkey/me/passkeys/{passkeyID}", s.DeletePasskey)
	})

	r.Post("/auth/passkey/authentication/options", s.PasskeyAuthenticationOptions)
	r.Post("/auth/passkey/authentication/verify", s.PasskeyAuthenticationVerify)

	return r
}

// SetOrigin updates the expected WebAuthn origin. Tests call this after the
// listener is bound, once the final URL is known.
func (s *Server) SetOrigin(origin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rpOrigin = origin
}

// Seed creates an account directly, bypassing the signup endpoint.
func (s *Server) Seed(username, password string) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAccount(username, password)
}

// SeedWithTOTP creates an account with two-factor already enabled and
// returns the shared secret for generating codes.
func (s *Server) SeedWithTOTP(username, password string) (*Account, string, error) {
	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	account := s.addAccount(username, password)
	account.TwoFactorEnabled = true
	account.TOTPSecret = secret
	return account, secret, nil
}

// Lookup returns the account for username, if any.
func (s *Server) Lookup(username string) (*Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[username]
	return a, ok
}

// SessionCount reports how many live sessions exist.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) addAccount(username, password string) *Account {
	s.idSeq++
	account := &Account{
		ID:       "u" + strconv.Itoa(s.idSeq),
		Username: username,
		Password: password,
	}
	s.accounts[username] = account
	return account
}

func (s *Server) nextID(prefix string) string {
	s.idSeq++
	return prefix + strconv.Itoa(s.idSeq)
}

// requireSession resolves the session cookie and stashes the username in
// the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessionAccount(r); !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sessionAccount(r *http.Request) (*Account, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.sessions[cookie.Value]
	if !ok {
		return nil, false
	}
	account, ok := s.accounts[username]
	return account, ok
}

func (s *Server) openSession(w http.ResponseWriter, username string) {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = username
	s.mu.Unlock()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return v, false
	}
	return v, true
}

// userJSON is the wire form of an account profile.
func userJSON(a *Account) map[string]any {
	return map[string]any{
		"id":               a.ID,
		"username":         a.Username,
		"twoFactorEnabled": a.TwoFactorEnabled,
	}
}
