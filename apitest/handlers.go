package apitest

import (
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/gatehouse-dev/gatehouse/internal/totp"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup handles POST /auth/signup.
func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[credentialsRequest](w, r)
	if !ok {
		return
	}
	if len(req.Username) < 3 || len(req.Username) > 20 || !usernamePattern.MatchString(req.Username) {
		writeError(w, http.StatusBadRequest, "Invalid username")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Username]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "Username is already taken")
		return
	}
	account := s.addAccount(req.Username, req.Password)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, userJSON(account))
}

// Login handles POST /auth/login. Accounts with two-factor enabled get a
// login nonce instead of a session.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[credentialsRequest](w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	account, exists := s.accounts[req.Username]
	if !exists || account.Password != req.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if account.TwoFactorEnabled {
		nonce := uuid.NewString()
		s.loginNonces[nonce] = account.Username
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"requiresTwoFactor": true,
			"loginNonce":        nonce,
		})
		return
	}
	s.mu.Unlock()

	s.openSession(w, account.Username)
	writeJSON(w, http.StatusOK, userJSON(account))
}

type loginTwoFactorRequest struct {
	LoginNonce string `json:"loginNonce"`
	Token      string `json:"token"`
}

// LoginTwoFactor handles POST /auth/login/2fa. The nonce survives failed
// code attempts and is consumed only on success.
func (s *Server) LoginTwoFactor(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[loginTwoFactorRequest](w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	username, exists := s.loginNonces[req.LoginNonce]
	if !exists {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid or expired login request")
		return
	}
	account := s.accounts[username]
	if !totp.Verify(account.TOTPSecret, req.Token, time.Now()) {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid authentication code")
		return
	}
	delete(s.loginNonces, req.LoginNonce)
	s.mu.Unlock()

	s.openSession(w, account.Username)
	writeJSON(w, http.StatusOK, userJSON(account))
}

// Logout handles POST /auth/logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]any{})
}

// WhoAmI handles GET /user/whoami. Anonymous callers get a 200 with an
// explicit marker rather than a 401.
func (s *Server) WhoAmI(w http.ResponseWriter, r *http.Request) {
	account, ok := s.sessionAccount(r)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"isUnauthenticated": true})
		return
	}
	writeJSON(w, http.StatusOK, userJSON(account))
}

// SetupTwoFactor handles POST /auth/2fa/setup. A repeated call replaces any
// pending secret.
func (s *Server) SetupTwoFactor(w http.ResponseWriter, r *http.Request) {
	account, _ := s.sessionAccount(r)

	secret, err := totp.GenerateSecret()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate secret")
		return
	}

	s.mu.Lock()
	account.PendingTOTPSecret = secret
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"otpauthUri": totp.BuildURL(secret, totpIssuer, account.Username),
	})
}

type tokenRequest struct {
	Token string `json:"token"`
}

// VerifyTwoFactor handles POST /auth/2fa/verify.
func (s *Server) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	account, _ := s.sessionAccount(r)
	req, ok := decodeJSON[tokenRequest](w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if account.PendingTOTPSecret == "" {
		writeError(w, http.StatusBadRequest, "No two-factor setup in progress")
		return
	}
	if !totp.Verify(account.PendingTOTPSecret, req.Token, time.Now()) {
		writeError(w, http.StatusUnauthorized, "Invalid authentication code")
		return
	}
	account.TOTPSecret = account.PendingTOTPSecret
	account.PendingTOTPSecret = ""
	account.TwoFactorEnabled = true
	writeJSON(w, http.StatusOK, map[string]any{})
}

// DisableTwoFactor handles POST /auth/2fa/disable.
func (s *Server) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	account, _ := s.sessionAccount(r)
	req, ok := decodeJSON[tokenRequest](w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !account.TwoFactorEnabled {
		writeError(w, http.StatusBadRequest, "Two-factor authentication is not enabled")
		return
	}
	if !totp.Verify(account.TOTPSecret, req.Token, time.Now()) {
		writeError(w, http.StatusUnauthorized, "Invalid authentication code")
		return
	}
	account.TOTPSecret = ""
	account.TwoFactorEnabled = false
	writeJSON(w, http.StatusOK, map[string]any{})
}
