package client_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-dev/gatehouse/apitest"
	"github.com/gatehouse-dev/gatehouse/client"
	"github.com/gatehouse-dev/gatehouse/internal/totp"
)

func setupServer(t *testing.T) (*apitest.Server, *httptest.Server) {
	t.Helper()
	api := apitest.New("127.0.0.1", "")
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	api.SetOrigin(srv.URL)
	return api, srv
}

func newClient(t *testing.T, srv *httptest.Server, opts ...client.Option) *client.Client {
	t.Helper()
	c, err := client.New(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func codeFor(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.CodeAt(secret, time.Now())
	require.NoError(t, err)
	return code
}

func TestSignupThenLogin(t *testing.T) {
	_, srv := setupServer(t)
	c := newClient(t, srv)

	user, err := c.Signup(t.Context(), "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.TwoFactorEnabled)
	assert.NotEmpty(t, user.ID)

	result, err := c.Login(t.Context(), "alice", "secret1")
	require.NoError(t, err)
	require.False(t, result.RequiresTwoFactor())
	assert.Equal(t, user.ID, result.User.ID)

	// The session cookie lands in the client's jar, so whoami resolves.
	me, err := c.WhoAmI(t.Context())
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, "alice", me.Username)
}

func TestSignupConflict(t *testing.T) {
	api, srv := setupServer(t)
	api.Seed("alice", "secret1")
	c := newClient(t, srv)

	_, err := c.Signup(t.Context(), "alice", "secret2")
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, http.StatusConflict))
	assert.Equal(t, "Username is already taken", client.Message(err))
}

func TestLoginRejectsBadPassword(t *testing.T) {
	api, srv := setupServer(t)
	api.Seed("alice", "secret1")
	c := newClient(t, srv)

	_, err := c.Login(t.Context(), "alice", "wrong-password")
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, "Invalid username or password", client.Message(err))
}

func TestLoginTwoFactorChallenge(t *testing.T) {
	api, srv := setupServer(t)
	_, secret, err := api.SeedWithTOTP("alice", "secret1")
	require.NoError(t, err)
	c := newClient(t, srv)

	result, err := c.Login(t.Context(), "alice", "secret1")
	require.NoError(t, err)
	require.True(t, result.RequiresTwoFactor())
	require.NotEmpty(t, result.LoginNonce)
	assert.Nil(t, result.User)

	// No session until the code is verified.
	me, err := c.WhoAmI(t.Context())
	require.NoError(t, err)
	assert.Nil(t, me)

	// A wrong code leaves the nonce usable for another attempt.
	_, err = c.LoginTwoFactor(t.Context(), result.LoginNonce, "000000")
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))

	user, err := c.LoginTwoFactor(t.Context(), result.LoginNonce, codeFor(t, secret))
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.TwoFactorEnabled)

	me, err = c.WhoAmI(t.Context())
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, "alice", me.Username)
}

func TestWhoAmIAnonymous(t *testing.T) {
	_, srv := setupServer(t)
	c := newClient(t, srv)

	me, err := c.WhoAmI(t.Context())
	require.NoError(t, err)
	assert.Nil(t, me)
}

func TestLogoutEndsSession(t *testing.T) {
	api, srv := setupServer(t)
	api.Seed("alice", "secret1")
	c := newClient(t, srv)

	_, err := c.Login(t.Context(), "alice", "secret1")
	require.NoError(t, err)

	require.NoError(t, c.Logout(t.Context()))
	assert.Zero(t, api.SessionCount())

	me, err := c.WhoAmI(t.Context())
	require.NoError(t, err)
	assert.Nil(t, me)
}

func TestTwoFactorSetupVerifyDisable(t *testing.T) {
	api, srv := setupServer(t)
	api.Seed("alice", "secret1")
	c := newClient(t, srv)

	_, err := c.Login(t.Context(), "alice", "secret1")
	require.NoError(t, err)

	setup, err := c.SetupTwoFactor(t.Context())
	require.NoError(t, err)
	secret, err := totp.SecretFromURL(setup.OtpauthURI)
	require.NoError(t, err)

	// Flag stays off until the first code verifies.
	me, err := c.WhoAmI(t.Context())
	require.NoError(t, err)
	assert.False(t, me.TwoFactorEnabled)

	require.NoError(t, c.VerifyTwoFactor(t.Context(), codeFor(t, secret)))

	me, err = c.WhoAmI(t.Context())
	require.NoError(t, err)
	assert.True(t, me.TwoFactorEnabled)

	require.NoError(t, c.DisableTwoFactor(t.Context(), codeFor(t, secret)))

	me, err = c.WhoAmI(t.Context())
	require.NoError(t, err)
	assert.False(t, me.TwoFactorEnabled)
}

func TestVerifyTwoFactorWithoutSetup(t *testing.T) {
	api, srv := setupServer(t)
	api.Seed("alice", "secret1")
	c := newClient(t, srv)

	_, err := c.Login(t.Context(), "alice", "secret1")
	require.NoError(t, err)

	err = c.VerifyTwoFactor(t.Context(), "123456")
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, http.StatusBadRequest))
}

func TestListPasskeysRequiresSession(t *testing.T) {
	_, srv := setupServer(t)
	c := newClient(t, srv)

	_, err := c.ListPasskeys(t.Context())
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))
}

func TestMessageFallsBackForNonAPIErrors(t *testing.T) {
	assert.Equal(t, client.GenericErrorMessage, client.Message(assert.AnError))
	assert.Equal(t, "", client.Message(nil))
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := client.New("ftp://example.com")
	require.Error(t, err)

	_, err = client.New("://nope")
	require.Error(t, err)
}
