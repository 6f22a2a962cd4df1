package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-dev/gatehouse/client"
	"github.com/gatehouse-dev/gatehouse/flow"
	"github.com/gatehouse-dev/gatehouse/passkey"
	"github.com/gatehouse-dev/gatehouse/session"
)

func TestGuardRedirectsPrivateScreensWhenAnonymous(t *testing.T) {
	snap := session.State{Phase: session.Unauthenticated}

	for _, target := range []Screen{ScreenHome, ScreenSetupTwoFactor, ScreenDisableTwoFactor, ScreenPasskeys, ScreenAddPasskey} {
		assert.Equal(t, ScreenLogin, Guard(target, snap))
	}
}

func TestGuardRedirectsPublicScreensWhenAuthenticated(t *testing.T) {
	snap := session.State{
		Phase: session.Authenticated,
		User:  &client.User{ID: "u1", Username: "alice"},
	}

	for _, target := range []Screen{ScreenLogin, ScreenSignup, ScreenVerifyLogin, ScreenPasskeyLogin} {
		assert.Equal(t, ScreenHome, Guard(target, snap))
	}
}

func TestGuardPassesThroughAllowedTargets(t *testing.T) {
	anon := session.State{Phase: session.Unauthenticated}
	authed := session.State{
		Phase: session.Authenticated,
		User:  &client.User{ID: "u1", Username: "alice"},
	}

	assert.Equal(t, ScreenSignup, Guard(ScreenSignup, anon))
	assert.Equal(t, ScreenPasskeys, Guard(ScreenPasskeys, authed))
}

func TestGuardTreatsIndeterminateAsUnauthenticated(t *testing.T) {
	// The root model shows the loading view until the session resolves;
	// the guard itself never lets an indeterminate session into a
	// private screen.
	snap := session.State{Phase: session.Indeterminate}
	assert.Equal(t, ScreenLogin, Guard(ScreenHome, snap))
}

// newTestApp builds a booted App over a flow that never reaches the
// network; routing decisions are purely local.
func newTestApp(t *testing.T) App {
	t.Helper()
	c, err := client.New("http://127.0.0.1:0")
	require.NoError(t, err)
	f := flow.New(c, session.NewManager(c), passkey.NewSoftAuthenticator(passkey.NewMemoryStore(), "http://127.0.0.1:0"))
	app := NewApp(t.Context(), f)
	app.booted = true
	return app
}

func TestEnteringVerifyWithoutChallengeRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)

	model, _ := app.Update(navigateMsg{target: ScreenVerifyLogin})
	got := model.(App)
	assert.Equal(t, ScreenLogin, got.screen)
}

func TestEnteringVerifyWithChallengeShowsCodeForm(t *testing.T) {
	app := newTestApp(t)
	app.flow.Pending().Begin("nonce-1")

	model, _ := app.Update(navigateMsg{target: ScreenVerifyLogin})
	got := model.(App)
	assert.Equal(t, ScreenVerifyLogin, got.screen)
	assert.True(t, got.flow.Pending().Active())
}

func TestLeavingVerifyAbandonsPendingChallenge(t *testing.T) {
	app := newTestApp(t)
	app.flow.Pending().Begin("nonce-1")

	model, _ := app.Update(navigateMsg{target: ScreenVerifyLogin})
	app = model.(App)
	require.Equal(t, ScreenVerifyLogin, app.screen)

	model, _ = app.Update(navigateMsg{target: ScreenLogin})
	app = model.(App)
	assert.Equal(t, ScreenLogin, app.screen)
	assert.False(t, app.flow.Pending().Active())
}
