package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-dev/gatehouse/client"
)

func alice() *client.User {
	return &client.User{ID: "u1", Username: "alice", TwoFactorEnabled: false}
}

func TestZeroStateIsIndeterminate(t *testing.T) {
	var s State
	assert.Equal(t, Indeterminate, s.Phase)
	assert.False(t, s.IsAuthenticated())
}

func TestApplyCheckTransitions(t *testing.T) {
	tests := []struct {
		name      string
		ev        Event
		wantPhase Phase
		wantUser  bool
		wantErr   bool
	}{
		{"check with user", CheckSucceeded{User: alice()}, Authenticated, true, false},
		{"check with nil user", CheckSucceeded{}, Unauthenticated, false, false},
		{"anonymous marker", CheckAnonymous{}, Unauthenticated, false, false},
		{"check failure", CheckFailed{Err: errors.New("boom")}, Unauthenticated, false, true},
		{"login", LoggedIn{User: alice()}, Authenticated, true, false},
		{"logout", LoggedOut{}, Unauthenticated, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(State{}, tt.ev)
			assert.Equal(t, tt.wantPhase, got.Phase)
			assert.Equal(t, tt.wantUser, got.User != nil)
			assert.Equal(t, tt.wantErr, got.Err != nil)
		})
	}
}

func TestApplyLogoutClearsUser(t *testing.T) {
	s := Apply(State{}, LoggedIn{User: alice()})
	require.True(t, s.IsAuthenticated())

	s = Apply(s, LoggedOut{})
	assert.Equal(t, Unauthenticated, s.Phase)
	assert.Nil(t, s.User)
}

func TestApplyTwoFactorChangedFlipsOnlyTheFlag(t *testing.T) {
	s := Apply(State{}, LoggedIn{User: alice()})
	s = Apply(s, TwoFactorChanged{Enabled: true})

	require.True(t, s.IsAuthenticated())
	assert.True(t, s.User.TwoFactorEnabled)
	assert.Equal(t, "alice", s.User.Username)
}

func TestApplyTwoFactorChangedDoesNotMutateOldSnapshot(t *testing.T) {
	before := Apply(State{}, LoggedIn{User: alice()})
	after := Apply(before, TwoFactorChanged{Enabled: true})

	assert.False(t, before.User.TwoFactorEnabled)
	assert.True(t, after.User.TwoFactorEnabled)
}

func TestApplyTwoFactorChangedIgnoredWhileUnauthenticated(t *testing.T) {
	s := Apply(State{}, TwoFactorChanged{Enabled: true})
	assert.Equal(t, Indeterminate, s.Phase)
	assert.Nil(t, s.User)
}

func TestPendingLoginLifecycle(t *testing.T) {
	var p PendingLogin

	_, ok := p.Peek()
	assert.False(t, ok)

	p.Begin("abc123")
	nonce, ok := p.Peek()
	require.True(t, ok)
	assert.Equal(t, "abc123", nonce)
	assert.True(t, p.Active())

	// A failed verify keeps the nonce; only Clear destroys it.
	nonce, ok = p.Peek()
	require.True(t, ok)
	assert.Equal(t, "abc123", nonce)

	p.Clear()
	assert.False(t, p.Active())
}
