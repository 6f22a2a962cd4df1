package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-dev/gatehouse/client"
	"github.com/gatehouse-dev/gatehouse/session"
)

// fakeIdentity scripts whoami responses and counts calls.
type fakeIdentity struct {
	user  *client.User
	err   error
	calls int
}

func (f *fakeIdentity) WhoAmI(ctx context.Context) (*client.User, error) {
	f.calls++
	return f.user, f.err
}

func TestManagerStartsIndeterminate(t *testing.T) {
	m := session.NewManager(&fakeIdentity{})
	assert.Equal(t, session.Indeterminate, m.Snapshot().Phase)
}

func TestManagerInitAuthenticated(t *testing.T) {
	id := &fakeIdentity{user: &client.User{ID: "u1", Username: "alice"}}
	m := session.NewManager(id)

	m.Init(t.Context())

	snap := m.Snapshot()
	assert.Equal(t, session.Authenticated, snap.Phase)
	require.NotNil(t, snap.User)
	assert.Equal(t, "alice", snap.User.Username)
}

func TestManagerInitAnonymous(t *testing.T) {
	m := session.NewManager(&fakeIdentity{})
	m.Init(t.Context())
	assert.Equal(t, session.Unauthenticated, m.Snapshot().Phase)
}

func TestManagerInitFailureResolvesUnauthenticated(t *testing.T) {
	id := &fakeIdentity{err: errors.New("connection refused")}
	m := session.NewManager(id)
	m.Init(t.Context())

	snap := m.Snapshot()
	assert.Equal(t, session.Unauthenticated, snap.Phase)
	assert.Error(t, snap.Err)
}

func TestManagerInitRunsOnce(t *testing.T) {
	id := &fakeIdentity{user: &client.User{ID: "u1", Username: "alice"}}
	m := session.NewManager(id)

	m.Init(t.Context())
	m.Init(t.Context())
	m.Init(t.Context())

	assert.Equal(t, 1, id.calls)
}

func TestManagerSetAuthState(t *testing.T) {
	m := session.NewManager(&fakeIdentity{})
	m.Init(t.Context())

	m.SetAuthState(&client.User{ID: "u1", Username: "alice"})
	assert.Equal(t, session.Authenticated, m.Snapshot().Phase)

	m.SetTwoFactorEnabled(true)
	assert.True(t, m.Snapshot().User.TwoFactorEnabled)

	m.SetAuthState(nil)
	snap := m.Snapshot()
	assert.Equal(t, session.Unauthenticated, snap.Phase)
	assert.Nil(t, snap.User)
}
