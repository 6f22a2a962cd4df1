package client_test

import (
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-dev/gatehouse/client"
)

func openJar(t *testing.T, path string) *client.BoltJar {
	t.Helper()
	jar, err := client.NewBoltJar(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = jar.Close() })
	return jar
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestBoltJarPersistsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.db")
	u := mustURL(t, "http://api.example.com/auth/login")

	jar := openJar(t, path)
	jar.SetCookies(u, []*http.Cookie{{Name: "gatehouse_session", Value: "tok-1", Path: "/"}})
	require.NoError(t, jar.Close())

	reopened := openJar(t, path)
	got := reopened.Cookies(mustURL(t, "http://api.example.com/user/whoami"))
	require.Len(t, got, 1)
	assert.Equal(t, "gatehouse_session", got[0].Name)
	assert.Equal(t, "tok-1", got[0].Value)
}

func TestBoltJarScopesCookiesByHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.db")
	jar := openJar(t, path)

	jar.SetCookies(mustURL(t, "http://one.example.com/"), []*http.Cookie{{Name: "s", Value: "a"}})

	assert.Empty(t, jar.Cookies(mustURL(t, "http://two.example.com/")))
	assert.Len(t, jar.Cookies(mustURL(t, "http://one.example.com/")), 1)
}

func TestBoltJarNegativeMaxAgeDeletes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.db")
	u := mustURL(t, "http://api.example.com/")
	jar := openJar(t, path)

	jar.SetCookies(u, []*http.Cookie{{Name: "s", Value: "a", Path: "/"}})
	require.Len(t, jar.Cookies(u), 1)

	// Server-driven logout: same cookie with MaxAge -1.
	jar.SetCookies(u, []*http.Cookie{{Name: "s", Value: "", Path: "/", MaxAge: -1}})
	assert.Empty(t, jar.Cookies(u))
}

func TestBoltJarDropsExpiredCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.db")
	u := mustURL(t, "http://api.example.com/")
	jar := openJar(t, path)

	jar.SetCookies(u, []*http.Cookie{{
		Name:    "s",
		Value:   "a",
		Expires: time.Now().Add(-time.Minute),
	}})
	assert.Empty(t, jar.Cookies(u))
}

func TestBoltJarWithholdsSecureCookiesOverHTTP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.db")
	jar := openJar(t, path)

	jar.SetCookies(mustURL(t, "https://api.example.com/"), []*http.Cookie{{Name: "s", Value: "a", Secure: true}})

	assert.Empty(t, jar.Cookies(mustURL(t, "http://api.example.com/")))
	assert.Len(t, jar.Cookies(mustURL(t, "https://api.example.com/")), 1)
}

func TestBoltJarClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.db")
	u := mustURL(t, "http://api.example.com/")
	jar := openJar(t, path)

	jar.SetCookies(u, []*http.Cookie{{Name: "s", Value: "a"}})
	require.NoError(t, jar.Clear("api.example.com"))
	assert.Empty(t, jar.Cookies(u))
}

func TestBoltJarPathMatchingRequiresSegmentBoundary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.db")
	jar := openJar(t, path)

	jar.SetCookies(mustURL(t, "http://api.example.com/ap"), []*http.Cookie{{Name: "s", Value: "a", Path: "/ap"}})

	assert.Len(t, jar.Cookies(mustURL(t, "http://api.example.com/ap")), 1)
	assert.Len(t, jar.Cookies(mustURL(t, "http://api.example.com/ap/deep")), 1)
	assert.Empty(t, jar.Cookies(mustURL(t, "http://api.example.com/apple")))
}
