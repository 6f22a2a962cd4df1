package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var jarBucket = []byte("cookies")

// BoltJar is an http.CookieJar persisted in a bbolt database, so separate
// CLI invocations share the server session. Cookies are stored per host and
// expired entries are dropped on read.
//
// The jar intentionally implements only what a first-party API client
// needs: exact-host matching with path prefixes. It is not a general
// browser jar.
type BoltJar struct {
	mu sync.Mutex
	db *bbolt.DB
}

var _ http.CookieJar = (*BoltJar)(nil)

// storedCookie is the persisted form of a cookie. Session cookies (no
// expiry) survive until explicitly replaced or deleted by the server.
type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
	Secure  bool      `json:"secure,omitempty"`
}

// NewBoltJar opens (or creates) a cookie jar database at path.
func NewBoltJar(path string) (*BoltJar, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cookie jar db: %w", err)
	}
	return &BoltJar{db: db}, nil
}

// Close closes the underlying database.
func (j *BoltJar) Close() error {
	return j.db.Close()
}

// SetCookies implements http.CookieJar. Cookies with MaxAge<0 or an expiry
// in the past are deleted, matching server-driven logout.
func (j *BoltJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	_ = j.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(jarBucket)
		if err != nil {
			return err
		}
		existing := loadHostCookies(b, u.Hostname())
		for _, c := range cookies {
			if c.Name == "" {
				continue
			}
			sc := storedCookie{
				Name:    c.Name,
				Value:   c.Value,
				Path:    c.Path,
				Secure:  c.Secure,
				Expires: c.Expires,
			}
			if c.MaxAge > 0 {
				sc.Expires = time.Now().Add(time.Duration(c.MaxAge) * time.Second)
			}
			expired := c.MaxAge < 0 ||
				(!sc.Expires.IsZero() && time.Now().After(sc.Expires))
			if expired {
				delete(existing, cookieKey(sc))
				continue
			}
			existing[cookieKey(sc)] = sc
		}
		data, err := json.Marshal(cookiesToSlice(existing))
		if err != nil {
			return err
		}
		return b.Put([]byte(u.Hostname()), data)
	})
}

// Cookies implements http.CookieJar.
func (j *BoltJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	var result []*http.Cookie
	_ = j.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(jarBucket)
		if b == nil {
			return nil
		}
		now := time.Now()
		for _, sc := range loadHostCookies(b, u.Hostname()) {
			if !sc.Expires.IsZero() && now.After(sc.Expires) {
				continue
			}
			if sc.Secure && u.Scheme != "https" {
				continue
			}
			if !pathMatches(sc.Path, u.Path) {
				continue
			}
			result = append(result, &http.Cookie{Name: sc.Name, Value: sc.Value})
		}
		return nil
	})
	return result
}

// Clear removes every cookie stored for the given host.
func (j *BoltJar) Clear(host string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(jarBucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(host))
	})
}

func loadHostCookies(b *bbolt.Bucket, host string) map[string]storedCookie {
	out := make(map[string]storedCookie)
	data := b.Get([]byte(host))
	if data == nil {
		return out
	}
	var list []storedCookie
	if err := json.Unmarshal(data, &list); err != nil {
		return out
	}
	for _, sc := range list {
		out[cookieKey(sc)] = sc
	}
	return out
}

func cookiesToSlice(m map[string]storedCookie) []storedCookie {
	out := make([]storedCookie, 0, len(m))
	for _, sc := range m {
		out = append(out, sc)
	}
	return out
}

func cookieKey(sc storedCookie) string {
	return sc.Name + ";" + sc.Path
}

func pathMatches(cookiePath, requestPath string) bool {
	if cookiePath == "" || cookiePath == "/" {
		return true
	}
	if requestPath == "" {
		requestPath = "/"
	}
	if requestPath == cookiePath {
		return true
	}
	if strings.HasSuffix(cookiePath, "/") {
		return strings.HasPrefix(requestPath, cookiePath)
	}
	return strings.HasPrefix(requestPath, cookiePath+"/")
}
