// Package totp implements RFC 6238 time-based one-time passwords and the
// otpauth provisioning URI format used by authenticator apps.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gatehouse-dev/gatehouse/internal/util"
)

const (
	secretBytes = 20
	// Digits is the number of digits in a generated code.
	Digits = 6
	period = 30
	// window is the number of adjacent periods accepted on either side of
	// the current one, to absorb clock skew.
	window = 1
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret returns a new random base32-encoded shared secret.
func GenerateSecret() (string, error) {
	raw, err := util.RandomBytes(secretBytes)
	if err != nil {
		return "", err
	}
	return b32.EncodeToString(raw), nil
}

// Normalize strips spaces from a user-entered code.
func Normalize(code string) string {
	return strings.TrimSpace(strings.ReplaceAll(code, " ", ""))
}

// ValidFormat reports whether code is exactly six ASCII digits.
func ValidFormat(code string) bool {
	if len(code) != Digits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Verify checks code against secret at the given time, accepting codes from
// the adjacent periods on either side.
func Verify(secret, code string, now time.Time) bool {
	code = Normalize(code)
	if !ValidFormat(code) {
		return false
	}
	for i := -window; i <= window; i++ {
		at := now.Add(time.Duration(i*period) * time.Second)
		expected, err := CodeAt(secret, at)
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

// CodeAt computes the code for secret at the given time.
func CodeAt(secret string, at time.Time) (string, error) {
	decoded, err := b32.DecodeString(strings.ToUpper(Normalize(secret)))
	if err != nil {
		return "", fmt.Errorf("decoding totp secret: %w", err)
	}

	counter := uint64(at.Unix() / period)
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, decoded)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)
	offset := sum[len(sum)-1] & 0x0f
	binCode := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)
	otp := binCode % 1000000
	return fmt.Sprintf("%06d", otp), nil
}

// BuildURL assembles an otpauth:// provisioning URI for the given issuer and
// account label.
func BuildURL(secret, issuer, account string) string {
	label := url.PathEscape(issuer + ":" + account)
	values := url.Values{}
	values.Set("secret", secret)
	values.Set("issuer", issuer)
	values.Set("algorithm", "SHA1")
	values.Set("digits", strconv.Itoa(Digits))
	values.Set("period", strconv.Itoa(period))
	return "otpauth://totp/" + label + "?" + values.Encode()
}

// SecretFromURL extracts the shared secret embedded in an otpauth URI, so it
// can be shown to users who cannot scan a QR code.
func SecretFromURL(otpauthURL string) (string, error) {
	u, err := url.Parse(otpauthURL)
	if err != nil {
		return "", fmt.Errorf("parsing otpauth url: %w", err)
	}
	if u.Scheme != "otpauth" {
		return "", fmt.Errorf("not an otpauth url: scheme %q", u.Scheme)
	}
	secret := u.Query().Get("secret")
	if secret == "" {
		return "", fmt.Errorf("otpauth url has no secret parameter")
	}
	if _, err := b32.DecodeString(strings.ToUpper(secret)); err != nil {
		return "", fmt.Errorf("otpauth secret is not valid base32: %w", err)
	}
	return secret, nil
}
