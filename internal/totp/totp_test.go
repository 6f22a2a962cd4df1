package totp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecretIsBase32(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)
	require.NotEmpty(t, secret)

	_, err = b32.DecodeString(secret)
	assert.NoError(t, err)
}

func TestCodeAtKnownVector(t *testing.T) {
	// RFC 6238 test vector: secret "12345678901234567890" (SHA-1),
	// T=59s yields 94287082 → last six digits 287082.
	secret := b32.EncodeToString([]byte("12345678901234567890"))
	code, err := CodeAt(secret, time.Unix(59, 0))
	require.NoError(t, err)
	assert.Equal(t, "287082", code)
}

func TestVerifyAcceptsAdjacentWindow(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	prev, err := CodeAt(secret, now.Add(-30*time.Second))
	require.NoError(t, err)

	assert.True(t, Verify(secret, prev, now))
	assert.False(t, Verify(secret, "000000", now))
}

func TestVerifyRejectsMalformedCodes(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)

	now := time.Now()
	for _, code := range []string{"", "12345", "1234567", "12345a", "abcdef"} {
		assert.False(t, Verify(secret, code, now), "code %q", code)
	}
}

func TestVerifyNormalizesSpaces(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)

	now := time.Now()
	code, err := CodeAt(secret, now)
	require.NoError(t, err)

	spaced := code[:3] + " " + code[3:]
	assert.True(t, Verify(secret, spaced, now))
}

func TestBuildAndParseURL(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)

	uri := BuildURL(secret, "Gatehouse", "alice")
	assert.Contains(t, uri, "otpauth://totp/")
	assert.Contains(t, uri, "issuer=Gatehouse")

	parsed, err := SecretFromURL(uri)
	require.NoError(t, err)
	assert.Equal(t, secret, parsed)
}

func TestSecretFromURLRejectsGarbage(t *testing.T) {
	for _, raw := range []string{
		"https://example.com?secret=ABC",
		"otpauth://totp/x",
		"otpauth://totp/x?secret=not!base32",
		"://",
	} {
		_, err := SecretFromURL(raw)
		assert.Error(t, err, "url %q", raw)
	}
}
