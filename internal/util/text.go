package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeCredential applies NFKC normalization and trims surrounding
// whitespace, so that visually identical usernames and passwords entered on
// different platforms compare equal on the server.
func NormalizeCredential(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}
