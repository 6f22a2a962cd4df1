package flow

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gatehouse-dev/gatehouse/internal/util"
)

// FieldError is a client-side validation failure for a single form field.
// It blocks submission; no network call is made.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// IsFieldError reports whether err is a client-side validation failure.
func IsFieldError(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}

var (
	codePattern     = regexp.MustCompile(`^\d{6}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

const (
	minUsernameLen = 3
	maxUsernameLen = 20
	minPasswordLen = 6
	maxLabelLen    = 50
)

// ValidateLoginUsername applies the relaxed login-form rule: present and at
// least three characters.
func ValidateLoginUsername(username string) error {
	if utf8.RuneCountInString(util.NormalizeCredential(username)) < minUsernameLen {
		return &FieldError{Field: "username", Message: "Username is required"}
	}
	return nil
}

// ValidateAccountUsername applies the strict rule used by signup and
// passkey login: 3-20 characters from [a-zA-Z0-9_].
func ValidateAccountUsername(username string) error {
	username = util.NormalizeCredential(username)
	switch {
	case utf8.RuneCountInString(username) < minUsernameLen:
		return &FieldError{Field: "username", Message: "Username must be at least 3 characters"}
	case utf8.RuneCountInString(username) > maxUsernameLen:
		return &FieldError{Field: "username", Message: "Username must not exceed 20 characters"}
	case !usernamePattern.MatchString(username):
		return &FieldError{Field: "username", Message: "Username can only contain letters, numbers, and underscores"}
	}
	return nil
}

// ValidatePassword requires at least six characters.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return &FieldError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	return nil
}

// ValidateCode requires exactly six digits. Callers trim surrounding
// whitespace before validating so the value sent is the value checked.
func ValidateCode(code string) error {
	if !codePattern.MatchString(code) {
		return &FieldError{Field: "token", Message: "Must be a 6-digit code"}
	}
	return nil
}

// ValidateLabel requires a passkey name of 1-50 characters after trimming.
func ValidateLabel(label string) error {
	label = strings.TrimSpace(label)
	switch {
	case label == "":
		return &FieldError{Field: "label", Message: "Passkey name is required"}
	case utf8.RuneCountInString(label) > maxLabelLen:
		return &FieldError{Field: "label", Message: "Passkey name must be 50 characters or less"}
	}
	return nil
}
