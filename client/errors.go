package client

import "errors"

// GenericErrorMessage is shown when the server did not provide a message.
const GenericErrorMessage = "Something went wrong."

// APIError is a non-2xx response from the API server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return GenericErrorMessage
}

// IsStatus reports whether err is an *APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Message extracts a user-displayable message from any error returned by
// this package: the server-provided message when present, otherwise the
// generic fallback.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericErrorMessage
}
