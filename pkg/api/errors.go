package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the data API. A 401 means the session
// is no longer valid; callers end the session and never retry it.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// NetworkError is a connection-level failure: the request never produced a
// server response. For read paths callers treat this the same as being
// offline.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is a connection-level failure.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsUnauthorized reports whether err is a 401 session-invalidation signal.
func IsUnauthorized(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}
