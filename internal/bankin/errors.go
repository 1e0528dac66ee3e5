package bankin

import (
	"errors"
	"fmt"
)

// ErrMalformedPage marks a listing page without its item array.
var ErrMalformedPage = errors.New("malformed page: item array missing")

// AuthError reports a failed login or token exchange. It is always fatal to a run.
type AuthError struct {
	Op     string // "login" or "token"
	Status int    // HTTP status, 0 when no response was received
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("bankin %s failed (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("bankin %s failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError reports a failed page GET: network error, non-2xx status,
// undecodable body or missing item array.
type TransportError struct {
	URL    string
	Status int // HTTP status, 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("GET %s (status %d): %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is, or wraps, an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsTransportError reports whether err is, or wraps, a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
