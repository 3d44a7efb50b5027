package dispatch

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned when no provider credential is configured. The
// assist feature is disabled but the rest of the service keeps working.
var ErrUnavailable = errors.New("completion provider is not available: no API key configured")

// ValidationError reports a request rejected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// AuthError reports a credential rejection by the provider.
type AuthError struct {
	Persona    string
	StatusCode int
	Detail     string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("error getting response from %s: provider rejected credentials (status %d): %s",
		e.Persona, e.StatusCode, e.Detail)
}

// TransportError reports a network failure, timeout, malformed response, or
// any non-auth provider failure.
type TransportError struct {
	Persona string
	Detail  string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("error getting response from %s: %s", e.Persona, e.Detail)
	}
	return fmt.Sprintf("error getting response from %s: %v", e.Persona, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
