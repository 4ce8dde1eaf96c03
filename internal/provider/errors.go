package provider

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a call failure for retry decisions.
type Kind string

const (
	KindAuth        Kind = "auth"         // invalid or rejected credentials, never retried
	KindRateLimited Kind = "rate_limited" // backend asked us to slow down
	KindServer      Kind = "server"       // 5xx from the backend
	KindNetwork     Kind = "network"      // timeout or transport failure
	KindMalformed   Kind = "malformed"    // bad request or unusable response
)

// Error wraps a backend failure with its classification.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the classification from err, or "" for foreign errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// Retryable reports whether another attempt could reasonably succeed.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindServer, KindNetwork:
		return true
	}
	return false
}

func kindFromStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 429:
		return KindRateLimited
	case status >= 500:
		return KindServer
	default:
		return KindMalformed
	}
}

// classifyTransport maps non-HTTP failures. Timeouts and connection
// errors are network faults; a cancelled context passes through so
// callers can tell shutdown apart from backend trouble.
func classifyTransport(providerID string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &Error{Kind: KindNetwork, Provider: providerID, Err: err}
}
