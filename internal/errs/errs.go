// Package errs defines the error taxonomy shared by the checkout and
// reconciliation flows. Handlers map these onto HTTP status codes.
package errs

import (
	"errors"
	"fmt"
)

// ErrNotConfigured indicates that a collaborator (payment provider, ledger,
// mailer) is missing credentials and cannot be used.
var ErrNotConfigured = errors.New("service is not configured")

// ValidationError rejects malformed client input before any outbound call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// UpstreamError wraps a failed call to an external collaborator. It is
// retryable by the caller only; the core never retries on its own.
type UpstreamError struct {
	Service string
	Status  int
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s returned status %d: %v", e.Service, e.Status, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Upstream builds an UpstreamError for a transport-level failure.
func Upstream(service string, err error) *UpstreamError {
	return &UpstreamError{Service: service, Err: err}
}

// UpstreamStatus builds an UpstreamError for a non-2xx response.
func UpstreamStatus(service string, status int, err error) *UpstreamError {
	return &UpstreamError{Service: service, Status: status, Err: err}
}

// NormalizationError means a provider payload carries no payment identifier.
// Without a ledger key the reconciliation attempt must be abandoned.
type NormalizationError struct {
	Provider string
	Reason   string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("cannot normalize %s payload: %s", e.Provider, e.Reason)
}
