package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuotaExhausted is returned by the credential pool when no
	// credential has enough headroom for the requested cost.
	ErrQuotaExhausted = errors.New("all credentials exhausted")

	// ErrQuotaViolation marks a provider response that indicates the
	// credential itself is out of quota, regardless of local accounting.
	// Adapters wrap it; the pool reacts by exhausting the credential.
	ErrQuotaViolation = errors.New("provider reported quota exceeded")

	// ErrCircuitOpen is reported for providers skipped by the breaker.
	ErrCircuitOpen = errors.New("circuit open")
)

// IsQuotaViolation reports whether err carries a provider-side quota
// signal.
func IsQuotaViolation(err error) bool {
	return errors.Is(err, ErrQuotaViolation)
}

// ParseError marks a provider response the adapter could not interpret.
// The affected page is skipped; the cycle continues.
type ParseError struct {
	Provider string
	Page     int
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s page %d: %v", e.Provider, e.Page, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
