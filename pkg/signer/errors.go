package signer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEncoding is returned when a message or key is not valid hex.
	ErrInvalidEncoding = errors.New("invalid hex encoding")

	// ErrSigningFailure matches every error produced by the signing path.
	ErrSigningFailure = errors.New("signing failure")
)

// SigningError carries the underlying cause of a failed signature so callers
// can report it while still matching ErrSigningFailure.
type SigningError struct {
	Cause error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("failed to sign transaction: %v", e.Cause)
}

func (e *SigningError) Unwrap() error {
	return e.Cause
}

func (e *SigningError) Is(target error) bool {
	return target == ErrSigningFailure
}

func newSigningError(cause error) error {
	return &SigningError{Cause: cause}
}
