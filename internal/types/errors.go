// Package types provides common type definitions used across the backend
package types

import "errors"

// Chain access
var (
	// ErrChainUnavailable is returned when the chain RPC endpoint cannot be reached or times out
	ErrChainUnavailable = errors.New("chain unavailable")
	// ErrChainIDMismatch the RPC endpoint serves a different chain than configured
	ErrChainIDMismatch = errors.New("chain id mismatch")
)

// Recipient data
var (
	ErrEmptyInput           = errors.New("empty input")
	ErrInvalidAddressFormat = errors.New("invalid address format")
	ErrDuplicateRecipient   = errors.New("duplicate recipient")
	ErrTooFewRecipients     = errors.New("too few recipients")
	ErrRecipientNotFound    = errors.New("recipient not found")
)

// User input
var (
	ErrInvalidAmountFormat = errors.New("invalid amount format")
)

// Step lifecycle
var (
	ErrWindowNotReady      = errors.New("distribution window not ready")
	ErrInvalidWindowConfig = errors.New("invalid distribution window config")
	ErrStepNotFound        = errors.New("step not found")
	ErrStepClosed          = errors.New("step closed")
)

// IsValidationError reports whether err is caused by malformed user input
// rather than chain or lifecycle state.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrInvalidAddressFormat) ||
		errors.Is(err, ErrDuplicateRecipient) ||
		errors.Is(err, ErrTooFewRecipients) ||
		errors.Is(err, ErrInvalidAmountFormat)
}
