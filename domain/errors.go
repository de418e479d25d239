package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports a request rejected before any mutation took place.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// NewValidationError creates a validation error for a specific field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientFundsError reports a debit or escrow lock rejected because the
// user's available balance does not cover the requested amount.
type InsufficientFundsError struct {
	UserID    int64
	Available int64
	Requested int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for user %d: have %d available, need %d (short %d)",
		e.UserID, e.Available, e.Requested, e.Shortfall())
}

// NewInsufficientFundsError creates an insufficient funds error
func NewInsufficientFundsError(userID, available, requested int64) *InsufficientFundsError {
	return &InsufficientFundsError{UserID: userID, Available: available, Requested: requested}
}

// Shortfall returns how much the user is missing
func (e *InsufficientFundsError) Shortfall() int64 {
	return e.Requested - e.Available
}

// GatewayError carries the raw status and body of a failed gateway call.
// Any wallet mutation already applied has been reversed before this surfaces.
type GatewayError struct {
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("gateway %s failed: status %d: %s", e.Operation, e.Status, e.Body)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// ErrNotReady signals that a challenge result does not exist yet at the
// gateway. It drives the bounded backoff in authentication polling and never
// escapes to callers; exhausted retries surface as a GatewayError.
var ErrNotReady = errors.New("gateway result not ready")

// ErrConcurrentUpdate signals that an atomic-unit mutation detected a
// conflicting concurrent update. No partial state was committed, so the
// operation is safe to retry from scratch.
var ErrConcurrentUpdate = errors.New("conflicting concurrent update")

// IsRetryable reports whether an error is safe to retry from scratch
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate)
}
