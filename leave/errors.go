/*
errors.go - Error kinds reported by the leave engine

ERROR KINDS:
  ErrValidation          malformed or inconsistent input (start after end, unknown manager)
  ErrInvalidTransition   status machine violation (approving a denied request)
  ErrInsufficientBalance approval would drive holidays_left negative
  ErrNotFound            referenced employee, manager or request is absent

Structured errors carry context and unwrap to their sentinel, so callers
match with errors.Is and inspect details with errors.As:

    var te *leave.TransitionError
    if errors.As(err, &te) {
        log.Printf("request %s is %s", te.RequestID, te.From)
    }

Nothing here is retried automatically. Retry policy belongs to the caller.
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInsufficientBalance = errors.New("insufficient holiday balance")
	ErrNotFound            = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransitionError reports an action the request's current status forbids.
type TransitionError struct {
	RequestID RequestID
	From      Status
	Action    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s request %s: status is %s", e.Action, e.RequestID, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	EmployeeID EmployeeID
	Available  int
	Requested  int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient holiday balance for %s: available %d, requested %d",
		e.EmployeeID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "employee", "manager", "request"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a request the current state forbids.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInsufficientBalance)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
