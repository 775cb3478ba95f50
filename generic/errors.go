/*
errors.go - Centralized error types for the approval engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages should wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - Malformed or policy-violating input, checked before any write
  2. Authorization errors - Actor lacks the approval capability
  3. Conflict errors - Status already terminal, or duplicate per-month write
  4. Precheck errors - Operation blocked by an unresolved sub-request
  5. Scheduling errors - Due amount requested outside the loan's schedule

RETRY SEMANTICS:
  Nothing is retried inside the engine. Conflicts are surfaced to the caller
  for re-read-and-retry; validation and authorization failures are final.

USAGE:
  Domain packages can wrap generic errors:

    if errors.Is(err, generic.ErrConflict) {
        // re-read the document and decide whether to retry
    }

SEE ALSO:
  - approval.go: Uses these errors
  - docstore.go: Uses these errors
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed or policy-violating input.
	// Always checked before any write; the store is never partially mutated.
	ErrValidation = errors.New("validation failed")

	// ErrAuthorization is returned when the actor lacks the approval
	// capability for the request kind.
	ErrAuthorization = errors.New("actor not authorized")

	// ErrConflict is returned when a status is already terminal or a
	// per-month record already exists. The caller should re-read and decide.
	ErrConflict = errors.New("conflicting concurrent update")

	// ErrPrecheckFailed is returned when loan approval is attempted while a
	// ceiling override is unresolved.
	ErrPrecheckFailed = errors.New("precheck failed")

	// ErrNotScheduled is returned when a due amount is requested for a loan
	// that is not Approved or for a month before disbursement.
	ErrNotScheduled = errors.New("loan not scheduled for month")

	// ErrNotFound is returned when a referenced document doesn't exist.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned when creating a document at an occupied path.
	ErrAlreadyExists = errors.New("document already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which input failed and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AuthorizationError reports the missing capability.
type AuthorizationError struct {
	ActorID  string
	Required Capability
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("actor %s lacks capability %s", e.ActorID, e.Required)
}

func (e *AuthorizationError) Unwrap() error { return ErrAuthorization }

// ConflictError reports the status the operation observed instead of Pending,
// or the month that already carries a record.
type ConflictError struct {
	Subject  string // e.g. "loan", "skip_emi_request", "emi_payment"
	Observed string // the status or key that caused the conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Subject, e.Observed)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// PrecheckFailedError carries the id of the blocking sub-request so the
// caller can route the user to resolve it.
type PrecheckFailedError struct {
	LoanID     LoanID
	BlockingID RequestID
	Reason     string
}

func (e *PrecheckFailedError) Error() string {
	return fmt.Sprintf("loan %s blocked by %s: %s", e.LoanID, e.BlockingID, e.Reason)
}

func (e *PrecheckFailedError) Unwrap() error { return ErrPrecheckFailed }

// NotScheduledError reports why no installment is due.
type NotScheduledError struct {
	LoanID LoanID
	Month  MonthKey
	Reason string
}

func (e *NotScheduledError) Error() string {
	return fmt.Sprintf("loan %s has no scheduled installment for %s: %s", e.LoanID, e.Month, e.Reason)
}

func (e *NotScheduledError) Unwrap() error { return ErrNotScheduled }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed after re-reading state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrAuthorization) ||
		errors.Is(err, ErrPrecheckFailed) ||
		errors.Is(err, ErrNotScheduled)
}

// IsNotFound returns true if the error indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
