/*
Package generic provides the core approval engine.

PURPOSE:
  This package contains domain-agnostic types and algorithms for managing
  approvable requests. Whether the payload is a loan disbursement, a monthly
  EMI-skip exception, or a loan-ceiling override, the same state machine
  handles submission, resolution, and the terminal-once-set guarantee.

KEY CONCEPTS IN THIS FILE (types.go):
  - MonthKey: A normalized "YYYY-MM" calendar month (used as map keys)
  - Actor: Who is performing a mutation, with explicit capabilities
  - Employee/Loan IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Terminal statuses are never rewritten, only read
  2. Explicitness: The acting user is a parameter, never ambient state
  3. Type Safety: Strong typing for IDs prevents mixing employee/loan IDs
  4. Auditability: Every resolution records who decided and when

USAGE:
  month, err := generic.ParseMonthKey("2025-03")
  actor := generic.Actor{ID: "mgr-7", Capabilities: []generic.Capability{generic.CapApproveLoan}}

SEE ALSO:
  - approval.go: The shared approval state machine
  - docstore.go: Persistence contract with atomic transactions
  - errors.go: Error taxonomy
*/
package generic

import (
	"fmt"
	"regexp"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type LoanID string
type RequestID string

// =============================================================================
// MONTH KEY - Normalized "YYYY-MM" calendar month
// =============================================================================

// MonthKey is a zero-padded "YYYY-MM" string identifying a calendar month.
// It is the key for per-month maps (skip requests, EMI payments), so the
// format is validated at the boundary and never constructed ad hoc.
type MonthKey string

var monthKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ParseMonthKey validates a month key string.
func ParseMonthKey(s string) (MonthKey, error) {
	if !monthKeyPattern.MatchString(s) {
		return "", &ValidationError{Field: "month", Message: fmt.Sprintf("invalid month key %q, want YYYY-MM", s)}
	}
	return MonthKey(s), nil
}

// MonthKeyOf returns the MonthKey for the month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(t.UTC().Format("2006-01"))
}

// Time returns midnight UTC on the first day of the month.
func (m MonthKey) Time() time.Time {
	t, err := time.Parse("2006-01", string(m))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddMonths returns the month key n months after m (n may be negative).
func (m MonthKey) AddMonths(n int) MonthKey {
	return MonthKeyOf(m.Time().AddDate(0, n, 0))
}

// MonthsSince returns the number of whole months from other to m.
// Zero means same month, negative means m precedes other.
func (m MonthKey) MonthsSince(other MonthKey) int {
	a, b := m.Time(), other.Time()
	return (a.Year()-b.Year())*12 + int(a.Month()-b.Month())
}

// Before reports whether m is strictly earlier than other.
// Lexicographic order matches chronological order for zero-padded keys.
func (m MonthKey) Before(other MonthKey) bool {
	return string(m) < string(other)
}

// =============================================================================
// ACTOR - Explicit acting user threaded into every mutation
// =============================================================================

// Capability gates who may resolve which request kind.
type Capability string

const (
	CapApproveLoan     Capability = "approve:loan"
	CapApproveSkipEmi  Capability = "approve:skip_emi"
	CapApproveOverride Capability = "approve:max_loan_override"
)

// Actor identifies who is performing a mutating call. There is no ambient
// "current user": every ledger operation takes an Actor parameter.
type Actor struct {
	ID           string
	Capabilities []Capability
}

// Can reports whether the actor holds the given capability.
func (a Actor) Can(c Capability) bool {
	for _, have := range a.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// AdminActor returns an actor holding every approval capability.
// Convenience for tests and demo scenarios.
func AdminActor(id string) Actor {
	return Actor{ID: id, Capabilities: []Capability{CapApproveLoan, CapApproveSkipEmi, CapApproveOverride}}
}
