/*
approval.go - Shared two-outcome approval state machine

PURPOSE:
  One state machine for every request kind in the system. Loan disbursements,
  monthly EMI-skip exceptions, and loan-ceiling overrides all carry the same
  Approval value and resolve through the same code path, rather than
  duplicating status logic three times.

STATE MACHINE:

                 ┌──────────┐
        submit   │ Pending  │
       ────────▶ │          │
                 └────┬─────┘
              ┌───────┴───────┐
              ▼               ▼
        ┌──────────┐    ┌──────────┐
        │ Approved │    │ Rejected │     (both terminal)
        └──────────┘    └──────────┘

TERMINAL-ONCE-SET:
  Approved and Rejected are terminal. Resolve checks the previously observed
  status and fails with ConflictError if it is not Pending. Callers MUST run
  Resolve inside DocStore.Transaction so the check and the write land as a
  single compare-and-swap: two admins racing on the same request get exactly
  one success and one ConflictError, never two terminal writes.

KIND REGISTRY:
  Each request kind registers the capability required to resolve it. Domain
  packages register their kinds on init().

EXAMPLE:
  err := store.Transaction(ctx, path, func(raw []byte) ([]byte, error) {
      loan := decode(raw)
      if err := loan.Approval.Resolve(loan.Kind(), generic.DecisionApprove, actor, now, ""); err != nil {
          return nil, err
      }
      return encode(loan), nil
  })

SEE ALSO:
  - docstore.go: The Transaction primitive that makes Resolve atomic
  - errors.go: ConflictError, AuthorizationError
*/
package generic

import (
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// STATUS & DECISION
// =============================================================================

type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// Terminal reports whether the status can never change again.
func (s ApprovalStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// =============================================================================
// KIND REGISTRY - Request kinds and their approval capabilities
// =============================================================================

// Kind identifies a request payload kind. Domain packages define their own
// kinds and register them with the capability required to resolve them.
type Kind string

var (
	kindRegistry = make(map[Kind]Capability)
	registryMu   sync.RWMutex
)

// RegisterKind maps a request kind to the capability required to resolve it.
// Call this from domain package init() functions.
func RegisterKind(k Kind, c Capability) {
	registryMu.Lock()
	defer registryMu.Unlock()
	kindRegistry[k] = c
}

// CapabilityFor returns the capability required to resolve the given kind.
func CapabilityFor(k Kind) (Capability, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := kindRegistry[k]
	return c, ok
}

// =============================================================================
// APPROVAL - Embedded approval state
// =============================================================================

// Approval is the shared approval state embedded in every request kind.
// ApprovedBy/ApprovedAt record the resolving actor for BOTH outcomes; the
// Status field distinguishes approval from rejection.
type Approval struct {
	Status      ApprovalStatus `json:"status"`
	RequestedBy string         `json:"requestedBy"`
	RequestedAt time.Time      `json:"requestedAt"`
	ApprovedBy  string         `json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time     `json:"approvedAt,omitempty"`
	Comments    string         `json:"comments,omitempty"`
}

// NewApproval returns a Pending approval submitted by the given requester.
func NewApproval(requestedBy string, at time.Time) Approval {
	return Approval{Status: StatusPending, RequestedBy: requestedBy, RequestedAt: at}
}

// Resolve applies a decision to a Pending approval.
//
// Fails with AuthorizationError if the actor lacks the capability registered
// for kind, and with ConflictError if the status is not Pending. On success
// the status and approver fields are set together; run this inside a store
// transaction so the status check and the write are one atomic unit.
func (a *Approval) Resolve(kind Kind, decision Decision, actor Actor, at time.Time, comments string) error {
	required, ok := CapabilityFor(kind)
	if !ok {
		return fmt.Errorf("unregistered request kind %q", kind)
	}
	if !actor.Can(required) {
		return &AuthorizationError{ActorID: actor.ID, Required: required}
	}
	if a.Status != StatusPending {
		return &ConflictError{Subject: string(kind), Observed: string(a.Status)}
	}

	switch decision {
	case DecisionApprove:
		a.Status = StatusApproved
	case DecisionReject:
		a.Status = StatusRejected
	default:
		return &ValidationError{Field: "decision", Message: fmt.Sprintf("unknown decision %q", decision)}
	}
	a.ApprovedBy = actor.ID
	t := at
	a.ApprovedAt = &t
	if comments != "" {
		a.Comments = comments
	}
	return nil
}
