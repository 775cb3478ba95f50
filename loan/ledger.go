/*
ledger.go - Loan lifecycle operations

PURPOSE:
  Owns Loan records: validates requests, applies the ceiling-override gate,
  and exposes the lifecycle transitions. Every mutation runs inside
  DocStore.Transaction on the loan's document, so precondition checks and
  writes land as one atomic unit (optimistic compare-and-swap on the
  previously observed status).

LIFECYCLE:

  RequestLoan ──▶ Pending ──┬─▶ ApproveLoan ──▶ Approved ──▶ Repaid
                            │      (blocked while an attached
                            │       MaxLoanOverride is unresolved)
                            └─▶ RejectLoan  ──▶ Rejected

  A rejected MaxLoanOverride rejects the loan itself; approval at a lower
  capped amount requires an explicit re-request.

CONCURRENCY:
  Two admins resolving the same Pending request concurrently get exactly one
  success and one ConflictError. No locks are held across operations; the
  caller retries on conflict, never the ledger.

ERROR HANDLING:
  All validation happens before any write; a failed operation leaves the
  store untouched. See generic/errors.go for the taxonomy.

SEE ALSO:
  - generic/approval.go: The shared resolution state machine
  - schedule.go: emiAmount derivation at approval time
  - reconcile.go: Payment recording (the other writer of loan documents)
*/
package loan

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/warp/loan-engine/generic"
)

// =============================================================================
// PATHS - Per-loan documents under a common prefix
// =============================================================================

const loanPathPrefix = "loans/"

func loanPath(id generic.LoanID) string { return loanPathPrefix + string(id) }

// =============================================================================
// LEDGER
// =============================================================================

// Ledger owns loan documents and their lifecycle transitions.
type Ledger struct {
	store     generic.DocStore
	directory EmployeeDirectory
	ceiling   CeilingPolicy

	// Injectable for tests.
	Now          func() time.Time
	NewID        func() generic.LoanID
	NewRequestID func() generic.RequestID
}

// NewLedger creates a ledger over the given store, employee directory, and
// ceiling policy.
func NewLedger(store generic.DocStore, directory EmployeeDirectory, ceiling CeilingPolicy) *Ledger {
	return &Ledger{
		store:        store,
		directory:    directory,
		ceiling:      ceiling,
		Now:          time.Now,
		NewID:        func() generic.LoanID { return generic.LoanID(uuid.NewString()) },
		NewRequestID: func() generic.RequestID { return generic.RequestID(uuid.NewString()) },
	}
}

// =============================================================================
// REQUEST
// =============================================================================

// RequestLoan creates a Pending loan for an active employee.
//
// If the amount exceeds the employee's standard ceiling, a Pending
// MaxLoanOverride is attached with salary and ceiling snapshots; the loan may
// not progress to Approved until the override resolves.
func (l *Ledger) RequestLoan(ctx context.Context, employeeID generic.EmployeeID, amount int64, reason string, emiMonths int, requestedBy string) (*Loan, error) {
	if amount <= 0 {
		return nil, &generic.ValidationError{Field: "amount", Message: "must be positive"}
	}
	if emiMonths <= 0 {
		return nil, &generic.ValidationError{Field: "emiMonths", Message: "must be positive"}
	}

	emp, err := l.directory.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("employee lookup: %w", err)
	}
	if !emp.Active() {
		return nil, &generic.ValidationError{Field: "employeeId", Message: fmt.Sprintf("employee %s is not active (status %q)", employeeID, emp.Status)}
	}

	now := l.Now()
	loan := &Loan{
		ID:              l.NewID(),
		EmployeeID:      employeeID,
		EmployeeName:    emp.Name,
		RequestedAmount: amount,
		Reason:          reason,
		RequestDate:     now,
		EmiMonths:       emiMonths,
		Status:          StatusPending,
		CreatedBy:       requestedBy,
		CreatedAt:       now,
	}

	standardMax := l.ceiling.StandardMax(emp.Salary.GrossMonthly)
	if amount > standardMax {
		loan.MaxLoanOverride = &MaxLoanOverride{
			ID:              l.NewRequestID(),
			Approval:        generic.NewApproval(requestedBy, now),
			RequestedAmount: amount,
			Reason:          reason,
			EmployeeGross:   emp.Salary.GrossMonthly,
			StandardMax:     standardMax,
		}
	}

	data, err := json.Marshal(loan)
	if err != nil {
		return nil, fmt.Errorf("encode loan: %w", err)
	}
	if err := l.store.Create(ctx, loanPath(loan.ID), data); err != nil {
		return nil, fmt.Errorf("persist loan: %w", err)
	}
	return loan, nil
}

// =============================================================================
// APPROVAL / REJECTION
// =============================================================================

// ApproveLoan resolves the loan's disbursement request with an Approve
// decision. The approved amount may differ from the requested one; it is set
// exactly once here and is immutable thereafter.
//
// Fails with PrecheckFailedError while an attached MaxLoanOverride is still
// Pending, and with ConflictError if the loan is no longer Pending.
func (l *Ledger) ApproveLoan(ctx context.Context, loanID generic.LoanID, approvedAmount int64, actor generic.Actor) (*Loan, error) {
	if approvedAmount <= 0 {
		return nil, &generic.ValidationError{Field: "approvedAmount", Message: "must be positive"}
	}

	return l.mutate(ctx, loanID, func(loan *Loan) error {
		if ov := loan.MaxLoanOverride; ov != nil && ov.Status == generic.StatusPending {
			return &generic.PrecheckFailedError{
				LoanID:     loan.ID,
				BlockingID: ov.ID,
				Reason:     "max loan override is unresolved",
			}
		}

		now := l.Now()
		approval := loan.approvalView()
		if err := approval.Resolve(KindLoan, generic.DecisionApprove, actor, now, ""); err != nil {
			return err
		}
		loan.applyApproval(approval)

		disbursed := now
		loan.ApprovedAmount = approvedAmount
		loan.DisbursedDate = &disbursed
		loan.EmiAmount = ComputeEmiAmount(approvedAmount, loan.EmiMonths)
		loan.RemainingBalance = approvedAmount
		return nil
	})
}

// RejectLoan is the terminal Rejected transition; no further action is
// possible on this loan.
func (l *Ledger) RejectLoan(ctx context.Context, loanID generic.LoanID, actor generic.Actor, reason string) (*Loan, error) {
	return l.mutate(ctx, loanID, func(loan *Loan) error {
		approval := loan.approvalView()
		if err := approval.Resolve(KindLoan, generic.DecisionReject, actor, l.Now(), reason); err != nil {
			return err
		}
		loan.applyApproval(approval)
		return nil
	})
}

// =============================================================================
// SKIP-EMI REQUESTS
// =============================================================================

// RequestSkipEmi records a Pending skip request for one month. One request
// per month; a month that already has a payroll-credited payment cannot be
// skipped.
func (l *Ledger) RequestSkipEmi(ctx context.Context, loanID generic.LoanID, monthKey string, requestedBy, reason string) (*Loan, error) {
	month, err := generic.ParseMonthKey(monthKey)
	if err != nil {
		return nil, err
	}

	return l.mutate(ctx, loanID, func(loan *Loan) error {
		if p, ok := loan.EmiPayments[month]; ok && p.PayrollCredited {
			return &generic.ValidationError{Field: "month", Message: fmt.Sprintf("EMI for %s already credited by payroll", month)}
		}
		if _, ok := loan.SkipEmiRequests[month]; ok {
			return &generic.ValidationError{Field: "month", Message: fmt.Sprintf("skip request for %s already exists", month)}
		}
		if loan.SkipEmiRequests == nil {
			loan.SkipEmiRequests = make(map[generic.MonthKey]*SkipEmiRequest)
		}
		loan.SkipEmiRequests[month] = &SkipEmiRequest{
			Approval: generic.NewApproval(requestedBy, l.Now()),
			Reason:   reason,
		}
		return nil
	})
}

// ResolveSkipEmi resolves the skip request for a month. On Approve the
// scheduler returns 0 for that month from then on; the term is not extended
// and later months do not shift.
//
// A skip may only be approved for a month without a payroll-credited payment.
// The request-time check in RequestSkipEmi is not enough: payroll may credit
// the month while the request is still Pending, so approval re-checks and
// fails with ConflictError rather than retroactively zeroing a deducted month.
// Rejecting the stale request stays possible so the audit trail can close.
func (l *Ledger) ResolveSkipEmi(ctx context.Context, loanID generic.LoanID, monthKey string, decision generic.Decision, actor generic.Actor) (*Loan, error) {
	month, err := generic.ParseMonthKey(monthKey)
	if err != nil {
		return nil, err
	}

	return l.mutate(ctx, loanID, func(loan *Loan) error {
		skip, ok := loan.SkipEmiRequests[month]
		if !ok {
			return fmt.Errorf("skip request for %s: %w", month, generic.ErrNotFound)
		}
		if p, ok := loan.EmiPayments[month]; ok && p.PayrollCredited && decision == generic.DecisionApprove {
			return &generic.ConflictError{Subject: "skip_emi_request", Observed: fmt.Sprintf("EMI for %s already credited by payroll", month)}
		}
		return skip.Resolve(KindSkipEmi, decision, actor, l.Now(), "")
	})
}

// =============================================================================
// MAX-LOAN OVERRIDE
// =============================================================================

// ResolveMaxLoanOverride resolves the loan's ceiling override. Approval
// unblocks ApproveLoan. Rejection rejects the loan itself: a loan cannot be
// silently approved at a lower amount, the employee must re-request.
func (l *Ledger) ResolveMaxLoanOverride(ctx context.Context, loanID generic.LoanID, decision generic.Decision, actor generic.Actor) (*Loan, error) {
	return l.mutate(ctx, loanID, func(loan *Loan) error {
		ov := loan.MaxLoanOverride
		if ov == nil {
			return fmt.Errorf("max loan override: %w", generic.ErrNotFound)
		}
		now := l.Now()
		if err := ov.Resolve(KindMaxLoanOverride, decision, actor, now, ""); err != nil {
			return err
		}
		if decision == generic.DecisionReject && loan.Status == StatusPending {
			loan.Status = StatusRejected
			loan.ApprovedBy = actor.ID
			at := now
			loan.ApprovedAt = &at
		}
		return nil
	})
}

// =============================================================================
// READS
// =============================================================================

// GetLoan returns a loan by id.
func (l *Ledger) GetLoan(ctx context.Context, loanID generic.LoanID) (*Loan, error) {
	data, err := l.store.Read(ctx, loanPath(loanID))
	if err != nil {
		return nil, fmt.Errorf("loan %s: %w", loanID, err)
	}
	return decodeLoan(data)
}

// ListLoans returns all loans, newest request first.
func (l *Ledger) ListLoans(ctx context.Context) ([]*Loan, error) {
	docs, err := l.store.List(ctx, loanPathPrefix)
	if err != nil {
		return nil, err
	}
	loans := make([]*Loan, 0, len(docs))
	for _, data := range docs {
		loan, err := decodeLoan(data)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].RequestDate.After(loans[j].RequestDate) })
	return loans, nil
}

// LoansForEmployee returns the employee's loans, newest request first.
func (l *Ledger) LoansForEmployee(ctx context.Context, employeeID generic.EmployeeID) ([]*Loan, error) {
	all, err := l.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	var loans []*Loan
	for _, loan := range all {
		if loan.EmployeeID == employeeID {
			loans = append(loans, loan)
		}
	}
	return loans, nil
}

// =============================================================================
// INTERNAL
// =============================================================================

// mutate runs fn against the loan document inside a store transaction.
// The decode, the precondition checks inside fn, and the re-encode commit as
// one atomic unit; on error nothing is written.
func (l *Ledger) mutate(ctx context.Context, loanID generic.LoanID, fn func(*Loan) error) (*Loan, error) {
	var result *Loan
	err := l.store.Transaction(ctx, loanPath(loanID), func(current []byte) ([]byte, error) {
		loan, err := decodeLoan(current)
		if err != nil {
			return nil, err
		}
		if err := fn(loan); err != nil {
			return nil, err
		}
		data, err := json.Marshal(loan)
		if err != nil {
			return nil, fmt.Errorf("encode loan: %w", err)
		}
		result = loan
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func decodeLoan(data []byte) (*Loan, error) {
	var loan Loan
	if err := json.Unmarshal(data, &loan); err != nil {
		return nil, fmt.Errorf("decode loan: %w", err)
	}
	return &loan, nil
}
