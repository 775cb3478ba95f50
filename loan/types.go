/*
Package loan implements the employee loan & EMI reconciliation engine.

PURPOSE:
  Owns Loan records and their nested audit trail (EMI-skip requests, the
  ceiling override, payroll-credited installments), the deterministic EMI
  schedule, and the balance reconciliation that keeps loan status consistent
  with the external payroll run.

KEY CONCEPTS IN THIS FILE (types.go):
  - Loan: The aggregate document, one per loan, never deleted
  - SkipEmiRequest / MaxLoanOverride: Approvable sub-requests, retained forever
  - EmiPayment: A payroll-credited installment, one per month
  - Month-keyed maps: "YYYY-MM" keys, one entry per month, validated at the
    boundary before any write

AMOUNTS:
  Ledger amounts are integer currency units; there is no implicit currency
  conversion inside the core. Salary figures and ceiling arithmetic use
  decimal.Decimal so the rounding policy is explicit.

SEE ALSO:
  - schedule.go: EMI amount computation and per-month due amounts
  - ledger.go: Lifecycle operations
  - reconcile.go: Payroll credit recording and Repaid transitions
*/
package loan

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/loan-engine/generic"
)

// =============================================================================
// REQUEST KINDS - Registered with the shared approval workflow
// =============================================================================

const (
	KindLoan            generic.Kind = "loan"
	KindSkipEmi         generic.Kind = "skip_emi_request"
	KindMaxLoanOverride generic.Kind = "max_loan_override"
)

func init() {
	generic.RegisterKind(KindLoan, generic.CapApproveLoan)
	generic.RegisterKind(KindSkipEmi, generic.CapApproveSkipEmi)
	generic.RegisterKind(KindMaxLoanOverride, generic.CapApproveOverride)
}

// =============================================================================
// EMPLOYEE - External, read-only to this engine
// =============================================================================

// Salary carries the figures the ceiling policy needs.
type Salary struct {
	GrossMonthly decimal.Decimal `json:"grossMonthly"`
}

// Employee is the read-only view of the employee master this engine consumes.
type Employee struct {
	ID          generic.EmployeeID `json:"id"`
	EmployeeID  string             `json:"employeeId"` // human-facing code, e.g. "EMP-0042"
	Name        string             `json:"name"`
	Department  string             `json:"department"`
	Salary      Salary             `json:"salary"`
	JoiningDate time.Time          `json:"joiningDate"`
	Status      string             `json:"status"`
}

// Active reports whether loan actions are permitted for this employee.
// The master system stores status free-form, so the check is case-insensitive.
func (e *Employee) Active() bool {
	return strings.EqualFold(e.Status, "active")
}

// =============================================================================
// LOAN STATUS
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusRepaid   Status = "repaid"
)

// Terminal reports whether the loan can never change status again.
// Approved is not terminal: the reconciler may still flip it to Repaid.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusRepaid
}

// =============================================================================
// SUB-REQUESTS - Resolved once, retained as audit trail
// =============================================================================

// SkipEmiRequest suspends the due EMI for one specific month once approved.
// At most one per month; may only exist for a month without a payroll-credited
// payment.
type SkipEmiRequest struct {
	generic.Approval
	Reason string `json:"reason"`
}

// MaxLoanOverride authorizes a loan exceeding the employee's standard ceiling.
// At most one per loan. EmployeeGross and StandardMax are snapshots taken at
// request time, so the audit trail survives later salary or policy changes.
type MaxLoanOverride struct {
	ID generic.RequestID `json:"id"`
	generic.Approval
	RequestedAmount int64           `json:"requestedAmount"`
	Reason          string          `json:"reason"`
	EmployeeGross   decimal.Decimal `json:"employeeGross"`
	StandardMax     int64           `json:"standardMax"`
}

// EmiPayment records one payroll-credited installment.
type EmiPayment struct {
	Month            generic.MonthKey `json:"month"`
	Amount           int64            `json:"amount"`
	PaidAt           time.Time        `json:"paidAt"`
	PayrollCredited  bool             `json:"payrollCredited"`
	RemainingBalance int64            `json:"remainingBalance"` // post-payment snapshot
	DeductedFrom     string           `json:"deductedFrom"`     // payroll batch identifier
}

// =============================================================================
// LOAN - The aggregate document
// =============================================================================

// Loan is stored as a single document per loan id; skip requests, the
// override, and payments are nested month-keyed maps inside it. That makes
// every status transition a single-document atomic write.
type Loan struct {
	ID              generic.LoanID     `json:"id"`
	EmployeeID      generic.EmployeeID `json:"employeeId"`
	EmployeeName    string             `json:"employeeName"`
	RequestedAmount int64              `json:"requestedAmount"`
	ApprovedAmount  int64              `json:"approvedAmount,omitempty"` // set once, at approval
	Reason          string             `json:"reason"`
	RequestDate     time.Time          `json:"requestDate"`
	EmiMonths       int                `json:"emiMonths"`
	EmiAmount       int64              `json:"emiAmount,omitempty"` // derived at approval

	Status        Status     `json:"status"`
	DisbursedDate *time.Time `json:"disbursedDate,omitempty"`
	ApprovedBy    string     `json:"approvedBy,omitempty"`
	ApprovedAt    *time.Time `json:"approvedAt,omitempty"`
	CreatedBy     string     `json:"createdBy"`
	CreatedAt     time.Time  `json:"createdAt"`

	SkipEmiRequests  map[generic.MonthKey]*SkipEmiRequest `json:"skipEmiRequests,omitempty"`
	MaxLoanOverride  *MaxLoanOverride                     `json:"maxLoanOverride,omitempty"`
	EmiPayments      map[generic.MonthKey]*EmiPayment     `json:"emiPayments,omitempty"`
	RemainingBalance int64                                `json:"remainingBalance"` // derived, cached
}

// approvalView projects the loan's flat approval fields into the shared
// workflow's Approval value. Status strings are shared between the two types,
// so a terminal loan (including Repaid) surfaces its real status in
// ConflictError.
func (l *Loan) approvalView() generic.Approval {
	return generic.Approval{
		Status:      generic.ApprovalStatus(l.Status),
		RequestedBy: l.CreatedBy,
		RequestedAt: l.CreatedAt,
		ApprovedBy:  l.ApprovedBy,
		ApprovedAt:  l.ApprovedAt,
	}
}

func (l *Loan) applyApproval(a generic.Approval) {
	l.Status = Status(a.Status)
	l.ApprovedBy = a.ApprovedBy
	l.ApprovedAt = a.ApprovedAt
}

// DisbursedMonth returns the month the EMI schedule starts in.
func (l *Loan) DisbursedMonth() generic.MonthKey {
	if l.DisbursedDate == nil {
		return ""
	}
	return generic.MonthKeyOf(*l.DisbursedDate)
}

// FinalScheduledMonth returns the last month of the EMI schedule.
func (l *Loan) FinalScheduledMonth() generic.MonthKey {
	start := l.DisbursedMonth()
	if start == "" || l.EmiMonths < 1 {
		return ""
	}
	return start.AddMonths(l.EmiMonths - 1)
}

// CreditedTotal sums all payroll-credited payments.
func (l *Loan) CreditedTotal() int64 {
	var total int64
	for _, p := range l.EmiPayments {
		if p.PayrollCredited {
			total += p.Amount
		}
	}
	return total
}

// ComputeRemaining returns max(0, approvedAmount − Σ credited payments).
func (l *Loan) ComputeRemaining() int64 {
	remaining := l.ApprovedAmount - l.CreditedTotal()
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// SkipApproved reports whether the month has an approved EMI-skip exception.
func (l *Loan) SkipApproved(month generic.MonthKey) bool {
	skip, ok := l.SkipEmiRequests[month]
	return ok && skip.Status == generic.StatusApproved
}

// PaymentMonths returns the months with recorded payments in chronological order.
func (l *Loan) PaymentMonths() []generic.MonthKey {
	months := make([]generic.MonthKey, 0, len(l.EmiPayments))
	for m := range l.EmiPayments {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}

// SkipRequestMonths returns the months with skip requests in chronological order.
func (l *Loan) SkipRequestMonths() []generic.MonthKey {
	months := make([]generic.MonthKey, 0, len(l.SkipEmiRequests))
	for m := range l.SkipEmiRequests {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}
