/*
reconcile.go - Balance reconciliation against the payroll run

PURPOSE:
  Recomputes the remaining balance and the loan status from recorded payroll
  credits. The invariant maintained here:

    remainingBalance = max(0, approvedAmount − Σ credited payments)
    status = Repaid  ⇔  remainingBalance = 0 ∧ at least one credit exists

ATOMICITY:
  The payment insertion, the balance recomputation, and the Repaid
  transition happen inside ONE store transaction. A crash between them can
  never leave remainingBalance = 0 with status still Approved, and a
  duplicated payroll submission for the same month is rejected with
  ConflictError rather than silently reapplied.

SEE ALSO:
  - ledger.go: The other writer of loan documents
  - payroll.go: The inbound port the payroll run calls
*/
package loan

import (
	"context"
	"time"

	"github.com/warp/loan-engine/generic"
)

// Reconciler records payroll credits and keeps balance and status consistent.
type Reconciler struct {
	ledger *Ledger

	Now func() time.Time
}

// NewReconciler creates a reconciler writing through the given ledger's store.
func NewReconciler(ledger *Ledger) *Reconciler {
	return &Reconciler{ledger: ledger, Now: time.Now}
}

// RecordPayrollCredit inserts the EmiPayment for a month, recomputes the
// remaining balance, and flips the loan to Repaid when it reaches zero.
//
// Fails with ConflictError if a payment already exists for the month (no
// duplicate crediting) or the loan is already terminal, and with
// NotScheduledError if the loan was never approved.
func (r *Reconciler) RecordPayrollCredit(ctx context.Context, loanID generic.LoanID, monthKey string, amount int64, deductedFrom string) (*Loan, error) {
	month, err := generic.ParseMonthKey(monthKey)
	if err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, &generic.ValidationError{Field: "amount", Message: "must not be negative"}
	}

	return r.ledger.mutate(ctx, loanID, func(loan *Loan) error {
		if _, ok := loan.EmiPayments[month]; ok {
			return &generic.ConflictError{Subject: "emi_payment", Observed: string(month)}
		}
		switch loan.Status {
		case StatusApproved:
			// The only state accepting credits.
		case StatusPending:
			return &generic.NotScheduledError{LoanID: loan.ID, Month: month, Reason: "loan not approved"}
		default:
			return &generic.ConflictError{Subject: "loan", Observed: string(loan.Status)}
		}

		payment := &EmiPayment{
			Month:           month,
			Amount:          amount,
			PaidAt:          r.Now(),
			PayrollCredited: true,
			DeductedFrom:    deductedFrom,
		}
		if loan.EmiPayments == nil {
			loan.EmiPayments = make(map[generic.MonthKey]*EmiPayment)
		}
		loan.EmiPayments[month] = payment

		remaining := loan.ComputeRemaining()
		payment.RemainingBalance = remaining
		loan.RemainingBalance = remaining
		if remaining == 0 {
			loan.Status = StatusRepaid
		}
		return nil
	})
}
