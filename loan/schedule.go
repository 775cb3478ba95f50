/*
schedule.go - Deterministic EMI schedule

PURPOSE:
  Computes the expected installment for a loan/month pair given the approved
  amount, term, and skip exceptions. The schedule is derived, never stored:
  given the same loan document it always produces the same answers.

ROUNDING POLICY:
  emiAmount = round(approvedAmount / emiMonths), and the FINAL scheduled
  month absorbs the rounding remainder so the schedule sums to the approved
  amount exactly:

    approved=10000, months=3  →  3333, 3333, 3334   (Σ = 10000)
    approved=60000, months=6  →  10000 × 6          (Σ = 60000)

SCHEDULE WINDOW:
  emiMonths consecutive months starting at the month of disbursement.
  An approved skip month owes 0 and does NOT shift later months or extend
  the term; the deferred liability stays in the outstanding balance and is
  collected after the scheduled window at the regular installment rate.

SEE ALSO:
  - reconcile.go: Consumes the credited amounts this schedule predicts
  - payroll.go: Aggregates DueForMonth across an employee's loans
*/
package loan

import (
	"github.com/shopspring/decimal"
	"github.com/warp/loan-engine/generic"
)

// ComputeEmiAmount returns round(approvedAmount / emiMonths) in whole
// currency units. Half-away-from-zero rounding, matching the ledger's
// integer-amount convention.
func ComputeEmiAmount(approvedAmount int64, emiMonths int) int64 {
	if emiMonths < 1 {
		return 0
	}
	return decimal.NewFromInt(approvedAmount).
		Div(decimal.NewFromInt(int64(emiMonths))).
		Round(0).
		IntPart()
}

// FinalEmiAmount returns the last scheduled installment: the approved amount
// minus all regular installments, so the full schedule sums exactly.
func FinalEmiAmount(approvedAmount int64, emiMonths int) int64 {
	if emiMonths < 1 {
		return 0
	}
	return approvedAmount - ComputeEmiAmount(approvedAmount, emiMonths)*int64(emiMonths-1)
}

// DueForMonth returns the installment due for the given month.
//
// Returns 0 for a month with an Approved skip request. Months inside the
// scheduled window owe emiAmount, except the final scheduled month which
// owes the remainder. Months after the window owe the regular installment
// capped at the outstanding balance (this is how skip-deferred liability is
// eventually collected).
//
// Fails with NotScheduledError if the loan is not Approved or the month
// precedes the disbursement month.
func DueForMonth(l *Loan, month generic.MonthKey) (int64, error) {
	if l.Status != StatusApproved {
		return 0, &generic.NotScheduledError{LoanID: l.ID, Month: month, Reason: "loan status is " + string(l.Status)}
	}
	start := l.DisbursedMonth()
	idx := month.MonthsSince(start)
	if idx < 0 {
		return 0, &generic.NotScheduledError{LoanID: l.ID, Month: month, Reason: "month precedes disbursement month " + string(start)}
	}

	if l.SkipApproved(month) {
		return 0, nil
	}

	switch {
	case idx == l.EmiMonths-1:
		return FinalEmiAmount(l.ApprovedAmount, l.EmiMonths), nil
	case idx >= l.EmiMonths:
		// Past the scheduled window: collect deferred liability, if any.
		due := l.EmiAmount
		if remaining := l.ComputeRemaining(); remaining < due {
			due = remaining
		}
		return due, nil
	default:
		return l.EmiAmount, nil
	}
}
