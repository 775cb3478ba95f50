/*
reconcile_test.go - Payroll credit recording and the Repaid transition

Exercises the balance invariant (remaining = max(0, approved − Σ credited)),
duplicate-credit rejection, the atomic Repaid flip on the final installment,
and terminal-state protection.
*/
package loan_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loan-engine/generic"
	"github.com/warp/loan-engine/loan"
)

func newTestReconciler(t *testing.T) (*loan.Ledger, *loan.Reconciler) {
	t.Helper()
	ledger := newTestLedger(t)
	reconciler := loan.NewReconciler(ledger)
	reconciler.Now = func() time.Time { return testClock }
	return ledger, reconciler
}

func TestRecordPayrollCredit_UpdatesBalanceSnapshot(t *testing.T) {
	ledger, reconciler := newTestReconciler(t)
	ctx := context.Background()
	l := approvedTestLoan(t, ledger) // 60000 over 6 months, EMI 10000

	updated, err := reconciler.RecordPayrollCredit(ctx, l.ID, "2025-01", 10000, "payroll-2025-01")
	require.NoError(t, err)

	assert.Equal(t, int64(50000), updated.RemainingBalance)
	assert.Equal(t, loan.StatusApproved, updated.Status)

	payment := updated.EmiPayments["2025-01"]
	require.NotNil(t, payment)
	assert.Equal(t, int64(10000), payment.Amount)
	assert.True(t, payment.PayrollCredited)
	assert.Equal(t, int64(50000), payment.RemainingBalance, "per-payment snapshot matches the loan")
	assert.Equal(t, "payroll-2025-01", payment.DeductedFrom)
	assert.Equal(t, testClock, payment.PaidAt)
}

func TestRecordPayrollCredit_FullRepaymentFlipsRepaid(t *testing.T) {
	// GIVEN: An approved 60000 loan over 6 months
	// WHEN: All six monthly credits are recorded
	// THEN: The final credit atomically sets balance 0 AND status Repaid

	ledger, reconciler := newTestReconciler(t)
	ctx := context.Background()
	l := approvedTestLoan(t, ledger)

	month := generic.MonthKey("2025-01")
	for i := 0; i < 6; i++ {
		updated, err := reconciler.RecordPayrollCredit(ctx, l.ID, string(month), 10000, "payroll-"+string(month))
		require.NoError(t, err)
		if i < 5 {
			assert.Equal(t, loan.StatusApproved, updated.Status, "month %s", month)
			assert.Positive(t, updated.RemainingBalance)
		} else {
			assert.Equal(t, loan.StatusRepaid, updated.Status)
			assert.Zero(t, updated.RemainingBalance)
		}
		month = month.AddMonths(1)
	}

	// Repaid is terminal: further credits rejected
	_, err := reconciler.RecordPayrollCredit(ctx, l.ID, "2025-07", 10000, "payroll-2025-07")
	assert.ErrorIs(t, err, generic.ErrConflict)
}

func TestRecordPayrollCredit_Overpayment_ClampsAtZero(t *testing.T) {
	ledger, reconciler := newTestReconciler(t)
	ctx := context.Background()
	l := approvedTestLoan(t, ledger)

	// A single oversized credit (payroll ran an off-cycle settlement)
	updated, err := reconciler.RecordPayrollCredit(ctx, l.ID, "2025-01", 70000, "settlement-2025-01")
	require.NoError(t, err)

	assert.Zero(t, updated.RemainingBalance, "balance never goes negative")
	assert.Equal(t, loan.StatusRepaid, updated.Status)
}

func TestRecordPayrollCredit_DuplicateMonthRejected(t *testing.T) {
	// GIVEN: A month already credited
	// WHEN: The same payroll submission is replayed
	// THEN: ConflictError, and neither the payment nor the balance changes

	ledger, reconciler := newTestReconciler(t)
	ctx := context.Background()
	l := approvedTestLoan(t, ledger)

	_, err := reconciler.RecordPayrollCredit(ctx, l.ID, "2025-01", 10000, "payroll-2025-01")
	require.NoError(t, err)

	_, err = reconciler.RecordPayrollCredit(ctx, l.ID, "2025-01", 10000, "payroll-2025-01-retry")
	assert.ErrorIs(t, err, generic.ErrConflict)

	stored, err := ledger.GetLoan(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), stored.RemainingBalance, "replay did not double-count")
	assert.Len(t, stored.EmiPayments, 1)
	assert.Equal(t, "payroll-2025-01", stored.EmiPayments["2025-01"].DeductedFrom, "original payment untouched")
}

func TestRecordPayrollCredit_ConcurrentSameMonth_ExactlyOneApplies(t *testing.T) {
	ledger, reconciler := newTestReconciler(t)
	ctx := context.Background()
	l := approvedTestLoan(t, ledger)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reconciler.RecordPayrollCredit(ctx, l.ID, "2025-01", 10000, "payroll-2025-01")
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, generic.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	stored, _ := ledger.GetLoan(ctx, l.ID)
	assert.Equal(t, int64(50000), stored.RemainingBalance)
}

func TestRecordPayrollCredit_RejectsByState(t *testing.T) {
	ledger, reconciler := newTestReconciler(t)
	ctx := context.Background()

	// Pending loan: never scheduled
	pending, err := ledger.RequestLoan(ctx, "emp-1", 60000, "x", 6, "emp-1")
	require.NoError(t, err)
	_, err = reconciler.RecordPayrollCredit(ctx, pending.ID, "2025-01", 10000, "payroll")
	assert.ErrorIs(t, err, generic.ErrNotScheduled)

	// Rejected loan: terminal conflict
	rejectedLoan, err := ledger.RequestLoan(ctx, "emp-1", 60000, "y", 6, "emp-1")
	require.NoError(t, err)
	_, err = ledger.RejectLoan(ctx, rejectedLoan.ID, admin(), "no")
	require.NoError(t, err)
	_, err = reconciler.RecordPayrollCredit(ctx, rejectedLoan.ID, "2025-01", 10000, "payroll")
	assert.ErrorIs(t, err, generic.ErrConflict)
}

func TestRecordPayrollCredit_InputValidation(t *testing.T) {
	ledger, reconciler := newTestReconciler(t)
	ctx := context.Background()
	l := approvedTestLoan(t, ledger)

	_, err := reconciler.RecordPayrollCredit(ctx, l.ID, "2025-1", 10000, "payroll")
	assert.ErrorIs(t, err, generic.ErrValidation, "malformed month key")

	_, err = reconciler.RecordPayrollCredit(ctx, l.ID, "2025-01", -1, "payroll")
	assert.ErrorIs(t, err, generic.ErrValidation, "negative amount")

	_, err = reconciler.RecordPayrollCredit(ctx, "loan-missing", "2025-01", 10000, "payroll")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestRecordPayrollCredit_ZeroAmountAllowedForSkippedMonth(t *testing.T) {
	// A skip-approved month may still be reported by payroll with amount 0 to
	// keep the per-month audit trail complete. It must not alter the balance.
	ledger, reconciler := newTestReconciler(t)
	ctx := context.Background()
	l := approvedTestLoan(t, ledger)

	_, err := ledger.RequestSkipEmi(ctx, l.ID, "2025-03", "emp-1", "unpaid leave")
	require.NoError(t, err)
	_, err = ledger.ResolveSkipEmi(ctx, l.ID, "2025-03", generic.DecisionApprove, admin())
	require.NoError(t, err)

	updated, err := reconciler.RecordPayrollCredit(ctx, l.ID, "2025-03", 0, "payroll-2025-03")
	require.NoError(t, err)
	assert.Equal(t, int64(60000), updated.RemainingBalance)
	assert.Equal(t, loan.StatusApproved, updated.Status, "zero credit never flips Repaid")
}
