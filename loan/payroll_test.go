/*
payroll_test.go - The payroll port's due-amount aggregation

Covers per-employee aggregation across loans, skip-month suppression,
final-month remainder amounts, and the full due → credit round trip.
*/
package loan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loan-engine/generic"
	"github.com/warp/loan-engine/loan"
)

func TestDueAmount_AggregatesAcrossLoans(t *testing.T) {
	// GIVEN: emp-1 has two approved loans, 60000/6 (EMI 10000) and 12000/4
	//        (EMI 3000), both disbursed in 2025-01
	// WHEN: Payroll asks for 2025-02's deduction
	// THEN: Total is 13000 with one line per loan

	ledger, reconciler := newTestReconciler(t)
	port := loan.NewPayrollPort(ledger, reconciler)
	ctx := context.Background()

	first := approvedTestLoan(t, ledger)
	second, err := ledger.RequestLoan(ctx, "emp-1", 12000, "bike", 4, "emp-1")
	require.NoError(t, err)
	second, err = ledger.ApproveLoan(ctx, second.ID, 12000, admin())
	require.NoError(t, err)

	total, lines, err := port.DueAmount(ctx, "emp-1", "2025-02")
	require.NoError(t, err)
	assert.Equal(t, int64(13000), total)
	require.Len(t, lines, 2)

	byLoan := map[generic.LoanID]int64{}
	for _, line := range lines {
		byLoan[line.LoanID] = line.Amount
	}
	assert.Equal(t, int64(10000), byLoan[first.ID])
	assert.Equal(t, int64(3000), byLoan[second.ID])
}

func TestDueAmount_SkipsNonContributingLoans(t *testing.T) {
	ledger, reconciler := newTestReconciler(t)
	port := loan.NewPayrollPort(ledger, reconciler)
	ctx := context.Background()

	// Pending loan contributes nothing and does not error the whole query
	_, err := ledger.RequestLoan(ctx, "emp-1", 99999, "pending", 12, "emp-1")
	require.NoError(t, err)

	approved := approvedTestLoan(t, ledger)

	total, lines, err := port.DueAmount(ctx, "emp-1", "2025-02")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), total)
	require.Len(t, lines, 1)
	assert.Equal(t, approved.ID, lines[0].LoanID)
}

func TestDueAmount_HonorsApprovedSkipMonth(t *testing.T) {
	ledger, reconciler := newTestReconciler(t)
	port := loan.NewPayrollPort(ledger, reconciler)
	ctx := context.Background()
	l := approvedTestLoan(t, ledger)

	_, err := ledger.RequestSkipEmi(ctx, l.ID, "2025-03", "emp-1", "unpaid leave")
	require.NoError(t, err)
	_, err = ledger.ResolveSkipEmi(ctx, l.ID, "2025-03", generic.DecisionApprove, admin())
	require.NoError(t, err)

	total, lines, err := port.DueAmount(ctx, "emp-1", "2025-03")
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, lines, "a skipped month produces no line")

	// Adjacent months unaffected
	total, _, err = port.DueAmount(ctx, "emp-1", "2025-04")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), total)
}

func TestDueAmount_FinalMonthRemainder(t *testing.T) {
	ledger, reconciler := newTestReconciler(t)
	port := loan.NewPayrollPort(ledger, reconciler)
	ctx := context.Background()

	// 10000 over 3 months: 3333, 3333, 3334
	created, err := ledger.RequestLoan(ctx, "emp-2", 10000, "laptop", 3, "emp-2")
	require.NoError(t, err)
	_, err = ledger.ApproveLoan(ctx, created.ID, 10000, admin())
	require.NoError(t, err)

	total, _, err := port.DueAmount(ctx, "emp-2", "2025-02")
	require.NoError(t, err)
	assert.Equal(t, int64(3333), total)

	total, _, err = port.DueAmount(ctx, "emp-2", "2025-03")
	require.NoError(t, err)
	assert.Equal(t, int64(3334), total, "final month absorbs the remainder")

	// Once fully credited, later months owe nothing
	for _, m := range []string{"2025-01", "2025-02", "2025-03"} {
		due, _, err := port.DueAmount(ctx, "emp-2", m)
		require.NoError(t, err)
		_, err = port.RecordPayrollCredit(ctx, created.ID, m, due, "payroll-"+m)
		require.NoError(t, err)
	}
	total, lines, err := port.DueAmount(ctx, "emp-2", "2025-05")
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, lines)
}

func TestDueAmount_InvalidMonthKey(t *testing.T) {
	ledger, reconciler := newTestReconciler(t)
	port := loan.NewPayrollPort(ledger, reconciler)

	_, _, err := port.DueAmount(context.Background(), "emp-1", "2025/02")
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestPayrollPort_DueThenCreditRoundTrip(t *testing.T) {
	// The cycle the payroll run performs every period: ask, deduct, report.
	ledger, reconciler := newTestReconciler(t)
	port := loan.NewPayrollPort(ledger, reconciler)
	ctx := context.Background()
	l := approvedTestLoan(t, ledger)

	month := generic.MonthKey("2025-01")
	for {
		total, lines, err := port.DueAmount(ctx, "emp-1", string(month))
		require.NoError(t, err)
		if total == 0 {
			break
		}
		for _, line := range lines {
			_, err := port.RecordPayrollCredit(ctx, line.LoanID, string(month), line.Amount, "payroll-"+string(month))
			require.NoError(t, err)
		}
		month = month.AddMonths(1)
	}

	stored, err := ledger.GetLoan(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.StatusRepaid, stored.Status)
	assert.Zero(t, stored.RemainingBalance)
	assert.Len(t, stored.EmiPayments, 6)
}
