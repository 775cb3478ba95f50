/*
payroll.go - Inbound port for the external payroll run

PURPOSE:
  The only inbound calls the engine accepts from outside its own workflow
  actions. Once per employee per pay period the payroll run:

    1. asks DueAmount(employeeID, month) — the sum of DueForMonth across the
       employee's Approved loans, honoring approved skip months;
    2. deducts that amount from pay;
    3. reports each loan's deduction back via RecordPayrollCredit.

  The payroll run itself (scheduling, batching, payslips) is external.

SEE ALSO:
  - schedule.go: Per-loan due amounts
  - reconcile.go: Credit recording
*/
package loan

import (
	"context"
	"errors"

	"github.com/warp/loan-engine/generic"
)

// PayrollPort is the contract the external payroll run drives.
type PayrollPort struct {
	ledger     *Ledger
	reconciler *Reconciler
}

// NewPayrollPort wires the port over the ledger and reconciler.
func NewPayrollPort(ledger *Ledger, reconciler *Reconciler) *PayrollPort {
	return &PayrollPort{ledger: ledger, reconciler: reconciler}
}

// DueLine is one loan's contribution to a pay period's deduction.
type DueLine struct {
	LoanID generic.LoanID `json:"loanId"`
	Amount int64          `json:"amount"`
}

// DueAmount sums the month's installments across all Approved loans of the
// employee. Loans whose schedule does not cover the month contribute zero.
func (p *PayrollPort) DueAmount(ctx context.Context, employeeID generic.EmployeeID, monthKey string) (int64, []DueLine, error) {
	month, err := generic.ParseMonthKey(monthKey)
	if err != nil {
		return 0, nil, err
	}

	loans, err := p.ledger.LoansForEmployee(ctx, employeeID)
	if err != nil {
		return 0, nil, err
	}

	var total int64
	var lines []DueLine
	for _, loan := range loans {
		due, err := DueForMonth(loan, month)
		if err != nil {
			if errors.Is(err, generic.ErrNotScheduled) {
				continue
			}
			return 0, nil, err
		}
		if due == 0 {
			continue
		}
		total += due
		lines = append(lines, DueLine{LoanID: loan.ID, Amount: due})
	}
	return total, lines, nil
}

// RecordPayrollCredit reports one loan's confirmed deduction for the month.
func (p *PayrollPort) RecordPayrollCredit(ctx context.Context, loanID generic.LoanID, monthKey string, amount int64, deductedFrom string) (*Loan, error) {
	return p.reconciler.RecordPayrollCredit(ctx, loanID, monthKey, amount, deductedFrom)
}
