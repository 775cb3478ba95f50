/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Employees are seeded
	- Loans are created in the advertised status
	- Credited installments and balances match the scenario description

These tests double as integration tests for the engine wiring.
*/
package api

import (
	"context"
	"testing"

	"github.com/warp/loan-engine/loan"
	"github.com/warp/loan-engine/store/sqlite"
)

func setupTestHandler(t *testing.T) *Handler {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewHandler(store, loan.DefaultCeiling)
}

func TestScenario_ExactDivision(t *testing.T) {
	// GIVEN: Exact-division scenario
	// WHEN: Loading the scenario
	// THEN: One approved loan, EMI 10000, three installments credited

	handler := setupTestHandler(t)
	ctx := context.Background()

	if err := handler.loadExactDivisionScenario(ctx); err != nil {
		t.Fatalf("Failed to load exact-division scenario: %v", err)
	}

	employees, err := handler.Store.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("Failed to list employees: %v", err)
	}
	if len(employees) != 1 {
		t.Errorf("Expected 1 employee, got %d", len(employees))
	}

	loans, err := handler.Ledger.ListLoans(ctx)
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if len(loans) != 1 {
		t.Fatalf("Expected 1 loan, got %d", len(loans))
	}

	l := loans[0]
	if l.Status != loan.StatusApproved {
		t.Errorf("Expected status approved, got %s", l.Status)
	}
	if l.EmiAmount != 10000 {
		t.Errorf("Expected EMI 10000, got %d", l.EmiAmount)
	}
	if len(l.EmiPayments) != 3 {
		t.Errorf("Expected 3 credited installments, got %d", len(l.EmiPayments))
	}
	if l.RemainingBalance != 30000 {
		t.Errorf("Expected remaining 30000, got %d", l.RemainingBalance)
	}
}

func TestScenario_RoundingRemainder(t *testing.T) {
	handler := setupTestHandler(t)
	ctx := context.Background()

	if err := handler.loadRoundingRemainderScenario(ctx); err != nil {
		t.Fatalf("Failed to load rounding-remainder scenario: %v", err)
	}

	loans, err := handler.Ledger.ListLoans(ctx)
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if len(loans) != 1 {
		t.Fatalf("Expected 1 loan, got %d", len(loans))
	}

	l := loans[0]
	if l.EmiAmount != 3333 {
		t.Errorf("Expected EMI 3333, got %d", l.EmiAmount)
	}
	final := loan.FinalEmiAmount(l.ApprovedAmount, l.EmiMonths)
	if final != 3334 {
		t.Errorf("Expected final installment 3334, got %d", final)
	}
}

func TestScenario_OverCeiling(t *testing.T) {
	handler := setupTestHandler(t)
	ctx := context.Background()

	if err := handler.loadOverCeilingScenario(ctx); err != nil {
		t.Fatalf("Failed to load over-ceiling scenario: %v", err)
	}

	loans, err := handler.Ledger.ListLoans(ctx)
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if len(loans) != 1 {
		t.Fatalf("Expected 1 loan, got %d", len(loans))
	}

	l := loans[0]
	if l.Status != loan.StatusPending {
		t.Errorf("Expected status pending, got %s", l.Status)
	}
	if l.MaxLoanOverride == nil {
		t.Fatal("Expected a pending ceiling override")
	}
	if l.MaxLoanOverride.StandardMax != 300000 {
		t.Errorf("Expected standard max 300000, got %d", l.MaxLoanOverride.StandardMax)
	}
}

func TestScenario_SkipMonth(t *testing.T) {
	handler := setupTestHandler(t)
	ctx := context.Background()

	if err := handler.loadSkipMonthScenario(ctx); err != nil {
		t.Fatalf("Failed to load skip-month scenario: %v", err)
	}

	loans, err := handler.Ledger.ListLoans(ctx)
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if len(loans) != 1 {
		t.Fatalf("Expected 1 loan, got %d", len(loans))
	}

	l := loans[0]
	if len(l.SkipEmiRequests) != 1 {
		t.Fatalf("Expected 1 skip request, got %d", len(l.SkipEmiRequests))
	}
	for month := range l.SkipEmiRequests {
		if !l.SkipApproved(month) {
			t.Errorf("Expected skip for %s to be approved", month)
		}
		due, err := loan.DueForMonth(l, month)
		if err != nil {
			t.Fatalf("Failed to compute due: %v", err)
		}
		if due != 0 {
			t.Errorf("Expected 0 due for skipped month %s, got %d", month, due)
		}
	}
}

func TestLoadScenario_ResetsPreviousData(t *testing.T) {
	handler := setupTestHandler(t)
	ctx := context.Background()

	if err := handler.loadExactDivisionScenario(ctx); err != nil {
		t.Fatalf("Failed to load first scenario: %v", err)
	}
	if err := handler.Store.Reset(ctx); err != nil {
		t.Fatalf("Failed to reset: %v", err)
	}
	if err := handler.loadOverCeilingScenario(ctx); err != nil {
		t.Fatalf("Failed to load second scenario: %v", err)
	}

	loans, err := handler.Ledger.ListLoans(ctx)
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if len(loans) != 1 {
		t.Errorf("Expected only the second scenario's loan, got %d", len(loans))
	}
}
