/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates employees and drives
	the loan lifecycle through the real engine operations, so the stored
	documents are exactly what production flows would produce.

AVAILABLE SCENARIOS:

	exact-division:     60000 over 6 months, three installments credited
	rounding-remainder: 10000 over 3 months (3333/3333/3334)
	over-ceiling:       500000 request against a 300000 ceiling, override pending
	skip-month:         approved loan with one approved skip month

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Seed employees
 3. Drive requests/approvals/credits through the ledger and reconciler

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "rounding-remainder"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/loan-engine/generic"
	"github.com/warp/loan-engine/loan"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "exact-division",
		Name:        "Exact Division",
		Description: "60000 over 6 months: 10000 per month, three installments already credited",
	},
	{
		ID:          "rounding-remainder",
		Name:        "Rounding Remainder",
		Description: "10000 over 3 months: 3333, 3333, 3334 - the final month absorbs the remainder",
	},
	{
		ID:          "over-ceiling",
		Name:        "Over Ceiling",
		Description: "500000 requested against a 300000 ceiling: approval blocked by a pending override",
	},
	{
		ID:          "skip-month",
		Name:        "Skip Month",
		Description: "Approved loan with an approved EMI-skip for one month",
	},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the id of the last loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": h.currentScenario})
}

// LoadScenario resets the database and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "exact-division":
		err = h.loadExactDivisionScenario(ctx)
	case "rounding-remainder":
		err = h.loadRoundingRemainderScenario(ctx)
	case "over-ceiling":
		err = h.loadOverCeilingScenario(ctx)
	case "skip-month":
		err = h.loadSkipMonthScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario %q", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": req.ScenarioID, "status": "loaded"})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) seedEmployee(ctx context.Context, id, code, name, gross string) error {
	return h.Store.SaveEmployee(ctx, loan.Employee{
		ID:         generic.EmployeeID(id),
		EmployeeID: code,
		Name:       name,
		Department: "Engineering",
		Salary:     loan.Salary{GrossMonthly: mustDecimal(gross)},
		Status:     "active",
	})
}

func (h *Handler) loadExactDivisionScenario(ctx context.Context) error {
	if err := h.seedEmployee(ctx, "emp-1", "EMP-0001", "Asha Nair", "25000"); err != nil {
		return err
	}

	admin := generic.AdminActor("admin-demo")
	created, err := h.Ledger.RequestLoan(ctx, "emp-1", 60000, "home renovation", 6, "emp-1")
	if err != nil {
		return err
	}
	approved, err := h.Ledger.ApproveLoan(ctx, created.ID, 60000, admin)
	if err != nil {
		return err
	}

	month := generic.MonthKeyOf(*approved.DisbursedDate)
	for i := 0; i < 3; i++ {
		batch := fmt.Sprintf("payroll-%s", month.AddMonths(i))
		if _, err := h.Reconciler.RecordPayrollCredit(ctx, approved.ID, string(month.AddMonths(i)), 10000, batch); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadRoundingRemainderScenario(ctx context.Context) error {
	if err := h.seedEmployee(ctx, "emp-2", "EMP-0002", "Diego Fuentes", "12000"); err != nil {
		return err
	}

	created, err := h.Ledger.RequestLoan(ctx, "emp-2", 10000, "medical expenses", 3, "emp-2")
	if err != nil {
		return err
	}
	_, err = h.Ledger.ApproveLoan(ctx, created.ID, 10000, generic.AdminActor("admin-demo"))
	return err
}

func (h *Handler) loadOverCeilingScenario(ctx context.Context) error {
	// Default ceiling is 3x gross, so 100000 gross caps at 300000.
	if err := h.seedEmployee(ctx, "emp-3", "EMP-0003", "Mira Osei", "100000"); err != nil {
		return err
	}

	_, err := h.Ledger.RequestLoan(ctx, "emp-3", 500000, "property purchase", 24, "emp-3")
	return err
}

func (h *Handler) loadSkipMonthScenario(ctx context.Context) error {
	if err := h.seedEmployee(ctx, "emp-4", "EMP-0004", "Lena Petrov", "30000"); err != nil {
		return err
	}

	admin := generic.AdminActor("admin-demo")
	created, err := h.Ledger.RequestLoan(ctx, "emp-4", 48000, "vehicle repair", 12, "emp-4")
	if err != nil {
		return err
	}
	approved, err := h.Ledger.ApproveLoan(ctx, created.ID, 48000, admin)
	if err != nil {
		return err
	}

	skipMonth := generic.MonthKeyOf(*approved.DisbursedDate).AddMonths(2)
	if _, err := h.Ledger.RequestSkipEmi(ctx, approved.ID, string(skipMonth), "emp-4", "unpaid leave month"); err != nil {
		return err
	}
	_, err = h.Ledger.ResolveSkipEmi(ctx, approved.ID, string(skipMonth), generic.DecisionApprove, admin)
	return err
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
