/*
handlers.go - HTTP API handlers for the loan engine

PURPOSE:
  Exposes the loan & EMI reconciliation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Loans:
    POST   /api/loans                          Request a loan
    GET    /api/loans                          List loans (?employee_id= filter)
    GET    /api/loans/{id}                     Get loan with full audit trail
    POST   /api/loans/{id}/approve             Approve (blocked by unresolved override)
    POST   /api/loans/{id}/reject              Reject (terminal)
    POST   /api/loans/{id}/skip-emi            Request a skip for one month
    POST   /api/loans/{id}/skip-emi/{month}/resolve  Resolve the skip request
    POST   /api/loans/{id}/override/resolve    Resolve the ceiling override

  Payroll (consumed by the external payroll run):
    GET    /api/payroll/due                    Due amount (?employee_id=&month=)
    POST   /api/payroll/credits                Report a confirmed deduction

  Employees (seeding surface for the external master):
    GET    /api/employees
    POST   /api/employees

ACTOR HEADERS:
  Mutating approval endpoints read the acting user from headers:
    X-Actor-Id:    actor identifier (required)
    X-Actor-Roles: comma-separated roles: loan_approver, skip_approver,
                   override_approver
  Authentication itself is out of scope; the headers make the actor explicit
  so the engine's capability checks apply.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, not-scheduled months
  - 403: Actor lacks the approval capability
  - 404: Loan or employee not found
  - 409: Conflict (terminal status, duplicate payment), blocked precheck
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/loan-engine/generic"
	"github.com/warp/loan-engine/loan"
	"github.com/warp/loan-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Ledger     *loan.Ledger
	Reconciler *loan.Reconciler
	Payroll    *loan.PayrollPort

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler wires the engine over the given store and ceiling policy.
func NewHandler(store *sqlite.Store, ceiling loan.CeilingPolicy) *Handler {
	ledger := loan.NewLedger(store, store, ceiling)
	reconciler := loan.NewReconciler(ledger)
	return &Handler{
		Store:      store,
		Ledger:     ledger,
		Reconciler: reconciler,
		Payroll:    loan.NewPayrollPort(ledger, reconciler),
	}
}

// =============================================================================
// ACTOR RESOLUTION
// =============================================================================

var roleCapabilities = map[string]generic.Capability{
	"loan_approver":     generic.CapApproveLoan,
	"skip_approver":     generic.CapApproveSkipEmi,
	"override_approver": generic.CapApproveOverride,
}

// actorFromRequest builds the explicit Actor from request headers.
func actorFromRequest(r *http.Request) (generic.Actor, bool) {
	id := strings.TrimSpace(r.Header.Get("X-Actor-Id"))
	if id == "" {
		return generic.Actor{}, false
	}
	actor := generic.Actor{ID: id}
	for _, role := range strings.Split(r.Header.Get("X-Actor-Roles"), ",") {
		if cap, ok := roleCapabilities[strings.TrimSpace(role)]; ok {
			actor.Capabilities = append(actor.Capabilities, cap)
		}
	}
	return actor, true
}

// =============================================================================
// LOAN HANDLERS
// =============================================================================

// RequestLoan creates a Pending loan (plus a ceiling override when needed).
func (h *Handler) RequestLoan(w http.ResponseWriter, r *http.Request) {
	var req RequestLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := h.Ledger.RequestLoan(r.Context(),
		generic.EmployeeID(req.EmployeeID), req.Amount, req.Reason, req.EmiMonths, req.RequestedBy)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(created))
}

// ListLoans returns all loans, optionally filtered by employee.
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	var (
		loans []*loan.Loan
		err   error
	)
	if emp := r.URL.Query().Get("employee_id"); emp != "" {
		loans, err = h.Ledger.LoansForEmployee(r.Context(), generic.EmployeeID(emp))
	} else {
		loans, err = h.Ledger.ListLoans(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list loans", err)
		return
	}

	dtos := make([]LoanDTO, len(loans))
	for i, l := range loans {
		dtos[i] = toLoanDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLoan returns one loan with its full audit trail.
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, err := h.Ledger.GetLoan(r.Context(), generic.LoanID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

// ApproveLoan resolves the disbursement request with an Approve decision.
func (h *Handler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing X-Actor-Id header", nil)
		return
	}

	var req ApproveLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	l, err := h.Ledger.ApproveLoan(r.Context(), generic.LoanID(chi.URLParam(r, "id")), req.ApprovedAmount, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

// RejectLoan resolves the disbursement request with a Reject decision.
func (h *Handler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing X-Actor-Id header", nil)
		return
	}

	var req RejectLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	l, err := h.Ledger.RejectLoan(r.Context(), generic.LoanID(chi.URLParam(r, "id")), actor, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

// RequestSkipEmi records a Pending skip request for one month.
func (h *Handler) RequestSkipEmi(w http.ResponseWriter, r *http.Request) {
	var req SkipEmiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	l, err := h.Ledger.RequestSkipEmi(r.Context(), generic.LoanID(chi.URLParam(r, "id")), req.Month, req.RequestedBy, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(l))
}

// ResolveSkipEmi resolves the month's skip request.
func (h *Handler) ResolveSkipEmi(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing X-Actor-Id header", nil)
		return
	}

	decision, err := parseDecision(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid decision", err)
		return
	}

	l, err := h.Ledger.ResolveSkipEmi(r.Context(),
		generic.LoanID(chi.URLParam(r, "id")), chi.URLParam(r, "month"), decision, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

// ResolveOverride resolves the loan's ceiling override.
func (h *Handler) ResolveOverride(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing X-Actor-Id header", nil)
		return
	}

	decision, err := parseDecision(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid decision", err)
		return
	}

	l, err := h.Ledger.ResolveMaxLoanOverride(r.Context(), generic.LoanID(chi.URLParam(r, "id")), decision, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(l))
}

func parseDecision(r *http.Request) (generic.Decision, error) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", err
	}
	switch generic.Decision(req.Decision) {
	case generic.DecisionApprove:
		return generic.DecisionApprove, nil
	case generic.DecisionReject:
		return generic.DecisionReject, nil
	default:
		return "", &generic.ValidationError{Field: "decision", Message: "must be approve or reject"}
	}
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// DueAmount returns the month's total deduction for an employee.
func (h *Handler) DueAmount(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employee_id")
	month := r.URL.Query().Get("month")
	if employeeID == "" || month == "" {
		writeError(w, http.StatusBadRequest, "employee_id and month query parameters are required", nil)
		return
	}

	total, lines, err := h.Payroll.DueAmount(r.Context(), generic.EmployeeID(employeeID), month)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DueAmountDTO{
		EmployeeID: employeeID,
		Month:      month,
		Total:      total,
		Lines:      lines,
	})
}

// RecordCredit reports one loan's confirmed payroll deduction.
func (h *Handler) RecordCredit(w http.ResponseWriter, r *http.Request) {
	var req RecordCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	l, err := h.Payroll.RecordPayrollCredit(r.Context(),
		generic.LoanID(req.LoanID), req.Month, req.Amount, req.DeductedFrom)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(l))
}

// =============================================================================
// EMPLOYEE HANDLERS (seeding surface)
// =============================================================================

// ListEmployees returns all seeded employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee seeds an employee master record.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	gross, err := decimal.NewFromString(req.GrossMonthly)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid gross_monthly", err)
		return
	}

	emp := loan.Employee{
		ID:         generic.EmployeeID(req.ID),
		EmployeeID: req.EmployeeID,
		Name:       req.Name,
		Department: req.Department,
		Salary:     loan.Salary{GrossMonthly: gross},
		Status:     req.Status,
	}
	if emp.Status == "" {
		emp.Status = "active"
	}
	if req.JoiningDate != "" {
		t, err := time.Parse("2006-01-02", req.JoiningDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid joining_date, want YYYY-MM-DD", err)
			return
		}
		emp.JoiningDate = t
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	dto := ErrorDTO{Error: message}
	if err != nil {
		dto.Detail = err.Error()
	}
	writeJSON(w, status, dto)
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var precheck *generic.PrecheckFailedError
	if errors.As(err, &precheck) {
		writeJSON(w, http.StatusConflict, ErrorDTO{
			Error:      "Approval blocked by unresolved override",
			Detail:     precheck.Error(),
			BlockingID: string(precheck.BlockingID),
		})
		return
	}

	switch {
	case errors.Is(err, generic.ErrValidation), errors.Is(err, generic.ErrNotScheduled):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, generic.ErrAuthorization):
		writeError(w, http.StatusForbidden, "Not authorized", err)
	case errors.Is(err, generic.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, generic.ErrConflict):
		writeError(w, http.StatusConflict, "Conflict", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
