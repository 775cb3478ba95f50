/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/loan-engine/loan"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employee_id"`
	Name         string `json:"name"`
	Department   string `json:"department,omitempty"`
	GrossMonthly string `json:"gross_monthly"`
	JoiningDate  string `json:"joining_date,omitempty"`
	Status       string `json:"status"`
}

// CreateEmployeeRequest seeds an employee master record.
type CreateEmployeeRequest struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employee_id"`
	Name         string `json:"name"`
	Department   string `json:"department"`
	GrossMonthly string `json:"gross_monthly"`
	JoiningDate  string `json:"joining_date"`
	Status       string `json:"status"`
}

func toEmployeeDTO(e loan.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:           string(e.ID),
		EmployeeID:   e.EmployeeID,
		Name:         e.Name,
		Department:   e.Department,
		GrossMonthly: e.Salary.GrossMonthly.String(),
		Status:       e.Status,
	}
	if !e.JoiningDate.IsZero() {
		dto.JoiningDate = e.JoiningDate.Format("2006-01-02")
	}
	return dto
}

// =============================================================================
// LOAN
// =============================================================================

// LoanDTO represents a loan and its full audit trail in API responses.
type LoanDTO struct {
	ID               string                `json:"id"`
	EmployeeID       string                `json:"employee_id"`
	EmployeeName     string                `json:"employee_name"`
	RequestedAmount  int64                 `json:"requested_amount"`
	ApprovedAmount   int64                 `json:"approved_amount,omitempty"`
	Reason           string                `json:"reason,omitempty"`
	RequestDate      string                `json:"request_date"`
	EmiMonths        int                   `json:"emi_months"`
	EmiAmount        int64                 `json:"emi_amount,omitempty"`
	Status           string                `json:"status"`
	DisbursedDate    string                `json:"disbursed_date,omitempty"`
	ApprovedBy       string                `json:"approved_by,omitempty"`
	ApprovedAt       string                `json:"approved_at,omitempty"`
	CreatedBy        string                `json:"created_by"`
	RemainingBalance int64                 `json:"remaining_balance"`
	SkipEmiRequests  []SkipEmiRequestDTO   `json:"skip_emi_requests,omitempty"`
	MaxLoanOverride  *MaxLoanOverrideDTO   `json:"max_loan_override,omitempty"`
	EmiPayments      []EmiPaymentDTO       `json:"emi_payments,omitempty"`
}

// SkipEmiRequestDTO flattens a month-keyed skip request for transport,
// ordered chronologically by month.
type SkipEmiRequestDTO struct {
	Month       string `json:"month"`
	Status      string `json:"status"`
	RequestedBy string `json:"requested_by"`
	RequestedAt string `json:"requested_at"`
	ApprovedBy  string `json:"approved_by,omitempty"`
	ApprovedAt  string `json:"approved_at,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type MaxLoanOverrideDTO struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	RequestedAmount int64  `json:"requested_amount"`
	RequestedBy     string `json:"requested_by"`
	RequestedAt     string `json:"requested_at"`
	ApprovedBy      string `json:"approved_by,omitempty"`
	ApprovedAt      string `json:"approved_at,omitempty"`
	Reason          string `json:"reason,omitempty"`
	EmployeeGross   string `json:"employee_gross"`
	StandardMax     int64  `json:"standard_max"`
}

type EmiPaymentDTO struct {
	Month            string `json:"month"`
	Amount           int64  `json:"amount"`
	PaidAt           string `json:"paid_at"`
	PayrollCredited  bool   `json:"payroll_credited"`
	RemainingBalance int64  `json:"remaining_balance"`
	DeductedFrom     string `json:"deducted_from,omitempty"`
}

func toLoanDTO(l *loan.Loan) LoanDTO {
	dto := LoanDTO{
		ID:               string(l.ID),
		EmployeeID:       string(l.EmployeeID),
		EmployeeName:     l.EmployeeName,
		RequestedAmount:  l.RequestedAmount,
		ApprovedAmount:   l.ApprovedAmount,
		Reason:           l.Reason,
		RequestDate:      l.RequestDate.Format(time.RFC3339),
		EmiMonths:        l.EmiMonths,
		EmiAmount:        l.EmiAmount,
		Status:           string(l.Status),
		ApprovedBy:       l.ApprovedBy,
		CreatedBy:        l.CreatedBy,
		RemainingBalance: l.RemainingBalance,
	}
	if l.DisbursedDate != nil {
		dto.DisbursedDate = l.DisbursedDate.Format(time.RFC3339)
	}
	if l.ApprovedAt != nil {
		dto.ApprovedAt = l.ApprovedAt.Format(time.RFC3339)
	}

	for _, month := range l.SkipRequestMonths() {
		s := l.SkipEmiRequests[month]
		sd := SkipEmiRequestDTO{
			Month:       string(month),
			Status:      string(s.Status),
			RequestedBy: s.RequestedBy,
			RequestedAt: s.RequestedAt.Format(time.RFC3339),
			ApprovedBy:  s.ApprovedBy,
			Reason:      s.Reason,
		}
		if s.ApprovedAt != nil {
			sd.ApprovedAt = s.ApprovedAt.Format(time.RFC3339)
		}
		dto.SkipEmiRequests = append(dto.SkipEmiRequests, sd)
	}

	if ov := l.MaxLoanOverride; ov != nil {
		od := &MaxLoanOverrideDTO{
			ID:              string(ov.ID),
			Status:          string(ov.Status),
			RequestedAmount: ov.RequestedAmount,
			RequestedBy:     ov.RequestedBy,
			RequestedAt:     ov.RequestedAt.Format(time.RFC3339),
			ApprovedBy:      ov.ApprovedBy,
			Reason:          ov.Reason,
			EmployeeGross:   ov.EmployeeGross.String(),
			StandardMax:     ov.StandardMax,
		}
		if ov.ApprovedAt != nil {
			od.ApprovedAt = ov.ApprovedAt.Format(time.RFC3339)
		}
		dto.MaxLoanOverride = od
	}

	for _, month := range l.PaymentMonths() {
		p := l.EmiPayments[month]
		dto.EmiPayments = append(dto.EmiPayments, EmiPaymentDTO{
			Month:            string(p.Month),
			Amount:           p.Amount,
			PaidAt:           p.PaidAt.Format(time.RFC3339),
			PayrollCredited:  p.PayrollCredited,
			RemainingBalance: p.RemainingBalance,
			DeductedFrom:     p.DeductedFrom,
		})
	}
	return dto
}

// =============================================================================
// LOAN REQUESTS
// =============================================================================

type RequestLoanRequest struct {
	EmployeeID  string `json:"employee_id"`
	Amount      int64  `json:"amount"`
	Reason      string `json:"reason"`
	EmiMonths   int    `json:"emi_months"`
	RequestedBy string `json:"requested_by"`
}

type ApproveLoanRequest struct {
	ApprovedAmount int64 `json:"approved_amount"`
}

type RejectLoanRequest struct {
	Reason string `json:"reason"`
}

type SkipEmiRequest struct {
	Month       string `json:"month"`
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason"`
}

type ResolveRequest struct {
	Decision string `json:"decision"` // "approve" or "reject"
}

// =============================================================================
// PAYROLL
// =============================================================================

type DueAmountDTO struct {
	EmployeeID string         `json:"employee_id"`
	Month      string         `json:"month"`
	Total      int64          `json:"total"`
	Lines      []loan.DueLine `json:"lines,omitempty"`
}

type RecordCreditRequest struct {
	LoanID       string `json:"loan_id"`
	Month        string `json:"month"`
	Amount       int64  `json:"amount"`
	DeductedFrom string `json:"deducted_from"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorDTO is the error envelope. BlockingID carries the unresolved override
// id when a loan approval is blocked, so clients can route the user there.
type ErrorDTO struct {
	Error      string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	BlockingID string `json:"blocking_id,omitempty"`
}
