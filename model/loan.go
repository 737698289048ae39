package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanType string

const (
	LoanTypePersonal  LoanType = "PERSONAL"
	LoanTypeHome      LoanType = "HOME"
	LoanTypeAuto      LoanType = "AUTO"
	LoanTypeEducation LoanType = "EDUCATION"
	LoanTypeBusiness  LoanType = "BUSINESS"
)

type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "PENDING"
	LoanStatusApproved LoanStatus = "APPROVED"
	LoanStatusRejected LoanStatus = "REJECTED"
	LoanStatusClosed   LoanStatus = "CLOSED"
)

// CanTransitionTo encodes the one-directional loan lifecycle:
// PENDING -> APPROVED | REJECTED, APPROVED -> CLOSED.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	switch s {
	case LoanStatusPending:
		return next == LoanStatusApproved || next == LoanStatusRejected
	case LoanStatusApproved:
		return next == LoanStatusClosed
	case LoanStatusRejected, LoanStatusClosed:
		return false
	default:
		return false
	}
}

type Loan struct {
	ID                    int64           `json:"id"`
	UserID                int64           `json:"user_id"`
	LoanType              LoanType        `json:"loan_type"`
	PrincipalAmount       decimal.Decimal `json:"principal_amount"`
	InterestRate          decimal.Decimal `json:"interest_rate"`
	TenureMonths          int             `json:"tenure_months"`
	EMIAmount             decimal.Decimal `json:"emi_amount"`
	RemainingBalance      decimal.Decimal `json:"remaining_balance"`
	PaidInstallments      int             `json:"paid_installments"`
	GracePeriodDays       int             `json:"grace_period_days"`
	PenaltyRate           decimal.Decimal `json:"penalty_rate"`
	TotalPenalty          decimal.Decimal `json:"total_penalty"`
	Status                LoanStatus      `json:"status"`
	Purpose               string          `json:"purpose"`
	Remarks               string          `json:"remarks,omitempty"`
	DisbursementAccountID *int64          `json:"disbursement_account_id,omitempty"`
	DisbursementTxID      *int64          `json:"disbursement_transaction_id,omitempty"`
	ApprovedAt            *time.Time      `json:"approved_at,omitempty"`
	ClosedAt              *time.Time      `json:"closed_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// DueDate returns the due date of the given 1-based installment, counted in
// calendar months from approval.
func (l *Loan) DueDate(installment int) time.Time {
	start := l.CreatedAt
	if l.ApprovedAt != nil {
		start = *l.ApprovedAt
	}
	return start.AddDate(0, installment, 0)
}

// ScheduleEntry is one row of a generated repayment schedule.
type ScheduleEntry struct {
	InstallmentNumber int             `json:"installment_number"`
	DueDate           time.Time       `json:"due_date"`
	EMIAmount         decimal.Decimal `json:"emi_amount"`
	PrincipalAmount   decimal.Decimal `json:"principal_amount"`
	InterestAmount    decimal.Decimal `json:"interest_amount"`
	Balance           decimal.Decimal `json:"balance"`
}

// LoanPayment is an append-only record of one paid installment.
type LoanPayment struct {
	ID                 int64           `json:"id"`
	LoanID             int64           `json:"loan_id"`
	InstallmentNumber  int             `json:"installment_number"`
	AccountID          int64           `json:"account_id"`
	TransactionID      int64           `json:"transaction_id"`
	AmountPaid         decimal.Decimal `json:"amount_paid"`
	PrincipalAmount    decimal.Decimal `json:"principal_amount"`
	InterestAmount     decimal.Decimal `json:"interest_amount"`
	PenaltyAmount      decimal.Decimal `json:"penalty_amount"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	DueDate            time.Time       `json:"due_date"`
	PaidDate           time.Time       `json:"paid_date"`
}
