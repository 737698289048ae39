package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PenaltyStatus string

const (
	PenaltyStatusPending   PenaltyStatus = "PENDING"
	PenaltyStatusWaived    PenaltyStatus = "WAIVED"
	PenaltyStatusCollected PenaltyStatus = "COLLECTED"
)

// Terminal reports whether no further changes are allowed on a penalty.
func (s PenaltyStatus) Terminal() bool {
	switch s {
	case PenaltyStatusWaived, PenaltyStatusCollected:
		return true
	case PenaltyStatusPending:
		return false
	default:
		return true
	}
}

// LoanPenalty is the late fee accrued for one overdue installment.
// At most one row exists per (loan, installment).
type LoanPenalty struct {
	ID                int64           `json:"id"`
	LoanID            int64           `json:"loan_id"`
	InstallmentNumber int             `json:"installment_number"`
	DueDate           time.Time       `json:"due_date"`
	DaysOverdue       int             `json:"days_overdue"`
	EMIAmount         decimal.Decimal `json:"emi_amount"`
	PenaltyAmount     decimal.Decimal `json:"penalty_amount"`
	PenaltyRateUsed   decimal.Decimal `json:"penalty_rate_used"`
	Status            PenaltyStatus   `json:"status"`
	PenaltyStartDate  time.Time       `json:"penalty_start_date"`
	ResolvedDate      *time.Time      `json:"resolved_date,omitempty"`
	Remarks           string          `json:"remarks,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// PenaltySummary aggregates penalty rows by status for staff dashboards.
type PenaltySummary struct {
	PendingCount     int             `json:"pending_count"`
	PendingAmount    decimal.Decimal `json:"pending_amount"`
	WaivedCount      int             `json:"waived_count"`
	WaivedAmount     decimal.Decimal `json:"waived_amount"`
	CollectedCount   int             `json:"collected_count"`
	CollectedAmount  decimal.Decimal `json:"collected_amount"`
	LoansWithPending int             `json:"loans_with_pending"`
}
