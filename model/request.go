// file: model/request.go

package model

import "github.com/shopspring/decimal"

// OpenAccountRequest defines the payload for opening a new account.
type OpenAccountRequest struct {
	Type     AccountType `json:"account_type" validate:"required,oneof=SAVINGS CHECKING FIXED_DEPOSIT RECURRING_DEPOSIT"`
	Currency string      `json:"currency" validate:"required,len=3"`
}

// AmountRequest is shared by deposit and withdraw.
type AmountRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Description string          `json:"description" validate:"max=255"`
}

// TransferRequest moves money between two accounts addressed by number.
type TransferRequest struct {
	FromAccountNumber int64           `json:"from_account_number" validate:"required"`
	ToAccountNumber   int64           `json:"to_account_number" validate:"required"`
	Amount            decimal.Decimal `json:"amount" validate:"gt=0"`
	Description       string          `json:"description" validate:"max=255"`
}

// ExternalTransferRequest sends money to another bank.
type ExternalTransferRequest struct {
	FromAccountNumber int64               `json:"from_account_number" validate:"required"`
	Beneficiary       ExternalBankDetails `json:"beneficiary" validate:"required"`
	Amount            decimal.Decimal     `json:"amount" validate:"gt=0"`
	Description       string              `json:"description" validate:"max=255"`
}

// ReversalRequest carries the staff-supplied reason for a reversal.
type ReversalRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

// LoanApplicationRequest is submitted by a customer applying for a loan.
// GracePeriodDays and PenaltyRate fall back to configured defaults when nil.
type LoanApplicationRequest struct {
	LoanType        LoanType         `json:"loan_type" validate:"required,oneof=PERSONAL HOME AUTO EDUCATION BUSINESS"`
	PrincipalAmount decimal.Decimal  `json:"principal_amount" validate:"gt=0"`
	InterestRate    decimal.Decimal  `json:"interest_rate" validate:"gte=0,lte=100"`
	TenureMonths    int              `json:"tenure_months" validate:"required,min=1,max=480"`
	Purpose         string           `json:"purpose" validate:"max=255"`
	GracePeriodDays *int             `json:"grace_period_days,omitempty" validate:"omitempty,min=0,max=90"`
	PenaltyRate     *decimal.Decimal `json:"penalty_rate,omitempty"`
}

// LoanDecisionRequest carries staff remarks for approve/reject.
type LoanDecisionRequest struct {
	Remarks string `json:"remarks" validate:"max=255"`
}

// EMIPaymentRequest pays the next installment. Amount overrides EMI+penalty when set.
type EMIPaymentRequest struct {
	AccountID int64            `json:"account_id" validate:"required"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

// PenaltyResolutionRequest carries staff remarks for waivers.
type PenaltyResolutionRequest struct {
	Remarks string `json:"remarks" validate:"max=255"`
}
