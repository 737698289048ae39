package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeSavings          AccountType = "SAVINGS"
	AccountTypeChecking         AccountType = "CHECKING"
	AccountTypeFixedDeposit     AccountType = "FIXED_DEPOSIT"
	AccountTypeRecurringDeposit AccountType = "RECURRING_DEPOSIT"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeSavings, AccountTypeChecking, AccountTypeFixedDeposit, AccountTypeRecurringDeposit:
		return true
	default:
		return false
	}
}

// SettlementRank orders account types for loan disbursement. Lower ranks win.
func (t AccountType) SettlementRank() int {
	switch t {
	case AccountTypeSavings:
		return 0
	case AccountTypeChecking:
		return 1
	case AccountTypeFixedDeposit, AccountTypeRecurringDeposit:
		return 2
	default:
		return 3
	}
}

type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "ACTIVE"
	AccountStatusClosed  AccountStatus = "CLOSED"
	AccountStatusDeleted AccountStatus = "DELETED"
)

type Account struct {
	ID              int64               `json:"id"`
	UserID          int64               `json:"user_id"`
	AccountNumber   int64               `json:"account_number"`
	Type            AccountType         `json:"account_type"`
	Balance         decimal.Decimal     `json:"balance"`
	Currency        string              `json:"currency"`
	Frozen          bool                `json:"frozen"`
	Status          AccountStatus       `json:"status"`
	WithdrawalLimit decimal.NullDecimal `json:"withdrawal_limit"`
	InterestRate    decimal.NullDecimal `json:"interest_rate"`
	MaturityDate    *time.Time          `json:"maturity_date,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}
