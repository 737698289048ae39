package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit          TransactionType = "DEPOSIT"
	TransactionTypeWithdraw         TransactionType = "WITHDRAW"
	TransactionTypeTransfer         TransactionType = "TRANSFER"
	TransactionTypeExternalTransfer TransactionType = "EXTERNAL_TRANSFER"
	TransactionTypeReversal         TransactionType = "REVERSAL"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusReversed  TransactionStatus = "REVERSED"
)

// Reversible reports whether a journal entry in status s may still be reversed.
func (s TransactionStatus) Reversible() bool {
	switch s {
	case TransactionStatusCompleted:
		return true
	case TransactionStatusPending, TransactionStatusFailed, TransactionStatusReversed:
		return false
	default:
		return false
	}
}

type TransferType string

const (
	TransferTypeInternal TransferType = "INTERNAL"
	TransferTypeExternal TransferType = "EXTERNAL"
)

// ExternalBankDetails describes the counterparty of an external transfer.
type ExternalBankDetails struct {
	BankName        string `json:"bank_name" validate:"required,max=100"`
	AccountNumber   string `json:"account_number" validate:"required,max=34"`
	RoutingCode     string `json:"routing_code" validate:"required,max=20"`
	BeneficiaryName string `json:"beneficiary_name" validate:"required,max=100"`
}

// Transaction is one immutable journal entry. From/To are nil when the
// movement has no internal counterpart (deposits, withdrawals, external transfers).
type Transaction struct {
	ID            int64                `json:"id"`
	Reference     uuid.UUID            `json:"reference"`
	FromAccountID *int64               `json:"from_account_id,omitempty"`
	ToAccountID   *int64               `json:"to_account_id,omitempty"`
	Amount        decimal.Decimal      `json:"amount"`
	Type          TransactionType      `json:"type"`
	Status        TransactionStatus    `json:"status"`
	TransferType  TransferType         `json:"transfer_type,omitempty"`
	Description   string               `json:"description"`
	External      *ExternalBankDetails `json:"external,omitempty"`
	ReversalOf    *int64               `json:"reversal_of,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}
