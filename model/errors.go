// file: model/errors.go

package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError reports a missing account, transaction, loan or penalty.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// StateConflictError reports an invalid lifecycle transition, such as
// approving a non-pending loan or reversing a transaction twice.
type StateConflictError struct {
	Resource string
	ID       string
	State    string
	Action   string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in state %s", e.Action, e.Resource, e.ID, e.State)
}

type InsufficientFundsError struct {
	AccountID int64
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in account %d: available=%s required=%s",
		e.AccountID, e.Available.StringFixed(2), e.Required.StringFixed(2))
}

type FrozenAccountError struct {
	AccountID int64
}

func (e *FrozenAccountError) Error() string {
	return fmt.Sprintf("account %d is frozen", e.AccountID)
}

// ConcurrencyError wraps lock contention, deadlocks, serialization failures
// and timeouts reported by the store.
type ConcurrencyError struct {
	Op  string
	Err error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("concurrent update conflict during %s: %v", e.Op, e.Err)
}

func (e *ConcurrencyError) Unwrap() error {
	return e.Err
}
