package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-bank-ledger/logger"
	"go-bank-ledger/model"
	"go-bank-ledger/repository"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AdjustOptions narrows which accounts an adjustment may touch.
type AdjustOptions struct {
	// OwnerID, when non-zero, must match the account's user.
	OwnerID int64
	// AllowFrozen lets staff corrections such as reversals move money on a frozen account.
	AllowFrozen bool
	// EnforceLimit applies the account's per-transaction withdrawal limit to debits.
	EnforceLimit bool
}

// Adjustment is one signed balance change.
type Adjustment struct {
	AccountID int64
	Delta     decimal.Decimal
	Options   AdjustOptions
}

// AccountLedger is the only writer of account balances. Every method runs
// inside the caller's transaction and holds the account row locks until it ends.
type AccountLedger struct {
	accountRepo repository.IAccountRepository
	now         func() time.Time
}

func NewAccountLedger(accountRepo repository.IAccountRepository) *AccountLedger {
	return &AccountLedger{accountRepo: accountRepo, now: time.Now}
}

// Adjust applies delta to one account.
func (l *AccountLedger) Adjust(ctx context.Context, tx *sql.Tx, accountID int64, delta decimal.Decimal, opts AdjustOptions) (*model.Account, error) {
	accounts, err := l.AdjustMany(ctx, tx, []Adjustment{{AccountID: accountID, Delta: delta, Options: opts}})
	if err != nil {
		return nil, err
	}
	return accounts[0], nil
}

// AdjustMany locks every touched account in ascending id order, checks all
// deltas against the locked balances and only then writes them, in the order given.
// The returned accounts carry the new balances, in the same order as adjustments.
func (l *AccountLedger) AdjustMany(ctx context.Context, tx *sql.Tx, adjustments []Adjustment) ([]*model.Account, error) {
	if len(adjustments) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(adjustments))
	seen := make(map[int64]bool, len(adjustments))
	for _, adj := range adjustments {
		if adj.Delta.IsZero() {
			return nil, &model.ValidationError{Field: "amount", Message: "must not be zero"}
		}
		if !seen[adj.AccountID] {
			seen[adj.AccountID] = true
			ids = append(ids, adj.AccountID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	locked := make(map[int64]*model.Account, len(ids))
	for _, id := range ids {
		acc, err := l.accountRepo.GetAccountForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, &model.NotFoundError{Resource: "account", ID: strconv.FormatInt(id, 10)}
			}
			return nil, fmt.Errorf("could not lock account %d: %w", id, err)
		}
		locked[id] = acc
	}

	balances := make(map[int64]decimal.Decimal, len(locked))
	for id, acc := range locked {
		balances[id] = acc.Balance
	}
	for _, adj := range adjustments {
		acc := locked[adj.AccountID]
		if err := checkAdjustment(acc, balances[acc.ID], adj); err != nil {
			return nil, err
		}
		balances[acc.ID] = balances[acc.ID].Add(adj.Delta)
	}

	now := l.now()
	written := make(map[int64]bool, len(locked))
	result := make([]*model.Account, len(adjustments))
	for i, adj := range adjustments {
		acc := locked[adj.AccountID]
		if !written[acc.ID] {
			if err := l.accountRepo.UpdateAccountBalance(ctx, tx, acc.ID, balances[acc.ID], now); err != nil {
				return nil, fmt.Errorf("could not update balance of account %d: %w", acc.ID, err)
			}
			acc.Balance = balances[acc.ID]
			acc.UpdatedAt = now
			written[acc.ID] = true
		}
		result[i] = acc
	}

	logger.Log.WithFields(logrus.Fields{
		"accounts":    ids,
		"adjustments": len(adjustments),
	}).Debug("Ledger adjustments applied")
	return result, nil
}

func checkAdjustment(acc *model.Account, balance decimal.Decimal, adj Adjustment) error {
	id := strconv.FormatInt(acc.ID, 10)
	if acc.Status != model.AccountStatusActive {
		return &model.StateConflictError{Resource: "account", ID: id, State: string(acc.Status), Action: "adjust"}
	}
	if acc.Frozen && !adj.Options.AllowFrozen {
		return &model.FrozenAccountError{AccountID: acc.ID}
	}
	if adj.Options.OwnerID != 0 && acc.UserID != adj.Options.OwnerID {
		return ErrPermissionDenied
	}
	if adj.Delta.IsNegative() {
		debit := adj.Delta.Neg()
		if adj.Options.EnforceLimit && acc.WithdrawalLimit.Valid && debit.GreaterThan(acc.WithdrawalLimit.Decimal) {
			return &model.ValidationError{
				Field:   "amount",
				Message: fmt.Sprintf("exceeds the per-transaction limit of %s", acc.WithdrawalLimit.Decimal.StringFixed(2)),
			}
		}
		if balance.Add(adj.Delta).IsNegative() {
			return &model.InsufficientFundsError{AccountID: acc.ID, Available: balance, Required: debit}
		}
	}
	return nil
}
