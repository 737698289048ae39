package service

import (
	"context"
	"database/sql"
	"fmt"
	"go-bank-ledger/model"
	"go-bank-ledger/repository"
	"time"

	"github.com/google/uuid"
)

// TransactionJournal appends journal entries. Record must be called with the
// same *sql.Tx as the ledger adjustment the entry documents.
type TransactionJournal struct {
	transactionRepo repository.ITransactionRepository
	now             func() time.Time
}

func NewTransactionJournal(transactionRepo repository.ITransactionRepository) *TransactionJournal {
	return &TransactionJournal{transactionRepo: transactionRepo, now: time.Now}
}

// Record stamps entry with a fresh reference and creation time and inserts it.
// Entries default to COMPLETED.
func (j *TransactionJournal) Record(ctx context.Context, tx *sql.Tx, entry *model.Transaction) error {
	if !entry.Amount.IsPositive() {
		return &model.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	if entry.FromAccountID == nil && entry.ToAccountID == nil {
		return &model.ValidationError{Message: "journal entry must reference at least one account"}
	}
	if entry.Status == "" {
		entry.Status = model.TransactionStatusCompleted
	}
	entry.Reference = uuid.New()
	entry.CreatedAt = j.now()

	if err := j.transactionRepo.CreateTransaction(ctx, tx, entry); err != nil {
		return fmt.Errorf("could not create transaction record: %w", err)
	}
	return nil
}

// MarkReversed flips a COMPLETED entry to REVERSED.
func (j *TransactionJournal) MarkReversed(ctx context.Context, tx *sql.Tx, entry *model.Transaction) error {
	if !entry.Status.Reversible() {
		return &model.StateConflictError{
			Resource: "transaction",
			ID:       fmt.Sprint(entry.ID),
			State:    string(entry.Status),
			Action:   "reverse",
		}
	}
	if err := j.transactionRepo.UpdateTransactionStatus(ctx, tx, entry.ID, model.TransactionStatusReversed); err != nil {
		return fmt.Errorf("could not update transaction status: %w", err)
	}
	entry.Status = model.TransactionStatusReversed
	return nil
}
