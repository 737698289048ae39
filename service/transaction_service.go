package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-bank-ledger/logger"
	"go-bank-ledger/metrics"
	"go-bank-ledger/model"
	"go-bank-ledger/repository"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const historyLimit = 100

// TransactionService moves money. Each public method is one atomic unit:
// ledger adjustments and their journal entry commit together or not at all.
type TransactionService struct {
	accountRepo     repository.IAccountRepository
	transactionRepo repository.ITransactionRepository
	ledger          *AccountLedger
	journal         *TransactionJournal
	runner          *txRunner
	metrics         *metrics.Metrics
}

func NewTransactionService(db *sql.DB, accountRepo repository.IAccountRepository, transactionRepo repository.ITransactionRepository, policy RetryPolicy, m *metrics.Metrics) *TransactionService {
	return &TransactionService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		ledger:          NewAccountLedger(accountRepo),
		journal:         NewTransactionJournal(transactionRepo),
		runner:          newTxRunner(db, policy, m),
		metrics:         m,
	}
}

// Deposit credits an account. It is the credit path used by the staff deposit
// workflow, so no ownership check applies.
func (s *TransactionService) Deposit(ctx context.Context, accountID int64, req model.AmountRequest) (transaction *model.Transaction, err error) {
	ctx, done := startOperation(ctx, ledgerTracer, s.metrics, "TransactionService.Deposit", "deposit")
	defer func() { done(err) }()

	log := logger.Log.WithFields(logrus.Fields{
		"account_id": accountID,
		"amount":     req.Amount.StringFixed(2),
	})
	log.Info("Starting deposit")

	err = s.runner.run(ctx, "deposit", func(tx *sql.Tx) error {
		var txErr error
		transaction, txErr = s.DepositInTx(ctx, tx, accountID, req.Amount, req.Description)
		return txErr
	})
	if err != nil {
		log.WithError(err).Warn("Deposit failed")
		return nil, err
	}
	log.WithField("transaction_id", transaction.ID).Info("Deposit completed successfully")
	return transaction, nil
}

// DepositInTx credits accountID inside the caller's transaction.
func (s *TransactionService) DepositInTx(ctx context.Context, tx *sql.Tx, accountID int64, amount decimal.Decimal, description string) (*model.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if _, err := s.ledger.Adjust(ctx, tx, accountID, amount, AdjustOptions{}); err != nil {
		return nil, err
	}
	entry := &model.Transaction{
		ToAccountID: &accountID,
		Amount:      amount,
		Type:        model.TransactionTypeDeposit,
		Description: description,
	}
	if err := s.journal.Record(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Withdraw debits an account owned by userID. userID 0 skips the ownership check.
func (s *TransactionService) Withdraw(ctx context.Context, userID, accountID int64, req model.AmountRequest) (transaction *model.Transaction, err error) {
	ctx, done := startOperation(ctx, ledgerTracer, s.metrics, "TransactionService.Withdraw", "withdraw")
	defer func() { done(err) }()

	log := logger.Log.WithFields(logrus.Fields{
		"account_id": accountID,
		"amount":     req.Amount.StringFixed(2),
		"user_id":    userID,
	})
	log.Info("Starting withdrawal")

	err = s.runner.run(ctx, "withdraw", func(tx *sql.Tx) error {
		var txErr error
		opts := AdjustOptions{OwnerID: userID, EnforceLimit: true}
		transaction, txErr = s.WithdrawInTx(ctx, tx, accountID, req.Amount, req.Description, opts)
		return txErr
	})
	if err != nil {
		log.WithError(err).Warn("Withdrawal failed")
		return nil, err
	}
	log.WithField("transaction_id", transaction.ID).Info("Withdrawal completed successfully")
	return transaction, nil
}

// WithdrawInTx debits accountID inside the caller's transaction.
func (s *TransactionService) WithdrawInTx(ctx context.Context, tx *sql.Tx, accountID int64, amount decimal.Decimal, description string, opts AdjustOptions) (*model.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if _, err := s.ledger.Adjust(ctx, tx, accountID, amount.Neg(), opts); err != nil {
		return nil, err
	}
	entry := &model.Transaction{
		FromAccountID: &accountID,
		Amount:        amount,
		Type:          model.TransactionTypeWithdraw,
		Description:   description,
	}
	if err := s.journal.Record(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Transfer moves money between two accounts addressed by account number.
// Rows are locked in ascending id order whatever the direction of the transfer.
func (s *TransactionService) Transfer(ctx context.Context, userID int64, req model.TransferRequest) (transaction *model.Transaction, err error) {
	ctx, done := startOperation(ctx, ledgerTracer, s.metrics, "TransactionService.Transfer", "transfer")
	defer func() { done(err) }()

	log := logger.Log.WithFields(logrus.Fields{
		"from_account_number": req.FromAccountNumber,
		"to_account_number":   req.ToAccountNumber,
		"amount":              req.Amount.StringFixed(2),
		"user_id":             userID,
	})
	log.Info("Starting money transfer process")

	if req.FromAccountNumber == req.ToAccountNumber {
		return nil, ErrSameAccountTransfer
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	from, err := s.accountByNumber(ctx, req.FromAccountNumber)
	if err != nil {
		return nil, err
	}
	to, err := s.accountByNumber(ctx, req.ToAccountNumber)
	if err != nil {
		return nil, err
	}
	if from.Currency != to.Currency {
		return nil, ErrCurrencyMismatch
	}

	err = s.runner.run(ctx, "transfer", func(tx *sql.Tx) error {
		_, txErr := s.ledger.AdjustMany(ctx, tx, []Adjustment{
			{AccountID: from.ID, Delta: req.Amount.Neg(), Options: AdjustOptions{OwnerID: userID, EnforceLimit: true}},
			{AccountID: to.ID, Delta: req.Amount},
		})
		if txErr != nil {
			return txErr
		}
		transaction = &model.Transaction{
			FromAccountID: &from.ID,
			ToAccountID:   &to.ID,
			Amount:        req.Amount,
			Type:          model.TransactionTypeTransfer,
			TransferType:  model.TransferTypeInternal,
			Description:   req.Description,
		}
		return s.journal.Record(ctx, tx, transaction)
	})
	if err != nil {
		log.WithError(err).Warn("Transfer failed")
		return nil, err
	}

	log.WithField("transaction_id", transaction.ID).Info("Transaction completed successfully")
	return transaction, nil
}

// ExternalTransfer debits the sender and journals the beneficiary details.
// Settlement with the other bank happens outside this service.
func (s *TransactionService) ExternalTransfer(ctx context.Context, userID int64, req model.ExternalTransferRequest) (transaction *model.Transaction, err error) {
	ctx, done := startOperation(ctx, ledgerTracer, s.metrics, "TransactionService.ExternalTransfer", "external_transfer")
	defer func() { done(err) }()

	log := logger.Log.WithFields(logrus.Fields{
		"from_account_number": req.FromAccountNumber,
		"beneficiary_bank":    req.Beneficiary.BankName,
		"amount":              req.Amount.StringFixed(2),
		"user_id":             userID,
	})
	log.Info("Starting external transfer")

	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	from, err := s.accountByNumber(ctx, req.FromAccountNumber)
	if err != nil {
		return nil, err
	}

	err = s.runner.run(ctx, "external_transfer", func(tx *sql.Tx) error {
		opts := AdjustOptions{OwnerID: userID, EnforceLimit: true}
		if _, txErr := s.ledger.Adjust(ctx, tx, from.ID, req.Amount.Neg(), opts); txErr != nil {
			return txErr
		}
		beneficiary := req.Beneficiary
		transaction = &model.Transaction{
			FromAccountID: &from.ID,
			Amount:        req.Amount,
			Type:          model.TransactionTypeExternalTransfer,
			TransferType:  model.TransferTypeExternal,
			Description:   req.Description,
			External:      &beneficiary,
		}
		return s.journal.Record(ctx, tx, transaction)
	})
	if err != nil {
		log.WithError(err).Warn("External transfer failed")
		return nil, err
	}

	log.WithField("transaction_id", transaction.ID).Info("External transfer completed successfully")
	return transaction, nil
}

// Reverse undoes a COMPLETED journal entry: the original receiver is debited,
// the original sender credited, a REVERSAL entry is written and the original
// is marked REVERSED. Frozen accounts do not block a reversal. Loan
// disbursements and EMI debits cannot be reversed here since the loan
// record would no longer match the ledger.
func (s *TransactionService) Reverse(ctx context.Context, transactionID int64, reason string) (reversal *model.Transaction, err error) {
	ctx, done := startOperation(ctx, ledgerTracer, s.metrics, "TransactionService.Reverse", "reverse")
	defer func() { done(err) }()

	log := logger.Log.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"reason":         reason,
	})
	log.Info("Starting reversal")

	err = s.runner.run(ctx, "reverse", func(tx *sql.Tx) error {
		original, txErr := s.transactionRepo.GetTransactionForUpdate(ctx, tx, transactionID)
		if txErr != nil {
			if errors.Is(txErr, sql.ErrNoRows) {
				return &model.NotFoundError{Resource: "transaction", ID: strconv.FormatInt(transactionID, 10)}
			}
			return fmt.Errorf("could not load transaction: %w", txErr)
		}
		if original.Type == model.TransactionTypeReversal {
			return &model.StateConflictError{
				Resource: "transaction",
				ID:       strconv.FormatInt(transactionID, 10),
				State:    string(original.Type),
				Action:   "reverse",
			}
		}
		if !original.Status.Reversible() {
			return &model.StateConflictError{
				Resource: "transaction",
				ID:       strconv.FormatInt(transactionID, 10),
				State:    string(original.Status),
				Action:   "reverse",
			}
		}

		linked, txErr := s.transactionRepo.IsLoanEntry(ctx, tx, original.ID)
		if txErr != nil {
			return fmt.Errorf("could not check loan references: %w", txErr)
		}
		if linked {
			return &model.StateConflictError{
				Resource: "transaction",
				ID:       strconv.FormatInt(transactionID, 10),
				State:    "LOAN_ENTRY",
				Action:   "reverse",
			}
		}

		staff := AdjustOptions{AllowFrozen: true}
		var adjustments []Adjustment
		if original.ToAccountID != nil {
			adjustments = append(adjustments, Adjustment{AccountID: *original.ToAccountID, Delta: original.Amount.Neg(), Options: staff})
		}
		if original.FromAccountID != nil {
			adjustments = append(adjustments, Adjustment{AccountID: *original.FromAccountID, Delta: original.Amount, Options: staff})
		}
		if _, txErr = s.ledger.AdjustMany(ctx, tx, adjustments); txErr != nil {
			return txErr
		}

		reversal = &model.Transaction{
			FromAccountID: original.ToAccountID,
			ToAccountID:   original.FromAccountID,
			Amount:        original.Amount,
			Type:          model.TransactionTypeReversal,
			TransferType:  original.TransferType,
			Description:   reason,
			ReversalOf:    &original.ID,
		}
		if txErr = s.journal.Record(ctx, tx, reversal); txErr != nil {
			return txErr
		}
		return s.journal.MarkReversed(ctx, tx, original)
	})
	if err != nil {
		log.WithError(err).Warn("Reversal failed")
		return nil, err
	}

	log.WithField("reversal_id", reversal.ID).Info("Reversal completed successfully")
	return reversal, nil
}

// GetTransaction returns one journal entry.
func (s *TransactionService) GetTransaction(ctx context.Context, transactionID int64) (*model.Transaction, error) {
	t, err := s.transactionRepo.GetTransactionByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &model.NotFoundError{Resource: "transaction", ID: strconv.FormatInt(transactionID, 10)}
		}
		return nil, err
	}
	return t, nil
}

// ListTransactionsForAccount retrieves the most recent history of an account
// owned by userID. userID 0 skips the ownership check.
func (s *TransactionService) ListTransactionsForAccount(ctx context.Context, userID, accountID int64) ([]*model.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "TransactionService.ListTransactionsForAccount")
	defer span.End()
	span.SetAttributes(attribute.Int64("account.id", accountID))

	account, err := s.accountRepo.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &model.NotFoundError{Resource: "account", ID: strconv.FormatInt(accountID, 10)}
		}
		return nil, err
	}
	if userID != 0 && account.UserID != userID {
		logger.Log.WithFields(logrus.Fields{
			"requesting_user_id": userID,
			"target_account_id":  accountID,
		}).Warn("Permission denied for accessing account's transaction history")
		return nil, ErrPermissionDenied
	}
	return s.transactionRepo.GetTransactionsByAccountID(ctx, accountID, historyLimit)
}

func (s *TransactionService) accountByNumber(ctx context.Context, number int64) (*model.Account, error) {
	acc, err := s.accountRepo.GetAccountByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &model.NotFoundError{Resource: "account", ID: strconv.FormatInt(number, 10)}
		}
		return nil, err
	}
	return acc, nil
}
