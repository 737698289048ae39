package repository

import (
	"context"
	"database/sql"
	"go-bank-ledger/logger"
	"go-bank-ledger/model"

	"github.com/sirupsen/logrus"
)

// ITransactionRepository defines the contract for journal database operations.
type ITransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *sql.Tx, transaction *model.Transaction) error
	GetTransactionByID(ctx context.Context, transactionID int64) (*model.Transaction, error)
	GetTransactionForUpdate(ctx context.Context, tx *sql.Tx, transactionID int64) (*model.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, tx *sql.Tx, transactionID int64, status model.TransactionStatus) error
	GetTransactionsByAccountID(ctx context.Context, accountID int64, limit int) ([]*model.Transaction, error)
	IsLoanEntry(ctx context.Context, tx *sql.Tx, transactionID int64) (bool, error)
}

// TransactionRepository implements ITransactionRepository.
type TransactionRepository struct {
	DB *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{DB: db}
}

const transactionColumns = `id, reference, from_account_id, to_account_id, amount, type, status, transfer_type,
	description, external_bank_name, external_account_number, external_routing_code,
	external_beneficiary_name, reversal_of, created_at`

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var t model.Transaction
	var transferType, bankName, extAccount, routing, beneficiary sql.NullString
	err := row.Scan(&t.ID, &t.Reference, &t.FromAccountID, &t.ToAccountID, &t.Amount, &t.Type, &t.Status,
		&transferType, &t.Description, &bankName, &extAccount, &routing, &beneficiary, &t.ReversalOf, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.TransferType = model.TransferType(transferType.String)
	if bankName.Valid {
		t.External = &model.ExternalBankDetails{
			BankName:        bankName.String,
			AccountNumber:   extAccount.String,
			RoutingCode:     routing.String,
			BeneficiaryName: beneficiary.String,
		}
	}
	return &t, nil
}

func (r *TransactionRepository) CreateTransaction(ctx context.Context, tx *sql.Tx, transaction *model.Transaction) error {
	log := logger.Log.WithFields(logrus.Fields{
		"reference":       transaction.Reference,
		"type":            transaction.Type,
		"from_account_id": transaction.FromAccountID,
		"to_account_id":   transaction.ToAccountID,
		"amount":          transaction.Amount.StringFixed(2),
	})
	log.Info("Executing query to create a new transaction")

	var ext model.ExternalBankDetails
	if transaction.External != nil {
		ext = *transaction.External
	}

	query := `INSERT INTO transactions (reference, from_account_id, to_account_id, amount, type, status, transfer_type,
		description, external_bank_name, external_account_number, external_routing_code,
		external_beneficiary_name, reversal_of, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`
	err := tx.QueryRowContext(ctx, query,
		transaction.Reference, transaction.FromAccountID, transaction.ToAccountID, transaction.Amount,
		transaction.Type, transaction.Status, nullString(string(transaction.TransferType)), transaction.Description,
		nullString(ext.BankName), nullString(ext.AccountNumber), nullString(ext.RoutingCode), nullString(ext.BeneficiaryName),
		transaction.ReversalOf, transaction.CreatedAt,
	).Scan(&transaction.ID)
	if err != nil {
		log.WithError(err).Error("Failed to execute create transaction query")
		return err
	}
	return nil
}

func (r *TransactionRepository) GetTransactionByID(ctx context.Context, transactionID int64) (*model.Transaction, error) {
	t, err := scanTransaction(r.DB.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, transactionID))
	if err != nil && err != sql.ErrNoRows {
		logger.Log.WithError(err).WithField("transaction_id", transactionID).Error("Failed to execute get transaction query")
	}
	return t, err
}

// IsLoanEntry reports whether a loan disbursement or an EMI payment points at
// the journal entry.
func (r *TransactionRepository) IsLoanEntry(ctx context.Context, tx *sql.Tx, transactionID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM loan_payments WHERE transaction_id = $1)
		OR EXISTS (SELECT 1 FROM loans WHERE disbursement_transaction_id = $1)`
	var linked bool
	if err := tx.QueryRowContext(ctx, query, transactionID).Scan(&linked); err != nil {
		logger.Log.WithField("transaction_id", transactionID).WithError(err).Error("Failed to execute loan entry query")
		return false, err
	}
	return linked, nil
}

// GetTransactionForUpdate locks the journal row so concurrent reversals of the
// same entry serialize.
func (r *TransactionRepository) GetTransactionForUpdate(ctx context.Context, tx *sql.Tx, transactionID int64) (*model.Transaction, error) {
	log := logger.Log.WithField("transaction_id", transactionID)
	log.Info("Executing query to get transaction for update")

	t, err := scanTransaction(tx.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, transactionID))
	if err != nil && err != sql.ErrNoRows {
		log.WithError(err).Error("Failed to execute get transaction for update query")
	}
	return t, err
}

func (r *TransactionRepository) UpdateTransactionStatus(ctx context.Context, tx *sql.Tx, transactionID int64, status model.TransactionStatus) error {
	log := logger.Log.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"status":         status,
	})
	log.Info("Executing query to update transaction status")

	_, err := tx.ExecContext(ctx, `UPDATE transactions SET status = $1 WHERE id = $2`, status, transactionID)
	if err != nil {
		log.WithError(err).Error("Failed to execute update transaction status query")
		return err
	}
	return nil
}

// GetTransactionsByAccountID retrieves the most recent transactions touching an account.
func (r *TransactionRepository) GetTransactionsByAccountID(ctx context.Context, accountID int64, limit int) ([]*model.Transaction, error) {
	log := logger.Log.WithField("account_id", accountID)
	log.Info("Executing query to get transactions by account ID")

	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.DB.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for transactions by account ID")
		return nil, err
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan transaction row")
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}
