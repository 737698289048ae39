package repository

import (
	"context"
	"database/sql"
	"go-bank-ledger/logger"
	"go-bank-ledger/model"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// IAccountRepository defines the contract for account database operations.
// Methods taking a *sql.Tx run inside the caller's transaction.
type IAccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetLastAccountNumber(ctx context.Context) (int64, error)
	GetAccountByID(ctx context.Context, accountID int64) (*model.Account, error)
	GetAccountByNumber(ctx context.Context, accountNumber int64) (*model.Account, error)
	GetAccountsByUserID(ctx context.Context, userID int64) ([]*model.Account, error)
	GetAccountForUpdate(ctx context.Context, tx *sql.Tx, accountID int64) (*model.Account, error)
	UpdateAccountBalance(ctx context.Context, tx *sql.Tx, accountID int64, newBalance decimal.Decimal, updatedAt time.Time) error
}

type AccountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

const accountColumns = `id, user_id, account_number, account_type, balance, currency, frozen, status,
	withdrawal_limit, interest_rate, maturity_date, created_at, updated_at`

func scanAccount(row rowScanner) (*model.Account, error) {
	var acc model.Account
	err := row.Scan(&acc.ID, &acc.UserID, &acc.AccountNumber, &acc.Type, &acc.Balance, &acc.Currency,
		&acc.Frozen, &acc.Status, &acc.WithdrawalLimit, &acc.InterestRate, &acc.MaturityDate,
		&acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// CreateAccount adds a new account to the database.
func (r *AccountRepository) CreateAccount(ctx context.Context, account *model.Account) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":        account.UserID,
		"account_number": account.AccountNumber,
		"account_type":   account.Type,
		"currency":       account.Currency,
	})
	log.Info("Executing query to create a new account")

	query := `INSERT INTO accounts (user_id, account_number, account_type, balance, currency, frozen, status,
		withdrawal_limit, interest_rate, maturity_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	err := r.DB.QueryRowContext(ctx, query, account.UserID, account.AccountNumber, account.Type, account.Balance,
		account.Currency, account.Frozen, account.Status, account.WithdrawalLimit, account.InterestRate,
		account.MaturityDate, account.CreatedAt, account.UpdatedAt).Scan(&account.ID)
	if err != nil {
		log.WithError(err).Error("Failed to execute create account query")
		return err
	}
	return nil
}

// GetLastAccountNumber returns the highest account number issued so far, or 0.
func (r *AccountRepository) GetLastAccountNumber(ctx context.Context) (int64, error) {
	var last int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(account_number), 0) FROM accounts`).Scan(&last)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute last account number query")
		return 0, err
	}
	return last, nil
}

func (r *AccountRepository) GetAccountByID(ctx context.Context, accountID int64) (*model.Account, error) {
	log := logger.Log.WithField("account_id", accountID)
	log.Debug("Executing query to get account by ID")

	acc, err := scanAccount(r.DB.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID))
	if err != nil && err != sql.ErrNoRows {
		log.WithError(err).Error("Failed to execute get account by ID query")
	}
	return acc, err
}

func (r *AccountRepository) GetAccountByNumber(ctx context.Context, accountNumber int64) (*model.Account, error) {
	log := logger.Log.WithField("account_number", accountNumber)
	log.Debug("Executing query to get account by number")

	acc, err := scanAccount(r.DB.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, accountNumber))
	if err != nil && err != sql.ErrNoRows {
		log.WithError(err).Error("Failed to execute get account by number query")
	}
	return acc, err
}

// GetAccountsByUserID retrieves all accounts for a specific user, oldest first.
func (r *AccountRepository) GetAccountsByUserID(ctx context.Context, userID int64) ([]*model.Account, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to get accounts by user ID")

	rows, err := r.DB.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for accounts by user ID")
		return nil, err
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan account row")
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// GetAccountForUpdate reads the account and holds its row lock until tx ends.
func (r *AccountRepository) GetAccountForUpdate(ctx context.Context, tx *sql.Tx, accountID int64) (*model.Account, error) {
	log := logger.Log.WithField("account_id", accountID)
	log.Info("Executing query to get account for update")

	acc, err := scanAccount(tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, accountID))
	if err != nil {
		if err == sql.ErrNoRows {
			log.Info("Account not found for update")
		} else {
			log.WithError(err).Error("Failed to execute get account for update query")
		}
		return nil, err
	}
	return acc, nil
}

func (r *AccountRepository) UpdateAccountBalance(ctx context.Context, tx *sql.Tx, accountID int64, newBalance decimal.Decimal, updatedAt time.Time) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id":  accountID,
		"new_balance": newBalance.StringFixed(2),
	})
	log.Info("Executing query to update account balance")

	query := `UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3`
	_, err := tx.ExecContext(ctx, query, newBalance, updatedAt, accountID)
	if err != nil {
		log.WithError(err).Error("Failed to execute update account balance query")
		return err
	}
	return nil
}
