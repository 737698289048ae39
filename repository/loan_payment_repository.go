package repository

import (
	"context"
	"database/sql"
	"go-bank-ledger/logger"
	"go-bank-ledger/model"

	"github.com/sirupsen/logrus"
)

// ILoanPaymentRepository is append-only: payments are never updated or deleted.
type ILoanPaymentRepository interface {
	CreatePayment(ctx context.Context, tx *sql.Tx, payment *model.LoanPayment) error
	GetPaymentsByLoanID(ctx context.Context, loanID int64) ([]*model.LoanPayment, error)
	GetPaidInstallments(ctx context.Context, tx *sql.Tx, loanID int64) (map[int]bool, error)
}

type LoanPaymentRepository struct {
	DB *sql.DB
}

func NewLoanPaymentRepository(db *sql.DB) *LoanPaymentRepository {
	return &LoanPaymentRepository{DB: db}
}

func (r *LoanPaymentRepository) CreatePayment(ctx context.Context, tx *sql.Tx, payment *model.LoanPayment) error {
	log := logger.Log.WithFields(logrus.Fields{
		"loan_id":     payment.LoanID,
		"installment": payment.InstallmentNumber,
		"amount_paid": payment.AmountPaid.StringFixed(2),
	})
	log.Info("Executing query to create a loan payment")

	query := `INSERT INTO loan_payments (loan_id, installment_number, account_id, transaction_id, amount_paid,
		principal_amount, interest_amount, penalty_amount, outstanding_balance, due_date, paid_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	err := tx.QueryRowContext(ctx, query, payment.LoanID, payment.InstallmentNumber, payment.AccountID,
		payment.TransactionID, payment.AmountPaid, payment.PrincipalAmount, payment.InterestAmount,
		payment.PenaltyAmount, payment.OutstandingBalance, payment.DueDate, payment.PaidDate,
	).Scan(&payment.ID)
	if err != nil {
		log.WithError(err).Error("Failed to execute create loan payment query")
		return err
	}
	return nil
}

func (r *LoanPaymentRepository) GetPaymentsByLoanID(ctx context.Context, loanID int64) ([]*model.LoanPayment, error) {
	log := logger.Log.WithField("loan_id", loanID)
	log.Info("Executing query to get payments by loan ID")

	query := `SELECT id, loan_id, installment_number, account_id, transaction_id, amount_paid, principal_amount,
		interest_amount, penalty_amount, outstanding_balance, due_date, paid_date
		FROM loan_payments WHERE loan_id = $1 ORDER BY installment_number`
	rows, err := r.DB.QueryContext(ctx, query, loanID)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for payments by loan ID")
		return nil, err
	}
	defer rows.Close()

	var payments []*model.LoanPayment
	for rows.Next() {
		var p model.LoanPayment
		if err := rows.Scan(&p.ID, &p.LoanID, &p.InstallmentNumber, &p.AccountID, &p.TransactionID, &p.AmountPaid,
			&p.PrincipalAmount, &p.InterestAmount, &p.PenaltyAmount, &p.OutstandingBalance, &p.DueDate, &p.PaidDate); err != nil {
			log.WithError(err).Error("Failed to scan loan payment row")
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}

// GetPaidInstallments returns the set of installment numbers already paid.
func (r *LoanPaymentRepository) GetPaidInstallments(ctx context.Context, tx *sql.Tx, loanID int64) (map[int]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT installment_number FROM loan_payments WHERE loan_id = $1`, loanID)
	if err != nil {
		logger.Log.WithError(err).WithField("loan_id", loanID).Error("Failed to execute paid installments query")
		return nil, err
	}
	defer rows.Close()

	paid := make(map[int]bool)
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		paid[n] = true
	}
	return paid, rows.Err()
}
