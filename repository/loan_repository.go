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

// ILoanRepository defines the contract for loan database operations.
type ILoanRepository interface {
	CreateLoan(ctx context.Context, loan *model.Loan) error
	GetLoanByID(ctx context.Context, loanID int64) (*model.Loan, error)
	GetLoanForUpdate(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error)
	GetLoansByUserID(ctx context.Context, userID int64) ([]*model.Loan, error)
	GetLoanIDsByStatus(ctx context.Context, status model.LoanStatus) ([]int64, error)
	UpdateLoan(ctx context.Context, tx *sql.Tx, loan *model.Loan) error
	UpdateTotalPenalty(ctx context.Context, tx *sql.Tx, loanID int64, total decimal.Decimal, updatedAt time.Time) (bool, error)
}

type LoanRepository struct {
	DB *sql.DB
}

func NewLoanRepository(db *sql.DB) *LoanRepository {
	return &LoanRepository{DB: db}
}

const loanColumns = `id, user_id, loan_type, principal_amount, interest_rate, tenure_months, emi_amount,
	remaining_balance, paid_installments, grace_period_days, penalty_rate, total_penalty, status,
	purpose, remarks, disbursement_account_id, disbursement_transaction_id, approved_at, closed_at, created_at, updated_at`

func scanLoan(row rowScanner) (*model.Loan, error) {
	var l model.Loan
	err := row.Scan(&l.ID, &l.UserID, &l.LoanType, &l.PrincipalAmount, &l.InterestRate, &l.TenureMonths,
		&l.EMIAmount, &l.RemainingBalance, &l.PaidInstallments, &l.GracePeriodDays, &l.PenaltyRate,
		&l.TotalPenalty, &l.Status, &l.Purpose, &l.Remarks, &l.DisbursementAccountID, &l.DisbursementTxID, &l.ApprovedAt,
		&l.ClosedAt, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LoanRepository) CreateLoan(ctx context.Context, loan *model.Loan) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":   loan.UserID,
		"loan_type": loan.LoanType,
		"principal": loan.PrincipalAmount.StringFixed(2),
		"tenure":    loan.TenureMonths,
	})
	log.Info("Executing query to create a new loan")

	query := `INSERT INTO loans (user_id, loan_type, principal_amount, interest_rate, tenure_months, emi_amount,
		remaining_balance, paid_installments, grace_period_days, penalty_rate, total_penalty, status, purpose,
		remarks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING id`
	err := r.DB.QueryRowContext(ctx, query, loan.UserID, loan.LoanType, loan.PrincipalAmount, loan.InterestRate,
		loan.TenureMonths, loan.EMIAmount, loan.RemainingBalance, loan.PaidInstallments, loan.GracePeriodDays,
		loan.PenaltyRate, loan.TotalPenalty, loan.Status, loan.Purpose, loan.Remarks, loan.CreatedAt, loan.UpdatedAt,
	).Scan(&loan.ID)
	if err != nil {
		log.WithError(err).Error("Failed to execute create loan query")
		return err
	}
	return nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*model.Loan, error) {
	loan, err := scanLoan(r.DB.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, loanID))
	if err != nil && err != sql.ErrNoRows {
		logger.Log.WithError(err).WithField("loan_id", loanID).Error("Failed to execute get loan query")
	}
	return loan, err
}

func (r *LoanRepository) GetLoanForUpdate(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error) {
	log := logger.Log.WithField("loan_id", loanID)
	log.Info("Executing query to get loan for update")

	loan, err := scanLoan(tx.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, loanID))
	if err != nil && err != sql.ErrNoRows {
		log.WithError(err).Error("Failed to execute get loan for update query")
	}
	return loan, err
}

func (r *LoanRepository) GetLoansByUserID(ctx context.Context, userID int64) ([]*model.Loan, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to get loans by user ID")

	rows, err := r.DB.QueryContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for loans by user ID")
		return nil, err
	}
	defer rows.Close()

	var loans []*model.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan loan row")
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

// GetLoanIDsByStatus lists loan ids only; batch jobs re-read each loan under lock.
func (r *LoanRepository) GetLoanIDsByStatus(ctx context.Context, status model.LoanStatus) ([]int64, error) {
	log := logger.Log.WithField("status", status)
	log.Info("Executing query to get loan IDs by status")

	rows, err := r.DB.QueryContext(ctx, `SELECT id FROM loans WHERE status = $1 ORDER BY id`, status)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for loan IDs by status")
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateLoan persists the mutable lifecycle and repayment fields of a loan.
func (r *LoanRepository) UpdateLoan(ctx context.Context, tx *sql.Tx, loan *model.Loan) error {
	log := logger.Log.WithFields(logrus.Fields{
		"loan_id":           loan.ID,
		"status":            loan.Status,
		"remaining_balance": loan.RemainingBalance.StringFixed(2),
		"paid_installments": loan.PaidInstallments,
	})
	log.Info("Executing query to update loan")

	query := `UPDATE loans SET status = $1, remaining_balance = $2, paid_installments = $3, total_penalty = $4,
		remarks = $5, disbursement_account_id = $6, disbursement_transaction_id = $7, approved_at = $8, closed_at = $9,
		updated_at = $10
		WHERE id = $11`
	_, err := tx.ExecContext(ctx, query, loan.Status, loan.RemainingBalance, loan.PaidInstallments, loan.TotalPenalty,
		loan.Remarks, loan.DisbursementAccountID, loan.DisbursementTxID, loan.ApprovedAt, loan.ClosedAt, loan.UpdatedAt, loan.ID)
	if err != nil {
		log.WithError(err).Error("Failed to execute update loan query")
		return err
	}
	return nil
}

// UpdateTotalPenalty writes total only when it differs from the stored value
// and reports whether a row changed.
func (r *LoanRepository) UpdateTotalPenalty(ctx context.Context, tx *sql.Tx, loanID int64, total decimal.Decimal, updatedAt time.Time) (bool, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"loan_id":       loanID,
		"total_penalty": total.StringFixed(2),
	})

	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET total_penalty = $1, updated_at = $2 WHERE id = $3 AND total_penalty <> $1`,
		total, updatedAt, loanID)
	if err != nil {
		log.WithError(err).Error("Failed to execute update total penalty query")
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		log.Info("Loan total penalty updated")
	}
	return n > 0, nil
}
