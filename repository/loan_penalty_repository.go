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

// ILoanPenaltyRepository defines the contract for late-fee rows.
type ILoanPenaltyRepository interface {
	UpsertPenalty(ctx context.Context, tx *sql.Tx, penalty *model.LoanPenalty) error
	GetPenaltyByID(ctx context.Context, penaltyID int64) (*model.LoanPenalty, error)
	GetPenaltyForUpdate(ctx context.Context, tx *sql.Tx, penaltyID int64) (*model.LoanPenalty, error)
	ResolvePenalty(ctx context.Context, tx *sql.Tx, penaltyID int64, status model.PenaltyStatus, remarks string, resolvedAt time.Time) error
	ResolvePendingForInstallment(ctx context.Context, tx *sql.Tx, loanID int64, installment int, status model.PenaltyStatus, settled decimal.Decimal, resolvedAt time.Time) (bool, error)
	GetPenaltiesByLoanID(ctx context.Context, loanID int64) ([]*model.LoanPenalty, error)
	SumPendingPenalties(ctx context.Context, tx *sql.Tx, loanID int64) (decimal.Decimal, error)
	GetSummary(ctx context.Context) (*model.PenaltySummary, error)
}

type LoanPenaltyRepository struct {
	DB *sql.DB
}

func NewLoanPenaltyRepository(db *sql.DB) *LoanPenaltyRepository {
	return &LoanPenaltyRepository{DB: db}
}

const penaltyColumns = `id, loan_id, installment_number, due_date, days_overdue, emi_amount, penalty_amount,
	penalty_rate_used, status, penalty_start_date, resolved_date, remarks, created_at, updated_at`

func scanPenalty(row rowScanner) (*model.LoanPenalty, error) {
	var p model.LoanPenalty
	err := row.Scan(&p.ID, &p.LoanID, &p.InstallmentNumber, &p.DueDate, &p.DaysOverdue, &p.EMIAmount,
		&p.PenaltyAmount, &p.PenaltyRateUsed, &p.Status, &p.PenaltyStartDate, &p.ResolvedDate, &p.Remarks,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertPenalty inserts the penalty for (loan, installment) or refreshes the
// amount of an existing PENDING row. Waived and collected rows are left untouched.
func (r *LoanPenaltyRepository) UpsertPenalty(ctx context.Context, tx *sql.Tx, penalty *model.LoanPenalty) error {
	log := logger.Log.WithFields(logrus.Fields{
		"loan_id":      penalty.LoanID,
		"installment":  penalty.InstallmentNumber,
		"days_overdue": penalty.DaysOverdue,
		"amount":       penalty.PenaltyAmount.StringFixed(2),
	})
	log.Debug("Executing query to upsert loan penalty")

	query := `INSERT INTO loan_penalties (loan_id, installment_number, due_date, days_overdue, emi_amount,
		penalty_amount, penalty_rate_used, status, penalty_start_date, remarks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'PENDING', $8, '', $9, $9)
		ON CONFLICT (loan_id, installment_number) DO UPDATE
		SET days_overdue = EXCLUDED.days_overdue,
		    penalty_amount = EXCLUDED.penalty_amount,
		    penalty_rate_used = EXCLUDED.penalty_rate_used,
		    updated_at = EXCLUDED.updated_at
		WHERE loan_penalties.status = 'PENDING'`
	_, err := tx.ExecContext(ctx, query, penalty.LoanID, penalty.InstallmentNumber, penalty.DueDate,
		penalty.DaysOverdue, penalty.EMIAmount, penalty.PenaltyAmount, penalty.PenaltyRateUsed,
		penalty.PenaltyStartDate, penalty.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute upsert loan penalty query")
		return err
	}
	return nil
}

func (r *LoanPenaltyRepository) GetPenaltyByID(ctx context.Context, penaltyID int64) (*model.LoanPenalty, error) {
	p, err := scanPenalty(r.DB.QueryRowContext(ctx, `SELECT `+penaltyColumns+` FROM loan_penalties WHERE id = $1`, penaltyID))
	if err != nil && err != sql.ErrNoRows {
		logger.Log.WithError(err).WithField("penalty_id", penaltyID).Error("Failed to execute get penalty query")
	}
	return p, err
}

func (r *LoanPenaltyRepository) GetPenaltyForUpdate(ctx context.Context, tx *sql.Tx, penaltyID int64) (*model.LoanPenalty, error) {
	p, err := scanPenalty(tx.QueryRowContext(ctx, `SELECT `+penaltyColumns+` FROM loan_penalties WHERE id = $1 FOR UPDATE`, penaltyID))
	if err != nil && err != sql.ErrNoRows {
		logger.Log.WithError(err).WithField("penalty_id", penaltyID).Error("Failed to execute get penalty for update query")
	}
	return p, err
}

func (r *LoanPenaltyRepository) ResolvePenalty(ctx context.Context, tx *sql.Tx, penaltyID int64, status model.PenaltyStatus, remarks string, resolvedAt time.Time) error {
	log := logger.Log.WithFields(logrus.Fields{
		"penalty_id": penaltyID,
		"status":     status,
	})
	log.Info("Executing query to resolve loan penalty")

	query := `UPDATE loan_penalties SET status = $1, remarks = $2, resolved_date = $3, updated_at = $3
		WHERE id = $4 AND status = 'PENDING'`
	_, err := tx.ExecContext(ctx, query, status, remarks, resolvedAt, penaltyID)
	if err != nil {
		log.WithError(err).Error("Failed to execute resolve loan penalty query")
		return err
	}
	return nil
}

// ResolvePendingForInstallment closes the PENDING penalty of one installment
// and records settled as its final amount. It reports whether a row was closed.
func (r *LoanPenaltyRepository) ResolvePendingForInstallment(ctx context.Context, tx *sql.Tx, loanID int64, installment int, status model.PenaltyStatus, settled decimal.Decimal, resolvedAt time.Time) (bool, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"loan_id":     loanID,
		"installment": installment,
		"status":      status,
		"amount":      settled.StringFixed(2),
	})

	query := `UPDATE loan_penalties SET status = $1, penalty_amount = $2, resolved_date = $3, updated_at = $3
		WHERE loan_id = $4 AND installment_number = $5 AND status = 'PENDING'`
	result, err := tx.ExecContext(ctx, query, status, settled, resolvedAt, loanID, installment)
	if err != nil {
		log.WithError(err).Error("Failed to execute resolve installment penalty query")
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	log.Info("Installment penalty resolved")
	return true, nil
}

func (r *LoanPenaltyRepository) GetPenaltiesByLoanID(ctx context.Context, loanID int64) ([]*model.LoanPenalty, error) {
	log := logger.Log.WithField("loan_id", loanID)
	log.Info("Executing query to get penalties by loan ID")

	rows, err := r.DB.QueryContext(ctx, `SELECT `+penaltyColumns+` FROM loan_penalties WHERE loan_id = $1 ORDER BY installment_number`, loanID)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for penalties by loan ID")
		return nil, err
	}
	defer rows.Close()

	var penalties []*model.LoanPenalty
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan penalty row")
			return nil, err
		}
		penalties = append(penalties, p)
	}
	return penalties, rows.Err()
}

func (r *LoanPenaltyRepository) SumPendingPenalties(ctx context.Context, tx *sql.Tx, loanID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(penalty_amount), 0) FROM loan_penalties WHERE loan_id = $1 AND status = 'PENDING'`,
		loanID).Scan(&total)
	if err != nil {
		logger.Log.WithError(err).WithField("loan_id", loanID).Error("Failed to execute sum pending penalties query")
		return decimal.Zero, err
	}
	return total, nil
}

// GetSummary aggregates all penalty rows by status.
func (r *LoanPenaltyRepository) GetSummary(ctx context.Context) (*model.PenaltySummary, error) {
	query := `SELECT
		COUNT(*) FILTER (WHERE status = 'PENDING'),
		COALESCE(SUM(penalty_amount) FILTER (WHERE status = 'PENDING'), 0),
		COUNT(*) FILTER (WHERE status = 'WAIVED'),
		COALESCE(SUM(penalty_amount) FILTER (WHERE status = 'WAIVED'), 0),
		COUNT(*) FILTER (WHERE status = 'COLLECTED'),
		COALESCE(SUM(penalty_amount) FILTER (WHERE status = 'COLLECTED'), 0),
		COUNT(DISTINCT loan_id) FILTER (WHERE status = 'PENDING')
		FROM loan_penalties`

	var s model.PenaltySummary
	err := r.DB.QueryRowContext(ctx, query).Scan(&s.PendingCount, &s.PendingAmount, &s.WaivedCount,
		&s.WaivedAmount, &s.CollectedCount, &s.CollectedAmount, &s.LoansWithPending)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute penalty summary query")
		return nil, err
	}
	return &s, nil
}
