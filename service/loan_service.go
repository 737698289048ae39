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
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// LoanPolicy holds the defaults applied to new applications.
type LoanPolicy struct {
	DefaultGracePeriodDays int
	DefaultPenaltyRate     decimal.Decimal
	MaxTenureMonths        int
}

// LoanService runs the loan lifecycle: PENDING -> APPROVED | REJECTED,
// APPROVED -> CLOSED once the last installment is paid.
type LoanService struct {
	loanRepo     repository.ILoanRepository
	paymentRepo  repository.ILoanPaymentRepository
	accountRepo  repository.IAccountRepository
	transactions *TransactionService
	penalties    *PenaltyService
	runner       *txRunner
	notifier     Notifier
	policy       LoanPolicy
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewLoanService(db *sql.DB, loanRepo repository.ILoanRepository, paymentRepo repository.ILoanPaymentRepository, accountRepo repository.IAccountRepository, transactions *TransactionService, penalties *PenaltyService, notifier Notifier, policy LoanPolicy, retry RetryPolicy, m *metrics.Metrics) *LoanService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &LoanService{
		loanRepo:     loanRepo,
		paymentRepo:  paymentRepo,
		accountRepo:  accountRepo,
		transactions: transactions,
		penalties:    penalties,
		runner:       newTxRunner(db, retry, m),
		notifier:     notifier,
		policy:       policy,
		metrics:      m,
		now:          time.Now,
	}
}

// Apply records a PENDING loan with its EMI computed up front.
func (s *LoanService) Apply(ctx context.Context, userID int64, req model.LoanApplicationRequest) (loan *model.Loan, err error) {
	ctx, done := startOperation(ctx, loanTracer, s.metrics, "LoanService.Apply", "loan_apply")
	defer func() { done(err) }()

	log := logger.Log.WithFields(logrus.Fields{
		"user_id":   userID,
		"loan_type": req.LoanType,
		"principal": req.PrincipalAmount.StringFixed(2),
		"tenure":    req.TenureMonths,
	})
	log.Info("Processing loan application")

	if s.policy.MaxTenureMonths > 0 && req.TenureMonths > s.policy.MaxTenureMonths {
		return nil, &model.ValidationError{Field: "tenure_months", Message: fmt.Sprintf("must not exceed %d", s.policy.MaxTenureMonths)}
	}
	if req.InterestRate.GreaterThan(hundred) {
		return nil, &model.ValidationError{Field: "interest_rate", Message: "must not exceed 100"}
	}

	grace := s.policy.DefaultGracePeriodDays
	if req.GracePeriodDays != nil {
		grace = *req.GracePeriodDays
	}
	if grace < 0 {
		return nil, &model.ValidationError{Field: "grace_period_days", Message: "must not be negative"}
	}
	penaltyRate := s.policy.DefaultPenaltyRate
	if req.PenaltyRate != nil {
		penaltyRate = *req.PenaltyRate
	}
	if penaltyRate.IsNegative() || penaltyRate.GreaterThan(hundred) {
		return nil, &model.ValidationError{Field: "penalty_rate", Message: "must be between 0 and 100"}
	}

	principal := req.PrincipalAmount.Round(2)
	rate := req.InterestRate.Round(2)
	emi, err := CalculateEMI(principal, rate, req.TenureMonths)
	if err != nil {
		return nil, err
	}

	now := s.now()
	loan = &model.Loan{
		UserID:           userID,
		LoanType:         req.LoanType,
		PrincipalAmount:  principal,
		InterestRate:     rate,
		TenureMonths:     req.TenureMonths,
		EMIAmount:        emi,
		RemainingBalance: principal,
		GracePeriodDays:  grace,
		PenaltyRate:      penaltyRate.Round(2),
		TotalPenalty:     decimal.Zero,
		Status:           model.LoanStatusPending,
		Purpose:          req.Purpose,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.loanRepo.CreateLoan(ctx, loan); err != nil {
		return nil, fmt.Errorf("could not create loan: %w", err)
	}

	log.WithFields(logrus.Fields{
		"loan_id": loan.ID,
		"emi":     emi.StringFixed(2),
	}).Info("Loan application recorded")
	return loan, nil
}

// Approve disburses the principal into the applicant's settlement account
// and flips the loan to APPROVED in the same transaction.
func (s *LoanService) Approve(ctx context.Context, loanID int64, remarks string) (loan *model.Loan, err error) {
	ctx, done := startOperation(ctx, loanTracer, s.metrics, "LoanService.Approve", "loan_approve")
	defer func() { done(err) }()

	log := logger.Log.WithField("loan_id", loanID)
	log.Info("Approving loan")

	err = s.runner.run(ctx, "loan_approve", func(tx *sql.Tx) error {
		var txErr error
		loan, txErr = s.lockLoan(ctx, tx, loanID)
		if txErr != nil {
			return txErr
		}
		if !loan.Status.CanTransitionTo(model.LoanStatusApproved) {
			return loanConflict(loan, "approve")
		}

		accounts, txErr := s.accountRepo.GetAccountsByUserID(ctx, loan.UserID)
		if txErr != nil {
			return fmt.Errorf("could not list accounts of user %d: %w", loan.UserID, txErr)
		}
		settlement := selectSettlementAccount(accounts)
		if settlement == nil {
			return &model.NotFoundError{Resource: "settlement account for user", ID: strconv.FormatInt(loan.UserID, 10)}
		}

		description := fmt.Sprintf("Loan #%d disbursement", loan.ID)
		entry, txErr := s.transactions.DepositInTx(ctx, tx, settlement.ID, loan.PrincipalAmount, description)
		if txErr != nil {
			return txErr
		}

		now := s.now()
		loan.Status = model.LoanStatusApproved
		loan.ApprovedAt = &now
		loan.RemainingBalance = loan.PrincipalAmount
		loan.DisbursementAccountID = &settlement.ID
		loan.DisbursementTxID = &entry.ID
		loan.Remarks = remarks
		loan.UpdatedAt = now
		return s.loanRepo.UpdateLoan(ctx, tx, loan)
	})
	if err != nil {
		log.WithError(err).Warn("Loan approval failed")
		return nil, err
	}

	s.notifier.Notify(ctx, Event{
		Type:       EventLoanApproved,
		UserID:     loan.UserID,
		LoanID:     loan.ID,
		Amount:     loan.PrincipalAmount,
		Message:    fmt.Sprintf("Your loan #%d has been approved and disbursed", loan.ID),
		OccurredAt: loan.UpdatedAt,
	})
	log.WithField("account_id", *loan.DisbursementAccountID).Info("Loan approved and disbursed")
	return loan, nil
}

// Reject closes a PENDING application without moving money.
func (s *LoanService) Reject(ctx context.Context, loanID int64, remarks string) (loan *model.Loan, err error) {
	ctx, done := startOperation(ctx, loanTracer, s.metrics, "LoanService.Reject", "loan_reject")
	defer func() { done(err) }()

	err = s.runner.run(ctx, "loan_reject", func(tx *sql.Tx) error {
		var txErr error
		loan, txErr = s.lockLoan(ctx, tx, loanID)
		if txErr != nil {
			return txErr
		}
		if !loan.Status.CanTransitionTo(model.LoanStatusRejected) {
			return loanConflict(loan, "reject")
		}
		loan.Status = model.LoanStatusRejected
		loan.Remarks = remarks
		loan.UpdatedAt = s.now()
		return s.loanRepo.UpdateLoan(ctx, tx, loan)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, Event{
		Type:       EventLoanRejected,
		UserID:     loan.UserID,
		LoanID:     loan.ID,
		Amount:     loan.PrincipalAmount,
		Message:    fmt.Sprintf("Your loan application #%d has been rejected", loan.ID),
		OccurredAt: loan.UpdatedAt,
	})
	logger.Log.WithField("loan_id", loanID).Info("Loan rejected")
	return loan, nil
}

// PayEMI pays the next installment of a loan from accountID. The debit, the
// payment row and the loan update commit together. userID 0 skips the
// ownership check on the loan; the paying account must always belong to the borrower.
func (s *LoanService) PayEMI(ctx context.Context, userID, loanID int64, req model.EMIPaymentRequest) (payment *model.LoanPayment, err error) {
	ctx, done := startOperation(ctx, loanTracer, s.metrics, "LoanService.PayEMI", "loan_pay_emi")
	defer func() { done(err) }()

	log := logger.Log.WithFields(logrus.Fields{
		"loan_id":    loanID,
		"account_id": req.AccountID,
		"user_id":    userID,
	})
	log.Info("Processing EMI payment")

	var loan *model.Loan
	var penaltyCollected bool
	err = s.runner.run(ctx, "loan_pay_emi", func(tx *sql.Tx) error {
		var txErr error
		loan, txErr = s.lockLoan(ctx, tx, loanID)
		if txErr != nil {
			return txErr
		}
		if userID != 0 && loan.UserID != userID {
			return ErrPermissionDenied
		}
		if loan.Status != model.LoanStatusApproved ||
			!loan.RemainingBalance.IsPositive() ||
			loan.PaidInstallments >= loan.TenureMonths {
			return loanConflict(loan, "pay")
		}

		now := s.now()
		installment := loan.PaidInstallments + 1
		dueDate := loan.DueDate(installment)
		daysLate := daysBetween(dueDate.AddDate(0, 0, loan.GracePeriodDays), now)
		penalty := lateFee(loan.EMIAmount, loan.PenaltyRate, daysLate)

		interest, principal := SplitInstallment(loan.RemainingBalance, MonthlyRate(loan.InterestRate), loan.EMIAmount)
		if installment == loan.TenureMonths {
			principal = loan.RemainingBalance
		}
		amount := principal.Add(interest).Add(penalty)

		if req.Amount != nil {
			override := req.Amount.Round(2)
			minimum := interest.Add(penalty)
			if !override.GreaterThan(minimum) {
				return &model.ValidationError{
					Field:   "amount",
					Message: fmt.Sprintf("must exceed interest and penalty due of %s", minimum.StringFixed(2)),
				}
			}
			principal = override.Sub(minimum)
			if principal.GreaterThan(loan.RemainingBalance) {
				principal = loan.RemainingBalance
			}
			amount = principal.Add(minimum)
		}

		description := fmt.Sprintf("Loan #%d EMI %d/%d", loan.ID, installment, loan.TenureMonths)
		entry, txErr := s.transactions.WithdrawInTx(ctx, tx, req.AccountID, amount, description, AdjustOptions{OwnerID: loan.UserID})
		if txErr != nil {
			return txErr
		}

		loan.RemainingBalance = loan.RemainingBalance.Sub(principal)
		loan.PaidInstallments = installment
		loan.UpdatedAt = now
		if !loan.RemainingBalance.IsPositive() || loan.PaidInstallments >= loan.TenureMonths {
			loan.RemainingBalance = decimal.Max(loan.RemainingBalance, decimal.Zero)
			loan.Status = model.LoanStatusClosed
			loan.ClosedAt = &now
		}

		payment = &model.LoanPayment{
			LoanID:             loan.ID,
			InstallmentNumber:  installment,
			AccountID:          req.AccountID,
			TransactionID:      entry.ID,
			AmountPaid:         amount,
			PrincipalAmount:    principal,
			InterestAmount:     interest,
			PenaltyAmount:      penalty,
			OutstandingBalance: loan.RemainingBalance,
			DueDate:            dateOnly(dueDate),
			PaidDate:           now,
		}
		if txErr = s.paymentRepo.CreatePayment(ctx, tx, payment); txErr != nil {
			return fmt.Errorf("could not record loan payment: %w", txErr)
		}

		if s.penalties != nil {
			if penaltyCollected, txErr = s.penalties.collectInstallment(ctx, tx, loan, installment, penalty, now); txErr != nil {
				return txErr
			}
		}
		return s.loanRepo.UpdateLoan(ctx, tx, loan)
	})
	if err != nil {
		log.WithError(err).Warn("EMI payment failed")
		return nil, err
	}

	if penaltyCollected {
		s.penalties.cache.invalidate(ctx)
	}
	s.notifier.Notify(ctx, Event{
		Type:       EventEMIPaid,
		UserID:     loan.UserID,
		LoanID:     loan.ID,
		Amount:     payment.AmountPaid,
		Message:    fmt.Sprintf("Installment %d of loan #%d paid", payment.InstallmentNumber, loan.ID),
		OccurredAt: payment.PaidDate,
	})
	if loan.Status == model.LoanStatusClosed {
		s.notifier.Notify(ctx, Event{
			Type:       EventLoanClosed,
			UserID:     loan.UserID,
			LoanID:     loan.ID,
			Message:    fmt.Sprintf("Loan #%d is fully repaid", loan.ID),
			OccurredAt: payment.PaidDate,
		})
	}

	log.WithFields(logrus.Fields{
		"installment":       payment.InstallmentNumber,
		"amount_paid":       payment.AmountPaid.StringFixed(2),
		"penalty":           payment.PenaltyAmount.StringFixed(2),
		"remaining_balance": loan.RemainingBalance.StringFixed(2),
		"status":            loan.Status,
	}).Info("EMI payment completed successfully")
	return payment, nil
}

// GetLoan returns a loan. userID 0 skips the ownership check.
func (s *LoanService) GetLoan(ctx context.Context, userID, loanID int64) (*model.Loan, error) {
	ctx, span := loanTracer.Start(ctx, "LoanService.GetLoan")
	defer span.End()
	span.SetAttributes(attribute.Int64("loan.id", loanID))

	loan, err := s.loanRepo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &model.NotFoundError{Resource: "loan", ID: strconv.FormatInt(loanID, 10)}
		}
		return nil, err
	}
	if userID != 0 && loan.UserID != userID {
		return nil, ErrPermissionDenied
	}
	return loan, nil
}

func (s *LoanService) ListLoansForUser(ctx context.Context, userID int64) ([]*model.Loan, error) {
	return s.loanRepo.GetLoansByUserID(ctx, userID)
}

// GetSchedule returns the full amortization table of a loan.
func (s *LoanService) GetSchedule(ctx context.Context, userID, loanID int64) ([]model.ScheduleEntry, error) {
	loan, err := s.GetLoan(ctx, userID, loanID)
	if err != nil {
		return nil, err
	}
	return GenerateSchedule(loan)
}

// ListPayments returns the payment history of a loan by installment.
func (s *LoanService) ListPayments(ctx context.Context, userID, loanID int64) ([]*model.LoanPayment, error) {
	if _, err := s.GetLoan(ctx, userID, loanID); err != nil {
		return nil, err
	}
	return s.paymentRepo.GetPaymentsByLoanID(ctx, loanID)
}

func (s *LoanService) lockLoan(ctx context.Context, tx *sql.Tx, loanID int64) (*model.Loan, error) {
	loan, err := s.loanRepo.GetLoanForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &model.NotFoundError{Resource: "loan", ID: strconv.FormatInt(loanID, 10)}
		}
		return nil, fmt.Errorf("could not lock loan %d: %w", loanID, err)
	}
	return loan, nil
}

func loanConflict(loan *model.Loan, action string) error {
	return &model.StateConflictError{
		Resource: "loan",
		ID:       strconv.FormatInt(loan.ID, 10),
		State:    string(loan.Status),
		Action:   action,
	}
}

// selectSettlementAccount picks where a loan is disbursed: the user's
// SAVINGS account, else CHECKING, else any other usable account, oldest first.
func selectSettlementAccount(accounts []*model.Account) *model.Account {
	var usable []*model.Account
	for _, acc := range accounts {
		if acc.Status == model.AccountStatusActive && !acc.Frozen {
			usable = append(usable, acc)
		}
	}
	if len(usable) == 0 {
		return nil
	}
	sort.SliceStable(usable, func(i, j int) bool {
		ri, rj := usable[i].Type.SettlementRank(), usable[j].Type.SettlementRank()
		if ri != rj {
			return ri < rj
		}
		return usable[i].ID < usable[j].ID
	})
	return usable[0]
}
