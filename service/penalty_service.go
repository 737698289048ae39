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
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// LoanFailure records a loan the penalty run could not process.
type LoanFailure struct {
	LoanID int64  `json:"loan_id"`
	Error  string `json:"error"`
}

// PenaltyRunResult summarises one accrual pass.
type PenaltyRunResult struct {
	AsOf              time.Time     `json:"as_of"`
	LoansScanned      int           `json:"loans_scanned"`
	LoansProcessed    int           `json:"loans_processed"`
	PenaltiesUpserted int           `json:"penalties_upserted"`
	TotalsChanged     int           `json:"totals_changed"`
	Failures          []LoanFailure `json:"failures,omitempty"`
}

// PenaltyService accrues late fees on overdue installments and lets staff
// waive or collect them. Runs are idempotent: they converge on the same rows
// however often they execute for a given day.
type PenaltyService struct {
	loanRepo    repository.ILoanRepository
	paymentRepo repository.ILoanPaymentRepository
	penaltyRepo repository.ILoanPenaltyRepository
	runner      *txRunner
	cache       *summaryCache
	notifier    Notifier
	concurrency int
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewPenaltyService(db *sql.DB, loanRepo repository.ILoanRepository, paymentRepo repository.ILoanPaymentRepository, penaltyRepo repository.ILoanPenaltyRepository, cache ICacheClient, summaryTTL time.Duration, notifier Notifier, concurrency int, retry RetryPolicy, m *metrics.Metrics) *PenaltyService {
	if concurrency <= 0 {
		concurrency = 1
	}
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &PenaltyService{
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		penaltyRepo: penaltyRepo,
		runner:      newTxRunner(db, retry, m),
		cache:       &summaryCache{client: cache, ttl: summaryTTL, metrics: m},
		notifier:    notifier,
		concurrency: concurrency,
		metrics:     m,
		now:         time.Now,
	}
}

// RunOnce accrues penalties as of today.
func (s *PenaltyService) RunOnce(ctx context.Context) (*PenaltyRunResult, error) {
	return s.RunForDate(ctx, s.now())
}

// RunForDate accrues penalties for every APPROVED loan as of asOf. Each loan
// is processed in its own transaction; a failing loan is reported in the
// result and does not stop the others.
func (s *PenaltyService) RunForDate(ctx context.Context, asOf time.Time) (result *PenaltyRunResult, err error) {
	ctx, done := startOperation(ctx, penaltyTracer, s.metrics, "PenaltyService.RunForDate", "penalty_run")
	defer func() { done(err) }()

	today := dateOnly(asOf)
	log := logger.Log.WithField("as_of", today.Format("2006-01-02"))
	log.Info("Starting penalty accrual run")

	ids, err := s.loanRepo.GetLoanIDsByStatus(ctx, model.LoanStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("could not list active loans: %w", err)
	}

	result = &PenaltyRunResult{AsOf: today, LoansScanned: len(ids)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		loanID := id
		g.Go(func() error {
			upserted, changed, loanErr := s.accrueLoan(ctx, loanID, today)

			mu.Lock()
			defer mu.Unlock()
			if loanErr != nil {
				s.metrics.IncrPenaltyLoan("failed")
				log.WithError(loanErr).WithField("loan_id", loanID).Error("Penalty accrual failed for loan")
				result.Failures = append(result.Failures, LoanFailure{LoanID: loanID, Error: loanErr.Error()})
				return nil
			}
			s.metrics.IncrPenaltyLoan("processed")
			result.LoansProcessed++
			result.PenaltiesUpserted += upserted
			if changed {
				result.TotalsChanged++
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].LoanID < result.Failures[j].LoanID })
	s.cache.invalidate(ctx)

	log.WithFields(logrus.Fields{
		"loans_scanned":      result.LoansScanned,
		"loans_processed":    result.LoansProcessed,
		"penalties_upserted": result.PenaltiesUpserted,
		"totals_changed":     result.TotalsChanged,
		"failures":           len(result.Failures),
	}).Info("Penalty accrual run finished")

	if ctx.Err() != nil {
		return result, &model.ConcurrencyError{Op: "penalty_run", Err: ctx.Err()}
	}
	return result, nil
}

// accrueLoan upserts the penalty of every overdue unpaid installment of one
// loan and refreshes its total_penalty. It returns how many penalty rows were
// written and whether the total changed.
func (s *PenaltyService) accrueLoan(ctx context.Context, loanID int64, today time.Time) (int, bool, error) {
	var upserted int
	var changed bool

	err := s.runner.run(ctx, "accrue_penalties", func(tx *sql.Tx) error {
		upserted, changed = 0, false

		loan, err := s.loanRepo.GetLoanForUpdate(ctx, tx, loanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &model.NotFoundError{Resource: "loan", ID: strconv.FormatInt(loanID, 10)}
			}
			return err
		}
		if loan.Status != model.LoanStatusApproved {
			return nil
		}

		paid, err := s.paymentRepo.GetPaidInstallments(ctx, tx, loanID)
		if err != nil {
			return err
		}

		now := s.now()
		for i := 1; i <= loan.TenureMonths; i++ {
			due := dateOnly(loan.DueDate(i))
			if due.After(today) {
				break
			}
			if paid[i] {
				continue
			}
			start := due.AddDate(0, 0, loan.GracePeriodDays)
			daysOverdue := daysBetween(start, today)
			if daysOverdue <= 0 {
				continue
			}
			penalty := &model.LoanPenalty{
				LoanID:            loanID,
				InstallmentNumber: i,
				DueDate:           due,
				DaysOverdue:       daysOverdue,
				EMIAmount:         loan.EMIAmount,
				PenaltyAmount:     dailyPenalty(loan.EMIAmount, loan.PenaltyRate, daysOverdue),
				PenaltyRateUsed:   loan.PenaltyRate,
				Status:            model.PenaltyStatusPending,
				PenaltyStartDate:  start,
				UpdatedAt:         now,
			}
			if err := s.penaltyRepo.UpsertPenalty(ctx, tx, penalty); err != nil {
				return fmt.Errorf("could not upsert penalty for installment %d: %w", i, err)
			}
			upserted++
		}

		changed, err = s.refreshTotal(ctx, tx, loan, now)
		return err
	})
	return upserted, changed, err
}

// refreshTotal recomputes loan.total_penalty from its PENDING rows and
// persists it only when it differs.
func (s *PenaltyService) refreshTotal(ctx context.Context, tx *sql.Tx, loan *model.Loan, now time.Time) (bool, error) {
	total, err := s.penaltyRepo.SumPendingPenalties(ctx, tx, loan.ID)
	if err != nil {
		return false, fmt.Errorf("could not sum pending penalties: %w", err)
	}
	if total.Equal(loan.TotalPenalty) {
		return false, nil
	}
	changed, err := s.loanRepo.UpdateTotalPenalty(ctx, tx, loan.ID, total, now)
	if err != nil {
		return false, fmt.Errorf("could not update total penalty: %w", err)
	}
	loan.TotalPenalty = total
	return changed, nil
}

// collectInstallment marks the PENDING penalty of one installment COLLECTED
// at the late fee charged with the EMI and refreshes loan.TotalPenalty in
// memory. The caller persists the loan. The loan row must already be locked by tx.
func (s *PenaltyService) collectInstallment(ctx context.Context, tx *sql.Tx, loan *model.Loan, installment int, charged decimal.Decimal, now time.Time) (bool, error) {
	found, err := s.penaltyRepo.ResolvePendingForInstallment(ctx, tx, loan.ID, installment, model.PenaltyStatusCollected, charged, now)
	if err != nil {
		return false, fmt.Errorf("could not collect installment penalty: %w", err)
	}
	if !found {
		return false, nil
	}
	total, err := s.penaltyRepo.SumPendingPenalties(ctx, tx, loan.ID)
	if err != nil {
		return false, fmt.Errorf("could not sum pending penalties: %w", err)
	}
	loan.TotalPenalty = total
	return true, nil
}

// Waive forgives a PENDING penalty.
func (s *PenaltyService) Waive(ctx context.Context, penaltyID int64, remarks string) (*model.LoanPenalty, error) {
	return s.resolve(ctx, penaltyID, model.PenaltyStatusWaived, remarks)
}

// Collect marks a PENDING penalty as paid.
func (s *PenaltyService) Collect(ctx context.Context, penaltyID int64) (*model.LoanPenalty, error) {
	return s.resolve(ctx, penaltyID, model.PenaltyStatusCollected, "")
}

func (s *PenaltyService) resolve(ctx context.Context, penaltyID int64, status model.PenaltyStatus, remarks string) (penalty *model.LoanPenalty, err error) {
	op := "penalty_" + string(status)
	ctx, done := startOperation(ctx, penaltyTracer, s.metrics, "PenaltyService.Resolve", op)
	defer func() { done(err) }()

	log := logger.Log.WithFields(logrus.Fields{
		"penalty_id": penaltyID,
		"status":     status,
	})

	current, err := s.penaltyRepo.GetPenaltyByID(ctx, penaltyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &model.NotFoundError{Resource: "penalty", ID: strconv.FormatInt(penaltyID, 10)}
		}
		return nil, err
	}

	var loan *model.Loan
	err = s.runner.run(ctx, op, func(tx *sql.Tx) error {
		var txErr error
		loan, txErr = s.loanRepo.GetLoanForUpdate(ctx, tx, current.LoanID)
		if txErr != nil {
			if errors.Is(txErr, sql.ErrNoRows) {
				return &model.NotFoundError{Resource: "loan", ID: strconv.FormatInt(current.LoanID, 10)}
			}
			return txErr
		}

		penalty, txErr = s.penaltyRepo.GetPenaltyForUpdate(ctx, tx, penaltyID)
		if txErr != nil {
			if errors.Is(txErr, sql.ErrNoRows) {
				return &model.NotFoundError{Resource: "penalty", ID: strconv.FormatInt(penaltyID, 10)}
			}
			return txErr
		}
		if penalty.Status.Terminal() {
			return &model.StateConflictError{
				Resource: "penalty",
				ID:       strconv.FormatInt(penaltyID, 10),
				State:    string(penalty.Status),
				Action:   "resolve",
			}
		}

		now := s.now()
		if txErr = s.penaltyRepo.ResolvePenalty(ctx, tx, penaltyID, status, remarks, now); txErr != nil {
			return txErr
		}
		penalty.Status = status
		penalty.Remarks = remarks
		penalty.ResolvedDate = &now
		penalty.UpdatedAt = now

		_, txErr = s.refreshTotal(ctx, tx, loan, now)
		return txErr
	})
	if err != nil {
		log.WithError(err).Warn("Penalty resolution failed")
		return nil, err
	}

	s.cache.invalidate(ctx)
	event := EventPenaltyWaived
	if status == model.PenaltyStatusCollected {
		event = EventPenaltyCollected
	}
	s.notifier.Notify(ctx, Event{
		Type:       event,
		UserID:     loan.UserID,
		LoanID:     loan.ID,
		Amount:     penalty.PenaltyAmount,
		Message:    fmt.Sprintf("Late fee for installment %d %s", penalty.InstallmentNumber, status),
		OccurredAt: penalty.UpdatedAt,
	})

	log.Info("Penalty resolved")
	return penalty, nil
}

// GetSummary returns penalty totals by status, served from cache when fresh.
func (s *PenaltyService) GetSummary(ctx context.Context) (*model.PenaltySummary, error) {
	ctx, span := penaltyTracer.Start(ctx, "PenaltyService.GetSummary")
	defer span.End()

	if summary, ok := s.cache.get(ctx); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return summary, nil
	}
	summary, err := s.penaltyRepo.GetSummary(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, summary)
	return summary, nil
}

// GetLoanPenalties lists every penalty row of a loan by installment.
func (s *PenaltyService) GetLoanPenalties(ctx context.Context, loanID int64) ([]*model.LoanPenalty, error) {
	if _, err := s.loanRepo.GetLoanByID(ctx, loanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &model.NotFoundError{Resource: "loan", ID: strconv.FormatInt(loanID, 10)}
		}
		return nil, err
	}
	return s.penaltyRepo.GetPenaltiesByLoanID(ctx, loanID)
}
