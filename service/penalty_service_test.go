package service

import (
	"context"
	"encoding/json"
	"errors"
	"go-bank-ledger/model"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCacheClient is a mock for ICacheClient.
type MockCacheClient struct{ mock.Mock }

func (m *MockCacheClient) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*redis.StringCmd)
}

func (m *MockCacheClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*redis.StatusCmd)
}

func (m *MockCacheClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	return args.Get(0).(*redis.IntCmd)
}

type penaltyFixture struct {
	store    *fakeStore
	dbMock   sqlmock.Sqlmock
	notifier *recordingNotifier
	service  *PenaltyService
}

func newPenaltyFixture(t *testing.T, cache ICacheClient) *penaltyFixture {
	t.Helper()
	db, dbMock := newTestDB(t)
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := NewPenaltyService(db, store, store, store, cache, time.Minute, notifier, 1, testRetryPolicy, newTestMetrics())
	svc.now = fixedClock(time.Date(2024, 1, 20, 2, 0, 0, 0, time.UTC))
	return &penaltyFixture{store: store, dbMock: dbMock, notifier: notifier, service: svc}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestPenaltyService_RunForDate_AccruesAfterGrace(t *testing.T) {
	ctx := context.Background()
	f := newPenaltyFixture(t, nil)
	f.store.addLoan(approvedLoan(1, 7, time.Date(2023, 12, 1, 11, 0, 0, 0, time.UTC)))
	expectCommits(f.dbMock, 1)

	result, err := f.service.RunForDate(ctx, time.Date(2024, 1, 20, 2, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 20), result.AsOf)
	assert.Equal(t, 1, result.LoansScanned)
	assert.Equal(t, 1, result.LoansProcessed)
	assert.Equal(t, 1, result.PenaltiesUpserted)
	assert.Equal(t, 1, result.TotalsChanged)
	assert.Empty(t, result.Failures)

	rows := f.store.penaltyRows(1)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].InstallmentNumber)
	assert.Equal(t, day(2024, 1, 1), rows[0].DueDate)
	assert.Equal(t, day(2024, 1, 6), rows[0].PenaltyStartDate)
	assert.Equal(t, 14, rows[0].DaysOverdue)
	assert.True(t, rows[0].PenaltyAmount.Equal(dec("82.93")))
	assert.Equal(t, model.PenaltyStatusPending, rows[0].Status)
	assert.True(t, f.store.loan(1).TotalPenalty.Equal(dec("82.93")))
	assert.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestPenaltyService_RunForDate_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newPenaltyFixture(t, nil)
	f.store.addLoan(approvedLoan(1, 7, time.Date(2023, 12, 1, 11, 0, 0, 0, time.UTC)))
	expectCommits(f.dbMock, 3)

	_, err := f.service.RunForDate(ctx, day(2024, 1, 20))
	require.NoError(t, err)
	again, err := f.service.RunForDate(ctx, day(2024, 1, 20))
	require.NoError(t, err)

	assert.Equal(t, 0, again.TotalsChanged)
	rows := f.store.penaltyRows(1)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].PenaltyAmount.Equal(dec("82.93")))

	nextDay, err := f.service.RunForDate(ctx, day(2024, 1, 21))
	require.NoError(t, err)
	assert.Equal(t, 1, nextDay.TotalsChanged)
	rows = f.store.penaltyRows(1)
	require.Len(t, rows, 1)
	assert.Equal(t, 15, rows[0].DaysOverdue)
	assert.True(t, rows[0].PenaltyAmount.Equal(dec("88.85")))
	assert.True(t, f.store.loan(1).TotalPenalty.Equal(dec("88.85")))
}

func TestPenaltyService_RunForDate_SkipsGraceAndPaidInstallments(t *testing.T) {
	ctx := context.Background()
	f := newPenaltyFixture(t, nil)
	f.store.addLoan(approvedLoan(1, 7, time.Date(2023, 12, 1, 11, 0, 0, 0, time.UTC)))
	expectCommits(f.dbMock, 2)

	withinGrace, err := f.service.RunForDate(ctx, day(2024, 1, 6))
	require.NoError(t, err)
	assert.Equal(t, 0, withinGrace.PenaltiesUpserted)
	assert.Empty(t, f.store.penaltyRows(1))

	require.NoError(t, f.store.CreatePayment(ctx, nil, &model.LoanPayment{LoanID: 1, InstallmentNumber: 1}))
	afterPayment, err := f.service.RunForDate(ctx, day(2024, 1, 25))
	require.NoError(t, err)
	assert.Equal(t, 0, afterPayment.PenaltiesUpserted)
	assert.Empty(t, f.store.penaltyRows(1))
}

func TestPenaltyService_RunForDate_IgnoresInactiveLoans(t *testing.T) {
	ctx := context.Background()
	f := newPenaltyFixture(t, nil)
	closed := approvedLoan(1, 7, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	closed.Status = model.LoanStatusClosed
	f.store.addLoan(closed)

	result, err := f.service.RunForDate(ctx, day(2024, 1, 20))

	require.NoError(t, err)
	assert.Equal(t, 0, result.LoansScanned)
	assert.Empty(t, f.store.penaltyRows(1))
}

func TestPenaltyService_RunForDate_IsolatesFailingLoan(t *testing.T) {
	ctx := context.Background()
	f := newPenaltyFixture(t, nil)
	approvedAt := time.Date(2023, 12, 1, 11, 0, 0, 0, time.UTC)
	f.store.addLoan(approvedLoan(1, 7, approvedAt))
	f.store.addLoan(approvedLoan(2, 8, approvedAt))
	f.store.loanLockErr[1] = errors.New("disk on fire")
	f.dbMock.ExpectBegin()
	f.dbMock.ExpectRollback()
	expectCommits(f.dbMock, 1)

	result, err := f.service.RunForDate(ctx, day(2024, 1, 20))

	require.NoError(t, err)
	assert.Equal(t, 2, result.LoansScanned)
	assert.Equal(t, 1, result.LoansProcessed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, int64(1), result.Failures[0].LoanID)
	assert.Contains(t, result.Failures[0].Error, "disk on fire")
	assert.Len(t, f.store.penaltyRows(2), 1)
	assert.Equal(t, float64(1), f.service.metrics.PenaltyLoanCount("failed"))
	assert.Equal(t, float64(1), f.service.metrics.PenaltyLoanCount("processed"))
}

func TestPenaltyService_RunForDate_CancelledContext(t *testing.T) {
	f := newPenaltyFixture(t, nil)
	f.store.addLoan(approvedLoan(1, 7, time.Date(2023, 12, 1, 11, 0, 0, 0, time.UTC)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.service.RunForDate(ctx, day(2024, 1, 20))

	var concurrencyErr *model.ConcurrencyError
	require.True(t, errors.As(err, &concurrencyErr))
	require.NotNil(t, result)
	assert.Equal(t, 0, result.LoansProcessed)
}

func TestPenaltyService_WaiveAndCollect(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*penaltyFixture, int64) {
		f := newPenaltyFixture(t, nil)
		f.store.addLoan(approvedLoan(1, 7, time.Date(2023, 12, 1, 11, 0, 0, 0, time.UTC)))
		expectCommits(f.dbMock, 1)
		_, err := f.service.RunForDate(ctx, day(2024, 1, 20))
		require.NoError(t, err)
		rows := f.store.penaltyRows(1)
		require.Len(t, rows, 1)
		return f, rows[0].ID
	}

	t.Run("waive clears total and survives reruns", func(t *testing.T) {
		f, penaltyID := setup(t)
		expectCommits(f.dbMock, 2)

		penalty, err := f.service.Waive(ctx, penaltyID, "first offence")

		require.NoError(t, err)
		assert.Equal(t, model.PenaltyStatusWaived, penalty.Status)
		assert.Equal(t, "first offence", penalty.Remarks)
		assert.NotNil(t, penalty.ResolvedDate)
		assert.True(t, f.store.loan(1).TotalPenalty.IsZero())
		assert.Equal(t, []EventType{EventPenaltyWaived}, f.notifier.types())

		rerun, err := f.service.RunForDate(ctx, day(2024, 1, 20))
		require.NoError(t, err)
		assert.Equal(t, 0, rerun.TotalsChanged)
		assert.Equal(t, model.PenaltyStatusWaived, f.store.penaltyRows(1)[0].Status)
		assert.True(t, f.store.loan(1).TotalPenalty.IsZero())
	})

	t.Run("collect", func(t *testing.T) {
		f, penaltyID := setup(t)
		expectCommits(f.dbMock, 1)

		penalty, err := f.service.Collect(ctx, penaltyID)

		require.NoError(t, err)
		assert.Equal(t, model.PenaltyStatusCollected, penalty.Status)
		assert.True(t, f.store.loan(1).TotalPenalty.IsZero())
		assert.Equal(t, []EventType{EventPenaltyCollected}, f.notifier.types())
	})

	t.Run("second resolution conflicts", func(t *testing.T) {
		f, penaltyID := setup(t)
		expectCommits(f.dbMock, 1)
		f.dbMock.ExpectBegin()
		f.dbMock.ExpectRollback()

		_, err := f.service.Waive(ctx, penaltyID, "")
		require.NoError(t, err)
		_, err = f.service.Collect(ctx, penaltyID)

		var conflict *model.StateConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, model.PenaltyStatusWaived, f.store.penaltyRows(1)[0].Status)
	})

	t.Run("unknown penalty", func(t *testing.T) {
		f := newPenaltyFixture(t, nil)

		_, err := f.service.Waive(ctx, 404, "")

		var notFound *model.NotFoundError
		assert.True(t, errors.As(err, &notFound))
	})
}

func TestPenaltyService_GetSummary_UsesCache(t *testing.T) {
	ctx := context.Background()
	cache := new(MockCacheClient)
	f := newPenaltyFixture(t, cache)
	f.store.addLoan(approvedLoan(1, 7, time.Date(2023, 12, 1, 11, 0, 0, 0, time.UTC)))

	cache.On("Del", mock.Anything, []string{penaltySummaryKey}).Return(redis.NewIntResult(1, nil))
	expectCommits(f.dbMock, 1)
	_, err := f.service.RunForDate(ctx, day(2024, 1, 20))
	require.NoError(t, err)

	cache.On("Get", mock.Anything, penaltySummaryKey).Return(redis.NewStringResult("", redis.Nil)).Once()
	cache.On("Set", mock.Anything, penaltySummaryKey, mock.Anything, time.Minute).Return(redis.NewStatusResult("OK", nil)).Once()

	summary, err := f.service.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PendingCount)
	assert.True(t, summary.PendingAmount.Equal(dec("82.93")))
	assert.Equal(t, 1, summary.LoansWithPending)

	cached, err := json.Marshal(&model.PenaltySummary{PendingCount: 42})
	require.NoError(t, err)
	cache.On("Get", mock.Anything, penaltySummaryKey).Return(redis.NewStringResult(string(cached), nil)).Once()

	fromCache, err := f.service.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, fromCache.PendingCount)

	cache.AssertExpectations(t)
	cache.AssertNumberOfCalls(t, "Set", 1)
}

func TestPenaltyService_GetLoanPenalties(t *testing.T) {
	ctx := context.Background()
	f := newPenaltyFixture(t, nil)

	_, err := f.service.GetLoanPenalties(ctx, 9)

	var notFound *model.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}
