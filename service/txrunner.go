package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-bank-ledger/logger"
	"go-bank-ledger/metrics"
	"go-bank-ledger/model"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// RetryPolicy bounds how often a transaction that failed with a
// ConcurrencyError is attempted again.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy is used when a service is built without an explicit policy.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, InitialBackoff: 50 * time.Millisecond, MaxBackoff: time.Second}

// PostgreSQL error codes that mean "try again".
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

// txRunner executes a unit of work inside one READ COMMITTED transaction,
// retrying it from the start when the store reports contention.
type txRunner struct {
	db      *sql.DB
	policy  RetryPolicy
	metrics *metrics.Metrics
}

func newTxRunner(db *sql.DB, policy RetryPolicy, m *metrics.Metrics) *txRunner {
	return &txRunner{db: db, policy: policy, metrics: m}
}

func (r *txRunner) run(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialBackoff
	b.MaxInterval = r.policy.MaxBackoff
	b.MaxElapsedTime = 0

	maxRetries := r.policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)

	attempt := func() error {
		err := r.once(ctx, op, fn)
		if err == nil {
			return nil
		}
		var concurrencyErr *model.ConcurrencyError
		if errors.As(err, &concurrencyErr) {
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		r.metrics.IncrRetry(op)
		logger.Log.WithFields(logrus.Fields{
			"operation": op,
			"wait":      wait.String(),
		}).WithError(err).Warn("Retrying transaction after concurrency conflict")
	}

	err := backoff.RetryNotify(attempt, policy, notify)
	if err != nil {
		return classifyStoreError(op, err)
	}
	return nil
}

func (r *txRunner) once(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classifyStoreError(op, fmt.Errorf("could not begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return classifyStoreError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return classifyStoreError(op, fmt.Errorf("could not commit transaction: %w", err))
	}
	return nil
}

// classifyStoreError turns lock contention, deadlocks, serialization
// failures and timeouts into a ConcurrencyError. Other errors pass through.
func classifyStoreError(op string, err error) error {
	var concurrencyErr *model.ConcurrencyError
	if errors.As(err, &concurrencyErr) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
			return &model.ConcurrencyError{Op: op, Err: err}
		}
	}
	if isContextError(err) {
		return &model.ConcurrencyError{Op: op, Err: err}
	}
	return err
}

func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
