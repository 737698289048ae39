package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveOperation(t *testing.T) {
	m := NewMetrics()

	m.ObserveOperation("transfer", time.Now(), nil)
	m.ObserveOperation("transfer", time.Now(), nil)
	m.ObserveOperation("transfer", time.Now(), errors.New("boom"))

	assert.Equal(t, float64(2), m.OperationCount("transfer", "success"))
	assert.Equal(t, float64(1), m.OperationCount("transfer", "error"))
	assert.Equal(t, float64(0), m.OperationCount("deposit", "success"))
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.IncrRetry("withdraw")
	m.IncrPenaltyLoan("failed")
	m.IncrPenaltyLoan("processed")
	m.IncrPenaltyLoan("processed")

	assert.Equal(t, float64(1), m.RetryCount("withdraw"))
	assert.Equal(t, float64(2), m.PenaltyLoanCount("processed"))
	assert.Equal(t, float64(1), m.PenaltyLoanCount("failed"))
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.IncrRetry("transfer")

	assert.Equal(t, float64(1), a.RetryCount("transfer"))
	assert.Equal(t, float64(0), b.RetryCount("transfer"))
	assert.NotSame(t, a.Registry, b.Registry)
}
