// Package metrics exposes Prometheus counters and histograms for ledger,
// loan and penalty operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics owns a private registry so tests can build as many as they need.
type Metrics struct {
	Registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	retries           *prometheus.CounterVec
	penaltyLoans      *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	notifyErrors      prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_operations_total",
				Help: "Total ledger, loan and penalty operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bank_operation_duration_seconds",
				Help:    "Duration of ledger, loan and penalty operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_concurrency_retries_total",
				Help: "Transactions retried after lock contention or serialization failure.",
			},
			[]string{"operation"},
		),
		penaltyLoans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_penalty_run_loans_total",
				Help: "Loans processed by penalty runs by outcome.",
			},
			[]string{"outcome"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		notifyErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bank_notification_errors_total",
				Help: "Notifications that could not be published.",
			},
		),
	}
}

// ObserveOperation records the duration and outcome of one operation.
// outcome is "success" when err is nil and "error" otherwise.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrRetry(operation string) {
	m.retries.WithLabelValues(operation).Inc()
}

// IncrPenaltyLoan counts one loan handled by a penalty run.
func (m *Metrics) IncrPenaltyLoan(outcome string) {
	m.penaltyLoans.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

func (m *Metrics) IncrNotifyError() {
	m.notifyErrors.Inc()
}

// OperationCount returns the current value of the operations counter.
func (m *Metrics) OperationCount(operation, outcome string) float64 {
	return counterValue(m.operations.WithLabelValues(operation, outcome))
}

// RetryCount returns the current value of the retry counter.
func (m *Metrics) RetryCount(operation string) float64 {
	return counterValue(m.retries.WithLabelValues(operation))
}

// PenaltyLoanCount returns how many loans penalty runs handled with outcome.
func (m *Metrics) PenaltyLoanCount(outcome string) float64 {
	return counterValue(m.penaltyLoans.WithLabelValues(outcome))
}

func (m *Metrics) NotifyErrorCount() float64 {
	return counterValue(m.notifyErrors)
}

func (m *Metrics) CacheHitCount(cache string) float64 {
	return counterValue(m.cacheHits.WithLabelValues(cache))
}

func counterValue(c prometheus.Counter) float64 {
	out := &dto.Metric{}
	if err := c.Write(out); err != nil {
		return 0
	}
	if out.Counter != nil && out.Counter.Value != nil {
		return *out.Counter.Value
	}
	return 0
}
