package service

import (
	"context"
	"encoding/json"
	"go-bank-ledger/logger"
	"go-bank-ledger/metrics"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

type EventType string

const (
	EventLoanApproved     EventType = "LOAN_APPROVED"
	EventLoanRejected     EventType = "LOAN_REJECTED"
	EventEMIPaid          EventType = "EMI_PAID"
	EventLoanClosed       EventType = "LOAN_CLOSED"
	EventPenaltyWaived    EventType = "PENALTY_WAIVED"
	EventPenaltyCollected EventType = "PENALTY_COLLECTED"
)

// Event is a customer-facing notification about a loan.
type Event struct {
	Type       EventType       `json:"type"`
	UserID     int64           `json:"user_id"`
	LoanID     int64           `json:"loan_id"`
	Amount     decimal.Decimal `json:"amount"`
	Message    string          `json:"message"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Notifier is a best-effort sink. Implementations must not return errors to
// the caller: a failed notification never affects a committed operation.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NoopNotifier drops every event.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Event) {}

// Publisher is the subset of *redis.Client used to publish notifications.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes events as JSON on a Redis channel behind a circuit breaker.
type RedisNotifier struct {
	publisher Publisher
	channel   string
	breaker   *gobreaker.CircuitBreaker
	metrics   *metrics.Metrics
}

func NewRedisNotifier(publisher Publisher, channel string, m *metrics.Metrics) *RedisNotifier {
	return &RedisNotifier{
		publisher: publisher,
		channel:   channel,
		metrics:   m,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "notifications",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.6
			},
		}),
	}
}

func (n *RedisNotifier) Notify(ctx context.Context, event Event) {
	log := logger.Log.WithFields(logrus.Fields{
		"event":   event.Type,
		"loan_id": event.LoanID,
		"user_id": event.UserID,
	})

	payload, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Warn("Failed to encode notification")
		return
	}

	_, err = n.breaker.Execute(func() (interface{}, error) {
		return nil, n.publisher.Publish(ctx, n.channel, payload).Err()
	})
	if err != nil {
		n.metrics.IncrNotifyError()
		log.WithError(err).Warn("Failed to publish notification")
		return
	}
	log.Debug("Notification published")
}
