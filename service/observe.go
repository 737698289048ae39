package service

import (
	"context"
	"go-bank-ledger/metrics"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ledgerTracer  = otel.Tracer("service/ledger")
	loanTracer    = otel.Tracer("service/loan")
	penaltyTracer = otel.Tracer("service/penalty")
)

// startOperation opens a span and returns the function that closes it and
// records the operation's duration and outcome.
func startOperation(ctx context.Context, tracer trace.Tracer, m *metrics.Metrics, spanName, op string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, spanName)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		m.ObserveOperation(op, start, err)
	}
}
