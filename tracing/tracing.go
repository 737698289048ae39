// Package tracing installs the global OpenTelemetry tracer provider used by
// the service spans.
package tracing

import (
	"context"
	"fmt"
	"go-bank-ledger/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Init exports spans over OTLP/gRPC to endpoint. With an empty endpoint the
// global no-op provider stays in place. The returned function flushes and
// stops the exporter.
func Init(ctx context.Context, endpoint, serviceName string) (func(context.Context) error, error) {
	if endpoint == "" {
		logger.Log.Info("Tracing endpoint not configured, spans are not exported")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp := newProvider(exporter, serviceName)
	otel.SetTracerProvider(tp)

	logger.Log.WithField("endpoint", endpoint).Info("Tracing initialized")
	return tp.Shutdown, nil
}

func newProvider(exporter sdktrace.SpanExporter, serviceName string) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
}
