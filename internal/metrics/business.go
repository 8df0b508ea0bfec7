package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// BusinessMetrics records token issuance operations.
type BusinessMetrics interface {
	// RecordOperation counts one operation (e.g. "token_issue", "token_refresh")
	// for a caller service with its outcome.
	RecordOperation(ctx context.Context, operation, service, status string)

	// RecordDuration observes how long the operation took.
	RecordDuration(ctx context.Context, operation string, d time.Duration, status string)
}

type businessMetrics struct {
	operations metric.Int64Counter
	durations  metric.Float64Histogram
}

// NewBusinessMetrics creates "<namespace>_operations_total" and
// "<namespace>_operation_duration_seconds".
func NewBusinessMetrics(mp metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := mp.Meter(namespace)

	operations, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of token operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durations, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of token operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &businessMetrics{operations: operations, durations: durations}, nil
}

func (b *businessMetrics) RecordOperation(ctx context.Context, operation, service, status string) {
	b.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("service", service),
		attribute.String("status", status),
	))
}

func (b *businessMetrics) RecordDuration(ctx context.Context, operation string, d time.Duration, status string) {
	b.durations.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

// NoOp is used when metrics are disabled.
type NoOp struct{}

func (NoOp) RecordOperation(context.Context, string, string, string)          {}
func (NoOp) RecordDuration(context.Context, string, time.Duration, string) {}
