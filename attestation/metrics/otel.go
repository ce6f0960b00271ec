package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// OTELMetrics implements MetricsRecorder using OpenTelemetry
type OTELMetrics struct {
	attemptsStarted  metric.Int64Counter
	attemptsFinished metric.Int64Counter
	attemptDuration  metric.Float64Histogram

	launchDuration metric.Float64Histogram
	submitDuration metric.Float64Histogram

	verificationFailures metric.Int64Counter

	logger *zap.Logger
}

// NewOTELMetrics creates a new OpenTelemetry metrics recorder
func NewOTELMetrics(meter metric.Meter, logger *zap.Logger) (*OTELMetrics, error) {
	m := &OTELMetrics{logger: logger}

	var err error

	m.attemptsStarted, err = meter.Int64Counter("zkattest.attempts.started",
		metric.WithDescription("Number of attestation attempts started"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	m.attemptsFinished, err = meter.Int64Counter("zkattest.attempts.finished",
		metric.WithDescription("Number of attestation attempts by terminal state"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	m.attemptDuration, err = meter.Float64Histogram("zkattest.attempts.duration",
		metric.WithDescription("Time from launch to terminal state"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.launchDuration, err = meter.Float64Histogram("zkattest.launch.duration",
		metric.WithDescription("Time spent waiting for the attestor"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.submitDuration, err = meter.Float64Histogram("zkattest.submit.duration",
		metric.WithDescription("Time spent waiting for the chain submission"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.verificationFailures, err = meter.Int64Counter("zkattest.verification.failures",
		metric.WithDescription("Number of bundles rejected by verification"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Implementation of MetricsRecorder interface

func (m *OTELMetrics) RecordAttemptStarted(ctx context.Context, schemaID string) {
	m.attemptsStarted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("schema_id", schemaID)))
}

func (m *OTELMetrics) RecordAttemptFinished(ctx context.Context, schemaID, state, reason string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("schema_id", schemaID),
		attribute.String("state", state),
		attribute.String("reason", reason),
	)
	m.attemptsFinished.Add(ctx, 1, attrs)
	m.attemptDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *OTELMetrics) RecordLaunchDuration(ctx context.Context, schemaID string, duration time.Duration) {
	m.launchDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("schema_id", schemaID)))
}

func (m *OTELMetrics) RecordSubmitDuration(ctx context.Context, schemaID string, duration time.Duration) {
	m.submitDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("schema_id", schemaID)))
}

func (m *OTELMetrics) RecordVerificationFailure(ctx context.Context, schemaID, reason string) {
	m.verificationFailures.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("schema_id", schemaID),
			attribute.String("reason", reason),
		))
}
