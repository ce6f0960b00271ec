// Package metrics provides observability for attestation attempts.
// It uses a plugin pattern to ensure zero overhead when OpenTelemetry is not available.
package metrics

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/trufnetwork/zkattest/attestation"
)

// MetricsRecorder defines the interface for recording attempt metrics.
// This allows for pluggable implementations - OTEL, Prometheus or no-op.
type MetricsRecorder interface {
	// Attempt lifecycle
	RecordAttemptStarted(ctx context.Context, schemaID string)
	RecordAttemptFinished(ctx context.Context, schemaID, state, reason string, duration time.Duration)

	// Suspension points
	RecordLaunchDuration(ctx context.Context, schemaID string, duration time.Duration)
	RecordSubmitDuration(ctx context.Context, schemaID string, duration time.Duration)

	// Verification
	RecordVerificationFailure(ctx context.Context, schemaID, reason string)
}

// NewMetricsRecorder creates a metrics recorder instance.
// It automatically detects if OpenTelemetry is available and returns
// either a real OTEL implementation or a no-op implementation.
func NewMetricsRecorder(logger *zap.Logger) MetricsRecorder {
	meter := otel.GetMeterProvider().Meter("github.com/trufnetwork/zkattest/attestation")

	// Try to create a test metric to verify OTEL is functional
	_, err := meter.Int64Counter("zkattest.test")
	if err != nil {
		logger.Debug("OpenTelemetry not available, metrics disabled")
		return NewNoOpMetrics()
	}

	otelMetrics, err := NewOTELMetrics(meter, logger)
	if err != nil {
		logger.Warn("failed to initialize OTEL metrics, falling back to no-op", zap.Error(err))
		return NewNoOpMetrics()
	}

	logger.Info("OpenTelemetry metrics initialized successfully")
	return otelMetrics
}

// ClassifyError reduces an attempt failure to a metric label. Pipeline errors
// keep their reason; submission errors from the RPC node are bucketed by the
// messages go-ethereum clients return.
func ClassifyError(err error) string {
	if err == nil {
		return "none"
	}
	if reason, ok := attestation.ReasonOf(err); ok {
		return string(reason)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "context deadline exceeded"):
		return "timeout"
	case strings.Contains(msg, "context canceled"):
		return "cancelled"
	case strings.Contains(msg, "insufficient funds"):
		return "insufficient_funds"
	case strings.Contains(msg, "nonce"):
		return "nonce_error"
	case strings.Contains(msg, "underpriced"), strings.Contains(msg, "fee cap"):
		return "underpriced"
	case strings.Contains(msg, "gas required exceeds"), strings.Contains(msg, "intrinsic gas"):
		return "out_of_gas"
	case strings.Contains(msg, "revert"):
		return "reverted"
	case strings.Contains(msg, "connection"), strings.Contains(msg, "no such host"), strings.Contains(msg, "eof"):
		return "rpc_unavailable"
	default:
		return "unknown"
	}
}
