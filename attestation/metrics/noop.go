package metrics

import (
	"context"
	"time"
)

// NoOpMetrics is a no-op implementation of MetricsRecorder.
// It provides zero overhead when metrics are not needed.
type NoOpMetrics struct{}

// NewNoOpMetrics creates a new no-op metrics recorder
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

// All methods are empty and will be inlined by the compiler

func (n *NoOpMetrics) RecordAttemptStarted(ctx context.Context, schemaID string) {}

func (n *NoOpMetrics) RecordAttemptFinished(ctx context.Context, schemaID, state, reason string, duration time.Duration) {
}

func (n *NoOpMetrics) RecordLaunchDuration(ctx context.Context, schemaID string, duration time.Duration) {
}

func (n *NoOpMetrics) RecordSubmitDuration(ctx context.Context, schemaID string, duration time.Duration) {
}

func (n *NoOpMetrics) RecordVerificationFailure(ctx context.Context, schemaID, reason string) {}
