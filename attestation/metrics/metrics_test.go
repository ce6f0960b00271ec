package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/trufnetwork/zkattest/attestation"
)

func TestNoOpMetrics(t *testing.T) {
	// Test that NoOpMetrics implements the interface and doesn't panic
	var metrics MetricsRecorder = NewNoOpMetrics()
	ctx := context.Background()

	metrics.RecordAttemptStarted(ctx, "schema")
	metrics.RecordAttemptFinished(ctx, "schema", "Confirmed", "", time.Second)
	metrics.RecordLaunchDuration(ctx, "schema", time.Second)
	metrics.RecordSubmitDuration(ctx, "schema", time.Second)
	metrics.RecordVerificationFailure(ctx, "schema", "SchemaMismatch")
}

func TestMetricsRecorderFactory(t *testing.T) {
	metrics := NewMetricsRecorder(zap.NewNop())

	// The factory should return either NoOpMetrics or OTELMetrics
	// depending on OTEL availability.
	assert.NotNil(t, metrics, "NewMetricsRecorder should not return nil")

	// This should not panic regardless of which implementation is returned
	metrics.RecordAttemptStarted(context.Background(), "test")
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)
	ctx := context.Background()

	m.RecordAttemptStarted(ctx, "s1")
	m.RecordAttemptStarted(ctx, "s1")
	m.RecordAttemptFinished(ctx, "s1", "Rejected", "SchemaMismatch", 2*time.Second)
	m.RecordVerificationFailure(ctx, "s1", "SchemaMismatch")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AttemptsStarted.WithLabelValues("s1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsFinished.WithLabelValues("s1", "Rejected", "SchemaMismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerificationFailures.WithLabelValues("s1", "SchemaMismatch")))

	// A second registration on the same registry must fail loudly.
	assert.Panics(t, func() { NewPrometheusMetrics(reg) })
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "none",
		},
		{
			name:     "attestation error",
			err:      errors.Wrap(attestation.NewError(attestation.ReasonValidatorMismatch, "x"), "verify"),
			expected: "ValidatorMismatch",
		},
		{
			name:     "context deadline exceeded",
			err:      context.DeadlineExceeded,
			expected: "timeout",
		},
		{
			name:     "reverted",
			err:      errors.New("execution reverted: already attested"),
			expected: "reverted",
		},
		{
			name:     "broadcast then reverted",
			err:      errors.New("transaction 0xabc reverted: in block 7"),
			expected: "reverted",
		},
		{
			name:     "nonce too low",
			err:      errors.Wrap(errors.New("nonce too low"), "send attest transaction"),
			expected: "nonce_error",
		},
		{
			name:     "insufficient funds",
			err:      errors.New("insufficient funds for gas * price + value"),
			expected: "insufficient_funds",
		},
		{
			name:     "underpriced replacement",
			err:      errors.New("replacement transaction underpriced"),
			expected: "underpriced",
		},
		{
			name:     "gas estimation",
			err:      errors.New("gas required exceeds allowance (30000000)"),
			expected: "out_of_gas",
		},
		{
			name:     "rpc down",
			err:      errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"),
			expected: "rpc_unavailable",
		},
		{
			name:     "generic error",
			err:      assert.AnError,
			expected: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyError(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}
