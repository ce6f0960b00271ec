package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics implements MetricsRecorder with Prometheus collectors,
// for deployments that scrape /metrics instead of exporting OTLP.
type PrometheusMetrics struct {
	AttemptsStarted      *prometheus.CounterVec
	AttemptsFinished     *prometheus.CounterVec
	AttemptDuration      *prometheus.HistogramVec
	LaunchDuration       *prometheus.HistogramVec
	SubmitDuration       *prometheus.HistogramVec
	VerificationFailures *prometheus.CounterVec
}

// NewPrometheusMetrics registers the collectors with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		AttemptsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zkattest_attempts_started_total",
			Help: "Total number of attestation attempts started",
		}, []string{"schema_id"}),
		AttemptsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zkattest_attempts_finished_total",
			Help: "Total number of attestation attempts by terminal state",
		}, []string{"schema_id", "state", "reason"}),
		AttemptDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zkattest_attempt_duration_seconds",
			Help:    "Time from launch to terminal state",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"schema_id", "state"}),
		LaunchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zkattest_launch_duration_seconds",
			Help:    "Time spent waiting for the attestor",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"schema_id"}),
		SubmitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zkattest_submit_duration_seconds",
			Help:    "Time spent waiting for the chain submission",
			Buckets: prometheus.DefBuckets,
		}, []string{"schema_id"}),
		VerificationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zkattest_verification_failures_total",
			Help: "Total number of bundles rejected by verification",
		}, []string{"schema_id", "reason"}),
	}
}

func (m *PrometheusMetrics) RecordAttemptStarted(_ context.Context, schemaID string) {
	m.AttemptsStarted.WithLabelValues(schemaID).Inc()
}

func (m *PrometheusMetrics) RecordAttemptFinished(_ context.Context, schemaID, state, reason string, duration time.Duration) {
	m.AttemptsFinished.WithLabelValues(schemaID, state, reason).Inc()
	m.AttemptDuration.WithLabelValues(schemaID, state).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordLaunchDuration(_ context.Context, schemaID string, duration time.Duration) {
	m.LaunchDuration.WithLabelValues(schemaID).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordSubmitDuration(_ context.Context, schemaID string, duration time.Duration) {
	m.SubmitDuration.WithLabelValues(schemaID).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordVerificationFailure(_ context.Context, schemaID, reason string) {
	m.VerificationFailures.WithLabelValues(schemaID, reason).Inc()
}
