package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/trufnetwork/zkattest/attestation/config"
	"github.com/trufnetwork/zkattest/attestation/metrics"
)

// newMetrics returns the configured recorder. The gatherer is non-nil only
// for the Prometheus backend.
func newMetrics(cfg *config.Config, logger *zap.Logger) (metrics.MetricsRecorder, prometheus.Gatherer) {
	switch cfg.Metrics {
	case config.MetricsPrometheus:
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		return metrics.NewPrometheusMetrics(reg), reg
	case config.MetricsNone:
		return metrics.NewNoOpMetrics(), nil
	default:
		return metrics.NewMetricsRecorder(logger), nil
	}
}
