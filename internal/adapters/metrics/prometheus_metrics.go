// Package metrics provides the Prometheus implementation of issuance
// telemetry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trustfabric/trustfabric/internal/core/services"
)

var (
	reviewCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustfabric_request_reviews_total",
		Help: "Total number of signing request reviews",
	}, []string{"role", "outcome", "failure_class"})

	signCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustfabric_certificates_signed_total",
		Help: "Total number of certificates signed",
	}, []string{"role"})

	signDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trustfabric_sign_duration_seconds",
		Help:    "Duration of certificate signing operations",
		Buckets: prometheus.DefBuckets,
	})

	credentialExpiry = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "trustfabric_credential_expiry_timestamp_seconds",
		Help: "Unix timestamp when a credential's certificate expires",
	}, []string{"common_name"})
)

// PrometheusMetrics implements services.MetricsReporter using Prometheus.
type PrometheusMetrics struct{}

// NewPrometheusMetrics creates a Prometheus metrics reporter.
func NewPrometheusMetrics() services.MetricsReporter {
	return &PrometheusMetrics{}
}

// RecordReview records a request review outcome.
func (m *PrometheusMetrics) RecordReview(role, outcome, failureClass string) {
	reviewCounter.WithLabelValues(role, outcome, failureClass).Inc()
}

// RecordSign records a completed signing operation.
func (m *PrometheusMetrics) RecordSign(role string, duration time.Duration) {
	signCounter.WithLabelValues(role).Inc()
	signDuration.Observe(duration.Seconds())
}

// UpdateCredentialExpiry publishes a credential's expiry instant.
func (m *PrometheusMetrics) UpdateCredentialExpiry(commonName string, notAfter time.Time) {
	credentialExpiry.WithLabelValues(commonName).Set(float64(notAfter.Unix()))
}
