// Package services wraps the certificate core's operations with the
// observability the surrounding process expects: structured security
// logging and metrics reporting.
package services

import "time"

// MetricsReporter receives issuance telemetry. Implementations must be safe
// for concurrent use; a nil reporter disables reporting.
type MetricsReporter interface {
	// RecordReview records a request review outcome. failureClass is the
	// error taxonomy class, or empty on success.
	RecordReview(role string, outcome string, failureClass string)

	// RecordSign records a completed signing operation and its duration.
	RecordSign(role string, duration time.Duration)

	// UpdateCredentialExpiry publishes a credential's expiry instant.
	UpdateCredentialExpiry(commonName string, notAfter time.Time)
}

// NopMetrics is a MetricsReporter that discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordReview(string, string, string)      {}
func (NopMetrics) RecordSign(string, time.Duration)         {}
func (NopMetrics) UpdateCredentialExpiry(string, time.Time) {}
