package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics()

	m.RecordReview("account", "accepted", "")
	m.RecordReview("member", "rejected", "policy")
	m.RecordSign("account", 5*time.Millisecond)
	m.UpdateCredentialExpiry("accounts-ca.example.net", time.Unix(1234, 0))

	assert.Equal(t, 1.0, testutil.ToFloat64(reviewCounter.WithLabelValues("account", "accepted", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reviewCounter.WithLabelValues("member", "rejected", "policy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(signCounter.WithLabelValues("account")))
	assert.Equal(t, 1234.0, testutil.ToFloat64(credentialExpiry.WithLabelValues("accounts-ca.example.net")))
}
