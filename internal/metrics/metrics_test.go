package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/api/v1/adoptions", "201", 0.02)
	RecordHTTPRequest("POST", "/api/v1/adoptions", "201", 0.03)
	RecordHTTPRequest("POST", "/api/v1/adoptions", "400", 0.01)

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/adoptions", "201")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/adoptions", "400")))
	assert.Equal(t, 1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestRecordAdoption(t *testing.T) {
	AdoptionsTotal.Reset()

	RecordAdoption("success")
	RecordAdoption("insufficient_funds")
	RecordAdoption("success")

	assert.Equal(t, float64(2), testutil.ToFloat64(AdoptionsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(AdoptionsTotal.WithLabelValues("insufficient_funds")))
}

func TestRecordPayment(t *testing.T) {
	PaymentsTotal.Reset()

	RecordPayment("confirm", "duplicate")

	assert.Equal(t, float64(1), testutil.ToFloat64(PaymentsTotal.WithLabelValues("confirm", "duplicate")))
}

func TestRecordOutboxAndSessions(t *testing.T) {
	OutboxMessagesTotal.Reset()
	before := testutil.ToFloat64(PaymentSessionsExpiredTotal)

	RecordOutbox("sent")
	RecordSessionExpired(3)

	assert.Equal(t, float64(1), testutil.ToFloat64(OutboxMessagesTotal.WithLabelValues("sent")))
	assert.Equal(t, before+3, testutil.ToFloat64(PaymentSessionsExpiredTotal))
}
