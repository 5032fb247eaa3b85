package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petadopt_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "petadopt_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AdoptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petadopt_adoptions_total",
			Help: "Total number of adoption attempts by result",
		},
		[]string{"result"},
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petadopt_payments_total",
			Help: "Total number of payment handshake steps by stage and result",
		},
		[]string{"stage", "result"},
	)

	DepositsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "petadopt_deposits_total",
			Help: "Total number of successful balance deposits",
		},
	)

	OutboxMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petadopt_outbox_messages_total",
			Help: "Total number of outbox deliveries by result",
		},
		[]string{"result"},
	)

	PaymentSessionsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "petadopt_payment_sessions_expired_total",
			Help: "Total number of payment sessions marked expired",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordAdoption(result string) {
	AdoptionsTotal.WithLabelValues(result).Inc()
}

func RecordPayment(stage, result string) {
	PaymentsTotal.WithLabelValues(stage, result).Inc()
}

func RecordDeposit() {
	DepositsTotal.Inc()
}

func RecordOutbox(result string) {
	OutboxMessagesTotal.WithLabelValues(result).Inc()
}

func RecordSessionExpired(n int) {
	PaymentSessionsExpiredTotal.Add(float64(n))
}
