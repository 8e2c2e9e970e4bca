package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletcore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "walletcore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "walletcore",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Business metrics incremented by the wallet engine.
var (
	// TransfersTotal counts wallet transactions by kind and outcome.
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletcore",
			Subsystem: "wallet",
			Name:      "transfers_total",
			Help:      "Total number of wallet transactions",
		},
		[]string{"kind", "status", "currency"},
	)

	// TransferAmount tracks settled amounts in minor units.
	TransferAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "walletcore",
			Subsystem: "wallet",
			Name:      "transfer_amount",
			Help:      "Settled transfer amounts in minor units",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 10),
		},
		[]string{"kind", "currency"},
	)

	// OtpVerificationsTotal counts OTP verify attempts by result.
	OtpVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletcore",
			Subsystem: "otp",
			Name:      "verifications_total",
			Help:      "Total number of OTP verification attempts",
		},
		[]string{"result"},
	)

	// ReconciliationExpiredTotal counts transactions expired by the sweep.
	ReconciliationExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "walletcore",
			Subsystem: "reconciliation",
			Name:      "expired_total",
			Help:      "Total number of stale pending transactions expired",
		},
	)
)

// Metrics records per-request Prometheus metrics.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordTransfer records a terminal transaction outcome.
func RecordTransfer(kind, status, currency string, amountCents int64) {
	TransfersTotal.WithLabelValues(kind, status, currency).Inc()
	TransferAmount.WithLabelValues(kind, currency).Observe(float64(amountCents))
}
