package handlers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faey_gateway_requests_total",
		Help: "Total number of gateway requests by endpoint and response status",
	}, []string{"endpoint", "status"})

	providerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "faey_provider_request_duration_seconds",
		Help:    "Latency of provider calls by operation and outcome",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
	}, []string{"operation", "outcome"})
)

// timeProvider starts timing a provider call; the returned func records it with the call's outcome.
func timeProvider(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		providerDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
	}
}
