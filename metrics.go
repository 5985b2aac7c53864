package bdp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bdp_requests_total",
		Help: "Total HTTP requests by method and status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bdp_request_duration_seconds",
		Help:    "HTTP request duration in seconds by method",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method"})

	transportRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bdp_transport_retries_total",
		Help: "Total GET retries triggered by transient server statuses",
	})

	tokenFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bdp_token_fetches_total",
		Help: "Total OAuth token fetch attempts",
	})

	pollAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bdp_poll_attempts_total",
		Help: "Total status-check requests issued while polling jobs",
	})

	pollOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bdp_poll_outcomes_total",
		Help: "Terminal polling outcomes by kind",
	}, []string{"outcome"})

	batchItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bdp_batch_items_total",
		Help: "Batch items processed by outcome",
	}, []string{"outcome"})
)
