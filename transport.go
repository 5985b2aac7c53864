package bdp

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// newRetryingClient builds the HTTP client shared by all requests of one
// client instance. GET requests are retried with exponential backoff on
// transient server statuses; POST and DELETE are never retried by the
// transport because the service endpoints are not idempotent. Retry
// exhaustion does not fail the call, the final response is returned and
// inspected by the status-validation layer.
func newRetryingClient(cfg Config) *resty.Client {
	// The connection pool must admit at least one connection per polling
	// worker, otherwise full batch concurrency starves itself.
	poolSize := cfg.PollingThreads
	if poolSize < DefaultPollingThreads {
		poolSize = DefaultPollingThreads
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        poolSize * 2,
		MaxIdleConnsPerHost: poolSize,
		IdleConnTimeout:     90 * time.Second,
	}

	client := resty.New().
		SetTransport(transport).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.BackoffFactor).
		SetRetryMaxWaitTime(cfg.BackoffFactor * 16)

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
			return false
		}
		if err != nil {
			transportRetriesTotal.Inc()
			return true
		}
		for _, status := range retryStatuses {
			if r.StatusCode() == status {
				transportRetriesTotal.Inc()
				return true
			}
		}
		return false
	})

	return client
}
