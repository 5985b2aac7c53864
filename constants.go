package bdp

import "time"

const (
	// oauthTokenPath is appended to the authorization server URL unless the
	// URL already ends with it.
	oauthTokenPath = "/oauth/token"

	// MaxPollingThreads caps the worker pool used for batch operations.
	MaxPollingThreads = 100

	// MinPollingInterval is the smallest accepted sleep between poll attempts.
	MinPollingInterval = 200 * time.Millisecond

	DefaultPollingSleep       = 5 * time.Second
	DefaultPollingLongSleep   = 30 * time.Second
	DefaultPollingMaxAttempts = 120
	DefaultPollingThreads     = 15
	DefaultRetryCount         = 3
	DefaultBackoffFactor      = 1 * time.Second
	DefaultTokenRenewalBuffer = 60 * time.Second

	tokenFetchAttempts  = 2
	tokenFetchRetryWait = 5 * time.Second
)

// Job statuses reported in the JSON bodies of asynchronous operations.
const (
	StatusDone      = "DONE"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusPending   = "PENDING"
)

var (
	succeededStatuses = []string{StatusDone, StatusSucceeded}
	failedStatuses    = []string{StatusFailed}

	// retryStatuses are the transient server statuses retried by the
	// transport for GET requests.
	retryStatuses = []int{500, 502, 503, 504}
)
