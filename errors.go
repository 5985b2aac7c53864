package bdp

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyBatch      = errors.New("batch requires at least one item")
	ErrEmptyPath       = errors.New("path cannot be empty")
	ErrNilGroundTruth  = errors.New("ground truth cannot be nil")
	ErrBadGroundTruth  = errors.New("ground truth must be a file path or a JSON-compatible value")
	ErrMissingAuthInfo = errors.New("authentication is missing")
)

// APIError carries the HTTP context of a failed call so callers can
// distinguish retriable from fatal conditions themselves.
type APIError struct {
	Message    string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// HTTPStatus reports the status code of the failed response, zero when the
// failure happened before a response was received.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// HTTPBody reports the body of the failed response, if one was received.
func (e *APIError) HTTPBody() string { return e.Body }

// AuthenticationError is returned when credentials are absent or the token
// endpoint rejects the request after the fetch retry budget is spent.
type AuthenticationError struct{ APIError }

// ClientError is returned for 4xx responses other than 401.
type ClientError struct{ APIError }

// UnauthorizedError is returned for 401 responses that survive the single
// token-refresh-and-retry.
type UnauthorizedError struct{ ClientError }

// ServerError is returned for 5xx responses once transport retries are spent.
type ServerError struct{ APIError }

// AsyncOperationFailedError is returned when a remote job reports a terminal
// failure status in its body, as opposed to an HTTP-layer failure.
type AsyncOperationFailedError struct{ APIError }

// PollingTimeoutError is returned when the poll attempt budget is exhausted
// before the job reaches a terminal state.
type PollingTimeoutError struct {
	APIError
	Attempts int
	Elapsed  time.Duration
}

// BatchFailure describes one failed item of a validated batch.
type BatchFailure struct {
	Key        string
	StatusCode int
	Message    string
	Body       string
}

func (f BatchFailure) String() string {
	parts := []string{fmt.Sprintf("key=%s", f.Key)}
	if f.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", f.StatusCode))
	}
	parts = append(parts, fmt.Sprintf("error=%s", f.Message))
	if f.Body != "" {
		parts = append(parts, fmt.Sprintf("body=%s", f.Body))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// BatchValidationError aggregates every per-item failure of a batch call.
type BatchValidationError struct {
	Message  string
	Failures []BatchFailure
}

func (e *BatchValidationError) Error() string {
	descriptions := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		descriptions[i] = f.String()
	}
	return fmt.Sprintf("%s: [%s]", e.Message, strings.Join(descriptions, ", "))
}
