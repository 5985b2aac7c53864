package bdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// StatusExtractor pulls the job status out of a poll response body. The two
// services report it in different places, so the extractor is a strategy
// passed per endpoint family.
type StatusExtractor func(body []byte) (string, error)

// TopLevelStatus reads the "status" field at the top of the body.
func TopLevelStatus(body []byte) (string, error) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	return payload.Status, nil
}

// NestedValueStatus reads the "status" field inside the "value" object, as
// reported by the enrichment data job endpoints.
func NestedValueStatus(body []byte) (string, error) {
	var payload struct {
		Value struct {
			Status string `json:"status"`
		} `json:"value"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	return payload.Value.Status, nil
}

// PollOptions configures one polling run.
type PollOptions struct {
	// SuccessStatus is the HTTP status treated as job completion.
	// Defaults to 200.
	SuccessStatus int

	// WaitStatus, when non-zero, marks a response as "accepted but not yet
	// processable" and schedules another attempt. The services use 409 for
	// this.
	WaitStatus int

	// SkipJSONStatusCheck returns the response as soon as SuccessStatus is
	// seen, without inspecting the body's job status field.
	SkipJSONStatusCheck bool

	// GetStatus extracts the job status from the body. Defaults to
	// TopLevelStatus.
	GetStatus StatusExtractor

	// SleepInterval between attempts. Defaults to the configured polling
	// sleep; long-running operations pass the configured long sleep instead.
	SleepInterval time.Duration

	// MaxAttempts bounds the polling run. Defaults to the configured
	// maximum.
	MaxAttempts int

	Params map[string]string

	LogBefore string
	LogAfter  string
}

// PollForURL repeatedly issues non-validating GET requests against path
// until the job reaches a terminal state, then returns the final response.
// A job that reports a failure status raises an AsyncOperationFailedError;
// an exhausted attempt budget raises a PollingTimeoutError.
func (c *Client) PollForURL(ctx context.Context, path string, opts PollOptions) (*resty.Response, error) {
	if opts.SuccessStatus == 0 {
		opts.SuccessStatus = http.StatusOK
	}
	if opts.GetStatus == nil {
		opts.GetStatus = TopLevelStatus
	}
	if opts.SleepInterval <= 0 {
		opts.SleepInterval = c.config.PollingSleep
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = c.config.PollingMaxAttempts
	}

	if opts.LogBefore != "" {
		c.logger.Debug().Msg(opts.LogBefore)
	}

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		resp, err := c.Get(ctx, path, RequestOptions{Params: opts.Params, SkipValidation: true})
		if err != nil {
			return nil, err
		}
		pollAttemptsTotal.Inc()

		switch {
		case opts.WaitStatus != 0 && resp.StatusCode() == opts.WaitStatus:
			if err := c.sleep(ctx, opts.SleepInterval); err != nil {
				return nil, err
			}

		case resp.StatusCode() == opts.SuccessStatus:
			if opts.SkipJSONStatusCheck {
				pollOutcomesTotal.WithLabelValues("succeeded").Inc()
				if opts.LogAfter != "" {
					c.logger.Info().Msg(opts.LogAfter)
				}
				return resp, nil
			}

			status, err := opts.GetStatus(resp.Body())
			if err != nil {
				return nil, fmt.Errorf("decode job status for URL %s: %w", c.PathToURL(path), err)
			}
			switch {
			case containsStatus(succeededStatuses, status):
				pollOutcomesTotal.WithLabelValues("succeeded").Inc()
				if opts.LogAfter != "" {
					c.logger.Info().Msg(opts.LogAfter)
				}
				return resp, nil
			case containsStatus(failedStatuses, status):
				pollOutcomesTotal.WithLabelValues("failed").Inc()
				return nil, &AsyncOperationFailedError{APIError{
					Message:    fmt.Sprintf("asynchronous job with URL '%s' failed", c.PathToURL(path)),
					StatusCode: resp.StatusCode(),
					Body:       resp.String(),
				}}
			default:
				if err := c.sleep(ctx, opts.SleepInterval); err != nil {
					return nil, err
				}
			}

		default:
			// Transport-level retries for 5xx already happened beneath
			// this, so any remaining error status is fatal for the poll.
			if err := c.ValidateResponse(resp); err != nil {
				pollOutcomesTotal.WithLabelValues("error").Inc()
				return nil, err
			}
		}
	}

	pollOutcomesTotal.WithLabelValues("timeout").Inc()
	elapsed := opts.SleepInterval * time.Duration(opts.MaxAttempts)
	return nil, &PollingTimeoutError{
		APIError: APIError{
			Message: fmt.Sprintf("polling for URL '%s' timed out after %s", c.PathToURL(path), elapsed),
		},
		Attempts: opts.MaxAttempts,
		Elapsed:  elapsed,
	}
}

func (c *Client) sleep(ctx context.Context, interval time.Duration) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("polling cancelled: %w", ctx.Err())
	case <-time.After(interval):
		return nil
	}
}
