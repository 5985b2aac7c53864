// Package classification provides access to the SAP Document Classification
// REST API: document inference against deployed models, training dataset
// management, and the model training and deployment lifecycle. Training and
// deployment jobs are polled with the configured long sleep because they can
// run for many minutes.
package classification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bdp "github.com/SAP/business-document-processing"
)

// DefaultURLPathPrefix is joined between the service URL and every request
// path.
const DefaultURLPathPrefix = "document-classification/v1/"

const (
	defaultPollingThreads     = 5
	defaultPollingMaxAttempts = 120
)

// documentPathField carries the input file path in batch results so callers
// can correlate outcomes with their documents.
const documentPathField = "document_path"

// Client accesses one Document Classification service instance.
type Client struct {
	*bdp.Client
}

// NewClient creates a client from the values of the service key: the
// service URL, the XSUAA client ID and secret, and the XSUAA URL.
func NewClient(baseURL, clientID, clientSecret, authURL string, opts ...bdp.Option) *Client {
	defaults := []bdp.Option{
		bdp.WithURLPathPrefix(DefaultURLPathPrefix),
		bdp.WithPollingThreads(defaultPollingThreads),
		bdp.WithPollingMaxAttempts(defaultPollingMaxAttempts),
	}
	core := bdp.New(baseURL, clientID, clientSecret, authURL, append(defaults, opts...)...)
	return &Client{Client: core}
}

// wait blocks for the configured long sleep or until the context is
// cancelled. Training and deployment submissions are rejected with 409 while
// another job holds the resource, so submitters wait and try again.
func (c *Client) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting cancelled: %w", ctx.Err())
	case <-time.After(c.Config().PollingLongSleep):
		return nil
	}
}

func decodeField(body []byte, field string) (string, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	var value string
	if err := json.Unmarshal(payload[field], &value); err != nil {
		return "", fmt.Errorf("field %q: %w", field, err)
	}
	return value, nil
}
