// Package extraction provides access to the SAP Document Information
// Extraction REST API. Single-document calls block until the processing
// result is available; multi-document calls fan out across the configured
// polling workers and return an order-preserving result iterator.
package extraction

import (
	"context"

	bdp "github.com/SAP/business-document-processing"
)

// DefaultURLPathPrefix is joined between the service URL and every request
// path.
const DefaultURLPathPrefix = "document-information-extraction/v1/"

// Service-specific polling defaults; the extraction jobs finish faster than
// classification model operations, so the attempt budget is smaller.
const (
	defaultPollingThreads     = 5
	defaultPollingMaxAttempts = 60
)

// Client accesses one Document Information Extraction service instance.
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

// GetCapabilities returns the extraction fields, enrichment and document
// types available for the service instance.
func (c *Client) GetCapabilities(ctx context.Context) (map[string]any, error) {
	resp, err := c.Get(ctx, capabilitiesEndpoint, bdp.RequestOptions{
		LogBefore: "Getting all available capabilities",
		LogAfter:  "Successfully got all available capabilities",
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}
