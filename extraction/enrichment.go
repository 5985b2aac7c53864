package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bdp "github.com/SAP/business-document-processing"
)

// Enrichment jobs settle quickly, so they are polled faster than document
// extractions.
const enrichmentPollingSleep = time.Second

// EnrichmentParams address enrichment data records.
type EnrichmentParams struct {
	// DataType is one of the DataType constants. Required.
	DataType string

	// ClientID is the client the data belongs to. Required.
	ClientID string

	// Subtype is one of the DataSubtype constants. Only evaluated for
	// business entity data.
	Subtype string
}

// GetEnrichmentParams filter the enrichment data listing.
type GetEnrichmentParams struct {
	EnrichmentParams

	// ID, System and CompanyCode narrow the listing to matching records.
	ID          string
	System      string
	CompanyCode string

	// Top is the maximum number of records to return.
	Top int

	// Skip is the index of the first record to return.
	Skip *int
}

// UploadEnrichmentData uploads enrichment data records and blocks until the
// job finished processing.
func (c *Client) UploadEnrichmentData(ctx context.Context, params EnrichmentParams, data []map[string]any) (map[string]any, error) {
	query := map[string]string{
		"clientId": params.ClientID,
		"type":     params.DataType,
	}
	if params.DataType == DataTypeBusinessEntity && params.Subtype != "" {
		query["subtype"] = params.Subtype
	}

	resp, err := c.Post(ctx, dataAsyncEndpoint, bdp.RequestOptions{
		Params:    query,
		JSON:      map[string]any{"value": data},
		LogBefore: fmt.Sprintf("Uploading %d enrichment data records for client %s", len(data), params.ClientID),
	})
	if err != nil {
		return nil, err
	}

	jobID, err := decodeJobID(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("decode enrichment upload response: %w", err)
	}

	poll, err := c.PollForURL(ctx, dataIDEndpoint(jobID), bdp.PollOptions{
		GetStatus:     bdp.NestedValueStatus,
		SleepInterval: enrichmentPollingSleep,
		LogAfter:      fmt.Sprintf("Successfully uploaded %d enrichment data records for client %s", len(data), params.ClientID),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](poll)
}

// GetEnrichmentData lists the enrichment data records matching the given
// parameters.
func (c *Client) GetEnrichmentData(ctx context.Context, params GetEnrichmentParams) ([]map[string]any, error) {
	query := map[string]string{
		"clientId": params.ClientID,
		"type":     params.DataType,
	}
	if params.DataType == DataTypeBusinessEntity && params.Subtype != "" {
		query["subtype"] = params.Subtype
	}
	if params.ID != "" {
		query["id"] = params.ID
	}
	if params.System != "" {
		query["system"] = params.System
	}
	if params.CompanyCode != "" {
		query["companyCode"] = params.CompanyCode
	}
	if params.Top > 0 {
		query["limit"] = strconv.Itoa(params.Top)
	}
	if params.Skip != nil {
		query["offset"] = strconv.Itoa(*params.Skip)
	}

	resp, err := c.Get(ctx, dataEndpoint, bdp.RequestOptions{
		Params:    query,
		LogBefore: fmt.Sprintf("Getting enrichment data records for client %s", params.ClientID),
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Value []map[string]any `json:"value"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode enrichment data listing: %w", err)
	}
	logger := c.Logger()
	logger.Info().Int("count", len(payload.Value)).Msg("Successfully got enrichment data records")
	return payload.Value, nil
}

// DeleteEnrichmentData synchronously deletes the given enrichment data
// records. A nil slice deletes all records of the client. Large deletions
// should use DeleteEnrichmentDataAsync instead.
func (c *Client) DeleteEnrichmentData(ctx context.Context, params EnrichmentParams, records []EnrichmentRecord) (map[string]any, error) {
	resp, err := c.Delete(ctx, dataEndpoint, bdp.RequestOptions{
		Params:    deletionQuery(params),
		JSON:      map[string]any{"value": deletionPayload(records)},
		LogBefore: "Deleting enrichment data records",
		LogAfter:  "Successfully deleted enrichment data records",
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// DeleteEnrichmentDataAsync submits a deletion job for the given enrichment
// data records and blocks until it finished. A nil slice deletes all records
// of the client.
func (c *Client) DeleteEnrichmentDataAsync(ctx context.Context, params EnrichmentParams, records []EnrichmentRecord) (map[string]any, error) {
	resp, err := c.Delete(ctx, dataAsyncEndpoint, bdp.RequestOptions{
		Params:    deletionQuery(params),
		JSON:      map[string]any{"value": deletionPayload(records)},
		LogBefore: "Deleting enrichment data records",
	})
	if err != nil {
		return nil, err
	}

	jobID, err := decodeJobID(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("decode enrichment deletion response: %w", err)
	}

	poll, err := c.PollForURL(ctx, dataIDEndpoint(jobID), bdp.PollOptions{
		GetStatus:     bdp.NestedValueStatus,
		SleepInterval: enrichmentPollingSleep,
		LogAfter:      "Successfully deleted enrichment data records",
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](poll)
}

// DeleteAllEnrichmentData deletes all enrichment data records of the service
// instance, optionally restricted to one data type, and blocks until the
// deletion job finished.
func (c *Client) DeleteAllEnrichmentData(ctx context.Context, dataType string) (map[string]any, error) {
	opts := bdp.RequestOptions{
		JSON:      map[string]any{"value": []EnrichmentRecord{}},
		LogBefore: "Deleting all enrichment data records",
	}
	if dataType != "" {
		opts.Params = map[string]string{"type": dataType}
	}

	resp, err := c.Delete(ctx, dataAsyncEndpoint, opts)
	if err != nil {
		return nil, err
	}

	jobID, err := decodeJobID(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("decode enrichment deletion response: %w", err)
	}

	poll, err := c.PollForURL(ctx, dataIDEndpoint(jobID), bdp.PollOptions{
		GetStatus:     bdp.NestedValueStatus,
		SleepInterval: enrichmentPollingSleep,
		LogAfter:      "Successfully deleted all enrichment data records",
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](poll)
}

// ActivateEnrichmentData activates all uploaded enrichment data so it is
// used when processing documents, and blocks until the activation finished.
func (c *Client) ActivateEnrichmentData(ctx context.Context) (map[string]any, error) {
	resp, err := c.Post(ctx, dataActivationAsyncEndpoint, bdp.RequestOptions{
		LogBefore: "Activating enrichment data",
	})
	if err != nil {
		return nil, err
	}

	jobID, err := decodeJobID(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("decode enrichment activation response: %w", err)
	}

	poll, err := c.PollForURL(ctx, dataActivationIDEndpoint(jobID), bdp.PollOptions{
		GetStatus:     bdp.NestedValueStatus,
		SleepInterval: enrichmentPollingSleep,
		LogAfter:      "Successfully activated enrichment data",
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](poll)
}

func decodeJobID(body []byte) (string, error) {
	var job struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &job); err != nil {
		return "", err
	}
	return job.ID, nil
}

func deletionQuery(params EnrichmentParams) map[string]string {
	query := map[string]string{
		"clientId": params.ClientID,
		"type":     params.DataType,
	}
	if params.Subtype != "" {
		query["subtype"] = params.Subtype
	}
	return query
}

func deletionPayload(records []EnrichmentRecord) []EnrichmentRecord {
	if records == nil {
		return []EnrichmentRecord{}
	}
	return records
}
