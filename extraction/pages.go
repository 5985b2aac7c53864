package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	bdp "github.com/SAP/business-document-processing"
)

// GetImageForDocument returns the rendered PNG image of one document page.
func (c *Client) GetImageForDocument(ctx context.Context, documentID string, pageNumber int) ([]byte, error) {
	resp, err := c.Get(ctx, documentPageEndpoint(documentID, pageNumber), bdp.RequestOptions{
		Headers:   map[string]string{"Accept": ContentTypePNG},
		LogBefore: fmt.Sprintf("Getting image of page %d of document with ID %s", pageNumber, documentID),
		LogAfter:  fmt.Sprintf("Successfully got image of page %d of document with ID %s", pageNumber, documentID),
	})
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// GetDocumentPageText returns the OCR text of one document page.
func (c *Client) GetDocumentPageText(ctx context.Context, documentID string, pageNumber int) ([]map[string]any, error) {
	resp, err := c.Get(ctx, documentPageTextEndpoint(documentID, pageNumber), bdp.RequestOptions{
		LogBefore: fmt.Sprintf("Getting text of page %d of document with ID %s", pageNumber, documentID),
		LogAfter:  fmt.Sprintf("Successfully got text of page %d of document with ID %s", pageNumber, documentID),
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Value []map[string]any `json:"value"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode page text: %w", err)
	}
	return payload.Value, nil
}

// GetDocumentText returns the OCR text of all pages of a document, keyed by
// page number.
func (c *Client) GetDocumentText(ctx context.Context, documentID string) (map[string]any, error) {
	resp, err := c.Get(ctx, documentPagesTextEndpoint(documentID), bdp.RequestOptions{
		LogBefore: fmt.Sprintf("Getting text of all pages of document with ID %s", documentID),
		LogAfter:  fmt.Sprintf("Successfully got text of all pages of document with ID %s", documentID),
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results map[string]any `json:"results"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode document text: %w", err)
	}
	return payload.Results, nil
}

// GetRequestForDocument returns the request with which a document was
// submitted.
func (c *Client) GetRequestForDocument(ctx context.Context, documentID string) (map[string]any, error) {
	resp, err := c.Get(ctx, documentRequestEndpoint(documentID), bdp.RequestOptions{
		LogBefore: fmt.Sprintf("Getting request of document with ID %s", documentID),
		LogAfter:  fmt.Sprintf("Successfully got request of document with ID %s", documentID),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// GetPageDimensionsForDocument returns the width and height of one document
// page.
func (c *Client) GetPageDimensionsForDocument(ctx context.Context, documentID string, pageNumber int) (map[string]any, error) {
	resp, err := c.Get(ctx, documentPageDimensionsEndpoint(documentID, pageNumber), bdp.RequestOptions{
		LogBefore: fmt.Sprintf("Getting dimensions of page %d of document with ID %s", pageNumber, documentID),
		LogAfter:  fmt.Sprintf("Successfully got dimensions of page %d of document with ID %s", pageNumber, documentID),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// GetAllDimensionsForDocument returns the dimensions of all pages of a
// document, keyed by page number.
func (c *Client) GetAllDimensionsForDocument(ctx context.Context, documentID string) (map[string]any, error) {
	resp, err := c.Get(ctx, documentPagesDimensionsEndpoint(documentID), bdp.RequestOptions{
		LogBefore: fmt.Sprintf("Getting dimensions of all pages of document with ID %s", documentID),
		LogAfter:  fmt.Sprintf("Successfully got dimensions of all pages of document with ID %s", documentID),
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results map[string]any `json:"results"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode page dimensions: %w", err)
	}
	return payload.Results, nil
}

// PostGroundTruthForDocument submits the corrected values for a processed
// document. The ground truth can be given as a path to a JSON file or as an
// in-memory JSON-compatible value.
func (c *Client) PostGroundTruthForDocument(ctx context.Context, documentID string, groundTruth any) (map[string]any, error) {
	loaded, err := bdp.LoadGroundTruth(groundTruth)
	if err != nil {
		return nil, err
	}

	resp, err := c.Post(ctx, documentIDEndpoint(documentID), bdp.RequestOptions{
		JSON:      map[string]any{"groundTruth": loaded},
		LogBefore: fmt.Sprintf("Posting ground truth for document with ID %s", documentID),
		LogAfter:  fmt.Sprintf("Successfully posted ground truth for document with ID %s", documentID),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// PostConfirmDocument confirms the extracted values of a document as
// correct. With dataForRetraining set, the document may be used to improve
// the service's models.
func (c *Client) PostConfirmDocument(ctx context.Context, documentID string, dataForRetraining bool) (map[string]any, error) {
	resp, err := c.Post(ctx, documentConfirmEndpoint(documentID), bdp.RequestOptions{
		Params:    map[string]string{"dataForRetraining": strconv.FormatBool(dataForRetraining)},
		LogBefore: fmt.Sprintf("Confirming document with ID %s", documentID),
		LogAfter:  fmt.Sprintf("Successfully confirmed document with ID %s", documentID),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}
