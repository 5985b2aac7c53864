package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	bdp "github.com/SAP/business-document-processing"
)

// ExtractParams shape a document extraction call.
type ExtractParams struct {
	// MimeType is the content type used for all uploaded files. Defaults to
	// ContentTypePDF; ContentTypeUnknown sniffs the type per file.
	MimeType string

	// MimeTypes overrides MimeType per document. When set, it has to have
	// the same length as the document paths.
	MimeTypes []string

	// ReturnNullValues includes fields extracted as null in the responses.
	ReturnNullValues bool
}

// ExtractInformationFromDocument uploads one document and blocks until a
// processing result can be returned or the polling budget is exhausted.
func (c *Client) ExtractInformationFromDocument(ctx context.Context, documentPath string, options DocumentOptions, params ExtractParams) (map[string]any, error) {
	it, err := c.ExtractInformationFromDocuments(ctx, []string{documentPath}, options, params)
	if err != nil {
		return nil, err
	}
	it.Next()
	return it.Result()
}

// ExtractInformationFromDocuments uploads multiple documents in parallel and
// waits for all of them to finish processing. The returned iterator yields
// the extraction of each successful document and the captured error of each
// failed one, in input order.
func (c *Client) ExtractInformationFromDocuments(ctx context.Context, documentPaths []string, options DocumentOptions, params ExtractParams) (*bdp.Iterator[map[string]any], error) {
	if len(documentPaths) == 0 {
		return nil, fmt.Errorf("expected at least one document path to upload: %w", bdp.ErrEmptyBatch)
	}

	mimeTypes, err := resolveMimeTypes(params, len(documentPaths))
	if err != nil {
		return nil, err
	}

	type upload struct {
		path     string
		mimeType string
	}
	uploads := make([]upload, len(documentPaths))
	for i, path := range documentPaths {
		uploads[i] = upload{path: path, mimeType: mimeTypes[i]}
	}

	workers := c.BatchWorkers(len(uploads))
	logger := c.Logger()
	logger.Debug().
		Int("documents", len(uploads)).
		Str("client_id", options.ClientID).
		Int("workers", workers).
		Msg("Starting parallel document upload")

	submitted, err := bdp.RunBatch(ctx, workers, uploads,
		func(u upload) string { return u.path },
		func(ctx context.Context, u upload) (string, error) {
			return c.uploadDocument(ctx, u.path, options, u.mimeType)
		})
	if err != nil {
		return nil, err
	}
	logger.Info().Int("documents", len(uploads)).Msg("Finished uploading documents")

	resultParams := ResultParams{ExtractedValues: boolPtr(true), ReturnNullValues: params.ReturnNullValues}
	results, err := bdp.RunBatch(ctx, workers, submitted,
		func(r bdp.Result[string]) string { return r.Key },
		func(ctx context.Context, r bdp.Result[string]) (map[string]any, error) {
			if r.Err != nil {
				return nil, r.Err
			}
			return c.GetExtractionForDocument(ctx, r.Value, resultParams)
		})
	if err != nil {
		return nil, err
	}

	return bdp.NewIterator(results), nil
}

// uploadDocument submits one document and returns its job ID.
func (c *Client) uploadDocument(ctx context.Context, documentPath string, options DocumentOptions, mimeType string) (string, error) {
	if documentPath == "" {
		return "", bdp.ErrEmptyPath
	}
	if mimeType == ContentTypeUnknown {
		mimeType = sniffMimeType(documentPath)
	}

	file, err := os.Open(documentPath)
	if err != nil {
		return "", fmt.Errorf("open document %s: %w", documentPath, err)
	}
	defer file.Close()

	encoded, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("encode document options: %w", err)
	}

	resp, err := c.Post(ctx, documentEndpoint, bdp.RequestOptions{
		File: &bdp.FileUpload{
			Field:       "file",
			Name:        filepath.Base(documentPath),
			Reader:      file,
			ContentType: mimeType,
		},
		FormData: map[string]string{"options": string(encoded)},
	})
	if err != nil {
		return "", err
	}

	jobID, err := decodeJobID(resp.Body())
	if err != nil {
		return "", fmt.Errorf("decode upload response for %s: %w", documentPath, err)
	}
	return jobID, nil
}

// GetExtractionForDocument polls until the document finished processing and
// returns its extraction, or fails when the job failed or did not finish
// within the polling budget.
func (c *Client) GetExtractionForDocument(ctx context.Context, documentID string, params ResultParams) (map[string]any, error) {
	query := map[string]string{
		"returnNullValues": strconv.FormatBool(params.ReturnNullValues),
	}
	if params.ExtractedValues != nil {
		query["extractedValues"] = strconv.FormatBool(*params.ExtractedValues)
	}

	resp, err := c.PollForURL(ctx, documentIDEndpoint(documentID), bdp.PollOptions{
		Params:    query,
		LogBefore: fmt.Sprintf("Getting extraction for document with ID %s", documentID),
		LogAfter:  fmt.Sprintf("Successfully got extraction for document with ID %s", documentID),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// GetExtractionForDocuments fetches the extraction of multiple already
// submitted documents in parallel and returns an order-preserving iterator.
func (c *Client) GetExtractionForDocuments(ctx context.Context, documentIDs []string, params ResultParams) (*bdp.Iterator[map[string]any], error) {
	if len(documentIDs) == 0 {
		return nil, fmt.Errorf("expected at least one document ID: %w", bdp.ErrEmptyBatch)
	}

	logger := c.Logger()
	logger.Debug().Int("documents", len(documentIDs)).Msg("Start getting extracted information")
	results, err := bdp.RunBatch(ctx, c.BatchWorkers(len(documentIDs)), documentIDs,
		func(id string) string { return id },
		func(ctx context.Context, id string) (map[string]any, error) {
			return c.GetExtractionForDocument(ctx, id, params)
		})
	if err != nil {
		return nil, err
	}
	logger.Info().Int("documents", len(documentIDs)).Msg("Finished getting extracted information")

	return bdp.NewIterator(results), nil
}

// GetDocumentList lists document jobs, optionally filtered by client ID.
func (c *Client) GetDocumentList(ctx context.Context, clientID string) ([]map[string]any, error) {
	opts := bdp.RequestOptions{LogBefore: "Getting all documents"}
	if clientID != "" {
		opts.Params = map[string]string{"clientId": clientID}
	}

	resp, err := c.Get(ctx, documentEndpoint, opts)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode document listing: %w", err)
	}
	logger := c.Logger()
	logger.Info().Int("count", len(payload.Results)).Msg("Successfully got documents")
	return payload.Results, nil
}

// DeleteDocuments deletes the given documents. A nil slice deletes all
// documents.
func (c *Client) DeleteDocuments(ctx context.Context, documentIDs []string) (map[string]any, error) {
	payload := map[string]any{}
	if documentIDs != nil {
		payload["value"] = documentIDs
	}

	resp, err := c.Delete(ctx, documentEndpoint, bdp.RequestOptions{
		JSON:      payload,
		LogBefore: "Deleting documents",
		LogAfter:  "Successfully deleted documents",
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

func resolveMimeTypes(params ExtractParams, count int) ([]string, error) {
	if params.MimeTypes != nil {
		if len(params.MimeTypes) != count {
			return nil, fmt.Errorf("mime type list has %d entries for %d documents", len(params.MimeTypes), count)
		}
		return params.MimeTypes, nil
	}
	mimeType := params.MimeType
	if mimeType == "" {
		mimeType = ContentTypePDF
	}
	mimeTypes := make([]string, count)
	for i := range mimeTypes {
		mimeTypes[i] = mimeType
	}
	return mimeTypes, nil
}

func boolPtr(v bool) *bool { return &v }
