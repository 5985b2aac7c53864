package classification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	bdp "github.com/SAP/business-document-processing"
)

// ClassifyParams shape a single classification request.
type ClassifyParams struct {
	// ReferenceID sets the document reference ID. The caller is responsible
	// for keeping reference IDs unique across documents. When empty, the
	// service assigns one.
	ReferenceID string

	// MimeType is the file type of the uploaded document. When empty, the
	// service detects it.
	MimeType string
}

type classifyParameters struct {
	DocumentID string `json:"documentId,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
}

// ClassifyDocument submits one document for classification against a
// deployed model and blocks until the classification result is available.
func (c *Client) ClassifyDocument(ctx context.Context, documentPath, modelName string, modelVersion int, params ClassifyParams) (map[string]any, error) {
	if documentPath == "" {
		return nil, bdp.ErrEmptyPath
	}
	file, err := os.Open(documentPath)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", documentPath, err)
	}
	defer file.Close()

	encoded, err := json.Marshal(classifyParameters{
		DocumentID: params.ReferenceID,
		MimeType:   params.MimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("encode classification parameters: %w", err)
	}

	resp, err := c.Post(ctx, classificationDocumentsEndpoint(modelName, modelVersion), bdp.RequestOptions{
		File: &bdp.FileUpload{
			Field:  "document",
			Name:   filepath.Base(documentPath),
			Reader: file,
		},
		FormData:  map[string]string{"parameters": string(encoded)},
		LogBefore: fmt.Sprintf("Submitting document %s for classification", documentPath),
		LogAfter:  fmt.Sprintf("Document %s submitted for classification successfully, waiting for result", documentPath),
	})
	if err != nil {
		return nil, err
	}

	documentID, err := decodeField(resp.Body(), "documentId")
	if err != nil {
		return nil, fmt.Errorf("decode classification job for %s: %w", documentPath, err)
	}

	poll, err := c.PollForURL(ctx, classificationResultEndpoint(modelName, modelVersion, documentID), bdp.PollOptions{
		WaitStatus: http.StatusConflict,
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](poll)
}

// ClassifyDocuments classifies multiple documents in parallel and waits for
// all of them to finish. The returned iterator yields the classification of
// each successful document and the captured error of each failed one, in
// input order. Each successful result carries the input path in its
// "document_path" field.
func (c *Client) ClassifyDocuments(ctx context.Context, documentPaths []string, modelName string, modelVersion int) (*bdp.Iterator[map[string]any], error) {
	if len(documentPaths) == 0 {
		return nil, fmt.Errorf("expected at least one document path to classify: %w", bdp.ErrEmptyBatch)
	}

	logger := c.Logger()
	logger.Debug().
		Int("documents", len(documentPaths)).
		Str("model", modelName).
		Int("version", modelVersion).
		Int("workers", c.BatchWorkers(len(documentPaths))).
		Msg("Starting parallel document classification")

	results, err := bdp.RunBatch(ctx, c.BatchWorkers(len(documentPaths)), documentPaths,
		func(path string) string { return path },
		func(ctx context.Context, path string) (map[string]any, error) {
			result, err := c.ClassifyDocument(ctx, path, modelName, modelVersion, ClassifyParams{})
			if err != nil {
				return nil, err
			}
			result[documentPathField] = path
			return result, nil
		})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("documents", len(documentPaths)).
		Str("model", modelName).
		Int("version", modelVersion).
		Msg("Finished document classification")
	return bdp.NewIterator(results), nil
}

// GetClassificationDocumentsInfo lists the reference ID and classification
// status of recently classified documents.
func (c *Client) GetClassificationDocumentsInfo(ctx context.Context, modelName string, modelVersion int) ([]map[string]any, error) {
	resp, err := c.Get(ctx, classificationDocumentsEndpoint(modelName, modelVersion), bdp.RequestOptions{
		LogBefore: fmt.Sprintf("Getting information about documents recently classified against the model %s with version %d", modelName, modelVersion),
		LogAfter:  fmt.Sprintf("Successfully got the information about documents recently classified against the model %s with version %d", modelName, modelVersion),
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode classified documents listing: %w", err)
	}
	return payload.Results, nil
}
