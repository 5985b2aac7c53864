package classification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	bdp "github.com/SAP/business-document-processing"
)

// UploadParams shape a training document upload.
type UploadParams struct {
	// DocumentID sets the reference ID of the uploaded document. When
	// empty, the service assigns one.
	DocumentID string

	// MimeType is the file type of the uploaded document.
	MimeType string

	// StratificationSet pins the document to a custom stratification set
	// (training, validation or test).
	StratificationSet string
}

// DatasetDocumentsParams paginate the dataset document listing.
type DatasetDocumentsParams struct {
	Top   *int
	Skip  *int
	Count *bool
}

// CreateDataset creates an empty training dataset and returns its ID.
func (c *Client) CreateDataset(ctx context.Context) (map[string]any, error) {
	resp, err := c.Post(ctx, datasetsEndpoint, bdp.RequestOptions{
		LogBefore: "Creating a new dataset",
		LogAfter:  "Successfully created a new dataset",
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// DeleteDataset deletes the dataset with the given ID together with its
// documents.
func (c *Client) DeleteDataset(ctx context.Context, datasetID string) (map[string]any, error) {
	resp, err := c.Delete(ctx, datasetEndpoint(datasetID), bdp.RequestOptions{
		LogBefore: fmt.Sprintf("Deleting the dataset %s", datasetID),
		LogAfter:  fmt.Sprintf("Successfully deleted the dataset %s", datasetID),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// DeleteTrainingDocument removes one training document from a dataset.
func (c *Client) DeleteTrainingDocument(ctx context.Context, datasetID, documentID string) (map[string]any, error) {
	resp, err := c.Delete(ctx, datasetDocumentEndpoint(datasetID, documentID), bdp.RequestOptions{
		LogBefore: fmt.Sprintf("Deleting the document %s from the dataset %s", documentID, datasetID),
		LogAfter:  fmt.Sprintf("Successfully deleted the document %s from the dataset %s", documentID, datasetID),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// GetDatasetInfo returns statistical information about a dataset, including
// the number of documents in each processing stage.
func (c *Client) GetDatasetInfo(ctx context.Context, datasetID string) (map[string]any, error) {
	resp, err := c.Get(ctx, datasetEndpoint(datasetID), bdp.RequestOptions{
		LogBefore: fmt.Sprintf("Getting information about the dataset %s", datasetID),
		LogAfter:  fmt.Sprintf("Successfully got the information about the dataset %s", datasetID),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// GetDatasetsInfo returns summary information about all existing datasets.
func (c *Client) GetDatasetsInfo(ctx context.Context) ([]map[string]any, error) {
	resp, err := c.Get(ctx, datasetsEndpoint, bdp.RequestOptions{
		LogBefore: "Getting information about datasets",
		LogAfter:  "Successfully got the information about the datasets",
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Datasets []map[string]any `json:"datasets"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode datasets listing: %w", err)
	}
	return payload.Datasets, nil
}

// GetDatasetDocumentsInfo lists the documents in a dataset.
func (c *Client) GetDatasetDocumentsInfo(ctx context.Context, datasetID string, params DatasetDocumentsParams) (map[string]any, error) {
	query := map[string]string{}
	if params.Top != nil {
		query["top"] = strconv.Itoa(*params.Top)
	}
	if params.Skip != nil {
		query["skip"] = strconv.Itoa(*params.Skip)
	}
	if params.Count != nil {
		query["count"] = strconv.FormatBool(*params.Count)
	}

	resp, err := c.Get(ctx, datasetDocumentsEndpoint(datasetID), bdp.RequestOptions{
		Params:    query,
		LogBefore: fmt.Sprintf("Getting information about the documents in the dataset %s", datasetID),
		LogAfter:  fmt.Sprintf("Successfully got the information about the documents in the dataset %s", datasetID),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// UploadDocumentToDataset uploads a document and its ground truth to a
// dataset and blocks until the document finished processing. The ground
// truth can be given as a path to a JSON file or as an in-memory
// JSON-compatible value.
func (c *Client) UploadDocumentToDataset(ctx context.Context, datasetID, documentPath string, groundTruth any, params UploadParams) (map[string]any, error) {
	loaded, err := bdp.LoadGroundTruth(groundTruth)
	if err != nil {
		return nil, err
	}

	parameters := map[string]any{"groundTruth": loaded}
	if params.DocumentID != "" {
		parameters["documentId"] = params.DocumentID
	}
	if params.MimeType != "" {
		parameters["mimeType"] = params.MimeType
	}
	if params.StratificationSet != "" {
		parameters["stratificationSet"] = params.StratificationSet
	}
	encoded, err := json.Marshal(parameters)
	if err != nil {
		return nil, fmt.Errorf("encode upload parameters: %w", err)
	}

	file, err := os.Open(documentPath)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", documentPath, err)
	}
	defer file.Close()

	resp, err := c.Post(ctx, datasetDocumentsEndpoint(datasetID), bdp.RequestOptions{
		File: &bdp.FileUpload{
			Field:  "document",
			Name:   filepath.Base(documentPath),
			Reader: file,
		},
		FormData:  map[string]string{"parameters": string(encoded)},
		LogBefore: fmt.Sprintf("Uploading the document %s to the dataset %s", documentPath, datasetID),
		LogAfter:  fmt.Sprintf("Successfully uploaded the document %s to the dataset %s, waiting for the document processing", documentPath, datasetID),
	})
	if err != nil {
		return nil, err
	}

	documentID, err := decodeField(resp.Body(), "documentId")
	if err != nil {
		return nil, fmt.Errorf("decode upload response for %s: %w", documentPath, err)
	}

	poll, err := c.PollForURL(ctx, datasetDocumentEndpoint(datasetID, documentID), bdp.PollOptions{
		WaitStatus: http.StatusConflict,
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](poll)
}

// UploadDocumentsToDataset uploads multiple documents with their ground
// truths in parallel and waits until all of them finished processing. The
// ground truth slice has to have one entry per document path. The returned
// iterator yields the upload results in input order, each successful one
// carrying the input path in its "document_path" field.
func (c *Client) UploadDocumentsToDataset(ctx context.Context, datasetID string, documentPaths []string, groundTruths []any) (*bdp.Iterator[map[string]any], error) {
	if len(documentPaths) == 0 {
		return nil, fmt.Errorf("expected at least one document path to upload: %w", bdp.ErrEmptyBatch)
	}
	if len(groundTruths) != len(documentPaths) {
		return nil, fmt.Errorf("got %d ground truths for %d documents", len(groundTruths), len(documentPaths))
	}

	type upload struct {
		path        string
		groundTruth any
	}
	uploads := make([]upload, len(documentPaths))
	for i, path := range documentPaths {
		uploads[i] = upload{path: path, groundTruth: groundTruths[i]}
	}

	logger := c.Logger()
	logger.Debug().
		Int("documents", len(uploads)).
		Str("dataset_id", datasetID).
		Int("workers", c.BatchWorkers(len(uploads))).
		Msg("Starting parallel upload to dataset")

	results, err := bdp.RunBatch(ctx, c.BatchWorkers(len(uploads)), uploads,
		func(u upload) string { return u.path },
		func(ctx context.Context, u upload) (map[string]any, error) {
			result, err := c.UploadDocumentToDataset(ctx, datasetID, u.path, u.groundTruth, UploadParams{})
			if err != nil {
				return nil, err
			}
			result[documentPathField] = u.path
			return result, nil
		})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("documents", len(uploads)).
		Str("dataset_id", datasetID).
		Msg("Finished uploading documents to dataset")
	return bdp.NewIterator(results), nil
}

// UploadDocumentsDirectoryToDataset uploads every document with the given
// file extension found in dir, pairing each one with the ground truth JSON
// file of the same base name.
func (c *Client) UploadDocumentsDirectoryToDataset(ctx context.Context, datasetID, dir, fileExtension string) (*bdp.Iterator[map[string]any], error) {
	if fileExtension == "" {
		fileExtension = ".pdf"
	}

	documentPaths, err := findFiles(dir, fileExtension)
	if err != nil {
		return nil, err
	}
	if len(documentPaths) == 0 {
		return nil, fmt.Errorf("no training data with extension %s found in %s: %w", fileExtension, dir, bdp.ErrEmptyBatch)
	}

	groundTruths := make([]any, len(documentPaths))
	for i, path := range documentPaths {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		groundTruths[i] = filepath.Join(dir, base+".json")
	}
	return c.UploadDocumentsToDataset(ctx, datasetID, documentPaths, groundTruths)
}

func findFiles(dir, fileExtension string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read training data directory %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), fileExtension) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}
