package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	bdp "github.com/SAP/business-document-processing"
)

// GetClientsParams filter the client listing.
type GetClientsParams struct {
	// Top is the maximum number of clients to return. Defaults to 100.
	Top int

	// Skip is the index of the first client to return.
	Skip *int

	// IDStartsWith filters clients by the characters their ID starts with.
	IDStartsWith string
}

// CreateClient creates a single client for whom documents can be uploaded.
func (c *Client) CreateClient(ctx context.Context, clientID, clientName string) (map[string]any, error) {
	return c.CreateClients(ctx, []ClientInfo{{ID: clientID, Name: clientName}})
}

// CreateClients creates one or more clients for whom documents can be
// uploaded.
func (c *Client) CreateClients(ctx context.Context, clients []ClientInfo) (map[string]any, error) {
	resp, err := c.Post(ctx, clientEndpoint, bdp.RequestOptions{
		JSON:      map[string]any{"value": clients},
		LogBefore: fmt.Sprintf("Creating %d clients", len(clients)),
		LogAfter:  fmt.Sprintf("Successfully created %d clients", len(clients)),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// GetClients lists the existing clients filtered by the given parameters.
func (c *Client) GetClients(ctx context.Context, params GetClientsParams) ([]map[string]any, error) {
	if params.Top <= 0 {
		params.Top = 100
	}
	query := map[string]string{"limit": strconv.Itoa(params.Top)}
	if params.IDStartsWith != "" {
		query["clientIdStartsWith"] = params.IDStartsWith
	}
	if params.Skip != nil {
		query["offset"] = strconv.Itoa(*params.Skip)
	}

	resp, err := c.Get(ctx, clientEndpoint, bdp.RequestOptions{
		Params:    query,
		LogBefore: fmt.Sprintf("Getting up to %d clients", params.Top),
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Payload []map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode clients listing: %w", err)
	}
	logger := c.Logger()
	logger.Info().Int("count", len(payload.Payload)).Msg("Successfully got clients")
	return payload.Payload, nil
}

// DeleteClient deletes the client with the given ID.
func (c *Client) DeleteClient(ctx context.Context, clientID string) (map[string]any, error) {
	return c.DeleteClients(ctx, []string{clientID})
}

// DeleteClients deletes the clients with the given IDs. A nil slice deletes
// all clients.
func (c *Client) DeleteClients(ctx context.Context, clientIDs []string) (map[string]any, error) {
	payload := map[string]any{}
	if clientIDs != nil {
		payload["value"] = clientIDs
	}

	resp, err := c.Delete(ctx, clientEndpoint, bdp.RequestOptions{
		JSON:      payload,
		LogBefore: "Deleting clients",
		LogAfter:  "Successfully deleted clients",
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// PostClientCapabilityMapping uploads a customer-provided capability mapping
// for the given client.
func (c *Client) PostClientCapabilityMapping(ctx context.Context, clientID string, documentType, fileType string, headerFields, lineItemFields []string) (map[string]any, error) {
	if documentType == "" {
		documentType = DocumentTypePaymentAdvice
	}
	if fileType == "" {
		fileType = FileTypeExcel
	}
	options := CapabilityMappingOptions{
		DocumentType:   documentType,
		FileType:       fileType,
		HeaderFields:   emptyIfNil(headerFields),
		LineItemFields: emptyIfNil(lineItemFields),
	}
	return c.PostClientCapabilityMappingWithOptions(ctx, clientID, options)
}

// PostClientCapabilityMappingWithOptions uploads a prebuilt capability
// mapping for the given client.
func (c *Client) PostClientCapabilityMappingWithOptions(ctx context.Context, clientID string, options CapabilityMappingOptions) (map[string]any, error) {
	encoded, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("encode capability mapping options: %w", err)
	}

	resp, err := c.Post(ctx, clientMappingEndpoint, bdp.RequestOptions{
		Params:    map[string]string{"clientId": clientID},
		FormData:  map[string]string{"options": string(encoded)},
		LogBefore: fmt.Sprintf("Creating custom capability mapping for client %s", clientID),
		LogAfter:  fmt.Sprintf("Successfully created custom capability mapping for client %s", clientID),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}
