package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/nkovachev/dbdeck/pkg/models"
)

// APIKeyRequest creates a key scoped to one database connection.
type APIKeyRequest struct {
	DatabaseID uuid.UUID `json:"database_id"`
	Name       string    `json:"name"`
}

// EndpointRequest maps a collection onto a generated API endpoint.
type EndpointRequest struct {
	DatabaseID uuid.UUID `json:"database_id"`
	Collection string    `json:"collection"`
	Path       string    `json:"path"`
	Method     string    `json:"method"`
}

// CreateAPIKey generates a key; the raw key material appears only in
// this response.
func (c *Client) CreateAPIKey(ctx context.Context, req APIKeyRequest) (*models.APIKey, error) {
	var out models.APIKey
	if err := c.do(ctx, http.MethodPost, "/api-management/keys", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// APIKeys lists the caller's keys across all databases.
func (c *Client) APIKeys(ctx context.Context) ([]models.APIKey, error) {
	var out []models.APIKey
	if err := c.do(ctx, http.MethodGet, "/api-management/keys", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleAPIKey flips a key between enabled and disabled and returns the
// updated record.
func (c *Client) ToggleAPIKey(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	var out models.APIKey
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api-management/keys/%s/toggle", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAPIKey removes a key.
func (c *Client) DeleteAPIKey(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api-management/keys/%s", id), nil, nil)
}

// CreateEndpoint registers a generated endpoint for a collection.
func (c *Client) CreateEndpoint(ctx context.Context, req EndpointRequest) (*models.APIEndpoint, error) {
	var out models.APIEndpoint
	if err := c.do(ctx, http.MethodPost, "/api-management/endpoints", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Endpoints lists endpoints, filtered by database when databaseID is
// set. The database_id parameter is always sent, empty for no filter,
// so the request shape is identical either way.
func (c *Client) Endpoints(ctx context.Context, databaseID uuid.UUID) ([]models.APIEndpoint, error) {
	filter := ""
	if databaseID != uuid.Nil {
		filter = databaseID.String()
	}
	path := "/api-management/endpoints?database_id=" + url.QueryEscape(filter)

	var out []models.APIEndpoint
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleEndpoint flips an endpoint between enabled and disabled and
// returns the updated record.
func (c *Client) ToggleEndpoint(ctx context.Context, id uuid.UUID) (*models.APIEndpoint, error) {
	var out models.APIEndpoint
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api-management/endpoints/%s/toggle", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEndpoint removes an endpoint.
func (c *Client) DeleteEndpoint(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api-management/endpoints/%s", id), nil, nil)
}

// Logs fetches the request log for the caller's endpoints.
func (c *Client) Logs(ctx context.Context) ([]models.APILog, error) {
	var out []models.APILog
	if err := c.do(ctx, http.MethodGet, "/api-management/logs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClearLogs deletes the caller's request log.
func (c *Client) ClearLogs(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api-management/logs", nil, nil)
}
