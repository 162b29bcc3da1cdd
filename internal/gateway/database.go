package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/nkovachev/dbdeck/pkg/models"
)

// ConnectionRequest carries the fields needed to create or test a
// database connection. The password travels only on these two calls.
type ConnectionRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// TestConnection asks the server to open and close a connection with the
// given settings without persisting anything.
func (c *Client) TestConnection(ctx context.Context, req ConnectionRequest) error {
	return c.do(ctx, http.MethodPost, "/database/test", req, nil)
}

// CreateConnection stores a new connection owned by the caller.
func (c *Client) CreateConnection(ctx context.Context, req ConnectionRequest) (*models.DatabaseConnection, error) {
	var out models.DatabaseConnection
	if err := c.do(ctx, http.MethodPost, "/database", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Connections lists the caller's own connections.
func (c *Client) Connections(ctx context.Context) ([]models.DatabaseConnection, error) {
	var out []models.DatabaseConnection
	if err := c.do(ctx, http.MethodGet, "/database", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DatabaseInfo fetches the schema surface of one connection.
func (c *Client) DatabaseInfo(ctx context.Context, id uuid.UUID) (*models.DatabaseInfo, error) {
	var out models.DatabaseInfo
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/database/%s/info", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConnection removes a connection the caller owns.
func (c *Client) DeleteConnection(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/database/%s", id), nil, nil)
}
