package models

import (
	"time"

	"github.com/google/uuid"
)

// APIEndpoint maps an HTTP method and path onto a collection of a
// database connection. Disabled endpoints reject traffic server-side.
type APIEndpoint struct {
	ID         uuid.UUID `json:"id"`
	DatabaseID uuid.UUID `json:"database_id"`
	Collection string    `json:"collection"`
	Path       string    `json:"path"`
	Method     string    `json:"method"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
