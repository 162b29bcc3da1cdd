package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is a toggleable access key scoped to a database connection.
// The raw key material is generated server-side and returned on creation.
type APIKey struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	DatabaseID uuid.UUID `json:"database_id"`
	Name       string    `json:"name"`
	Key        string    `json:"key"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
