package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record returned by the API. The client treats it
// as an immutable value once stored in the session.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
