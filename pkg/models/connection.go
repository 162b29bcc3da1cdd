package models

import (
	"time"

	"github.com/google/uuid"
)

// Supported connection engines.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineMongoDB  = "mongodb"
)

// ValidEngine reports whether t names a supported database engine.
func ValidEngine(t string) bool {
	switch t {
	case EngineMySQL, EnginePostgres, EngineMongoDB:
		return true
	}
	return false
}

// DatabaseConnection is a named connection descriptor owned by a user.
// Credentials are write-only; the API never returns the password.
type DatabaseConnection struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Database  string    `json:"database"`
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DatabaseInfo describes the schema surface of a connected database:
// the collections (or tables) available for endpoint mapping.
type DatabaseInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Collections []string  `json:"collections"`
}
