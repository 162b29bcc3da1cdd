package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessGrant is the realized permission a non-owner holds on a shared
// database. It exists from the moment an invitation is accepted until
// the owner revokes it or the grantee leaves. At most one grant exists
// per (database, user) pair.
type AccessGrant struct {
	ID              uuid.UUID           `json:"id"`
	DatabaseID      uuid.UUID           `json:"database_id"`
	UserID          uuid.UUID           `json:"user_id"`
	PermissionLevel string              `json:"permission_level"`
	GrantedBy       uuid.UUID           `json:"granted_by"`
	CreatedAt       time.Time           `json:"created_at"`
	Database        *DatabaseConnection `json:"database,omitempty"`
	User            *User               `json:"user,omitempty"`
	Grantor         *User               `json:"grantor,omitempty"`
}
