package models

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the lifecycle state of a sharing invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRevoked  InvitationStatus = "revoked"
)

// Terminal reports whether the status admits no further transitions.
func (s InvitationStatus) Terminal() bool {
	return s == InvitationAccepted || s == InvitationRevoked
}

// CanTransition reports whether the lifecycle permits moving from s to
// next. Only a pending invitation can move, to accepted or revoked.
func (s InvitationStatus) CanTransition(next InvitationStatus) bool {
	if s != InvitationPending {
		return false
	}
	return next == InvitationAccepted || next == InvitationRevoked
}

// Permission levels an invitation can grant.
const (
	PermissionRead  = "read"
	PermissionWrite = "write"
	PermissionAdmin = "admin"
)

// ValidPermission reports whether level names a known permission level.
func ValidPermission(level string) bool {
	switch level {
	case PermissionRead, PermissionWrite, PermissionAdmin:
		return true
	}
	return false
}

// Invitation is a pending offer of shared database access, identified by
// an opaque token. InviteeID is set once the invitation is accepted.
type Invitation struct {
	ID              uuid.UUID           `json:"id"`
	DatabaseID      uuid.UUID           `json:"database_id"`
	InviterID       uuid.UUID           `json:"inviter_id"`
	InviteeID       *uuid.UUID          `json:"invitee_id,omitempty"`
	InviteeEmail    string              `json:"invitee_email"`
	Token           string              `json:"invitation_token"`
	PermissionLevel string              `json:"permission_level"`
	Status          InvitationStatus    `json:"status"`
	ExpiresAt       time.Time           `json:"expires_at"`
	AcceptedAt      *time.Time          `json:"accepted_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	Database        *DatabaseConnection `json:"database,omitempty"`
	Inviter         *User               `json:"inviter,omitempty"`
}

// Expired reports whether the invitation's deadline has passed at now.
func (i *Invitation) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Acceptable reports whether accepting is still a legal transition at
// now. The server treats an expired pending invitation as gone.
func (i *Invitation) Acceptable(now time.Time) bool {
	return i.Status.CanTransition(InvitationAccepted) && !i.Expired(now)
}
