package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/nkovachev/dbdeck/pkg/models"
)

// InvitationRequest creates a sharing invitation for a database the
// caller owns. Ownership is enforced server-side.
type InvitationRequest struct {
	DatabaseID      uuid.UUID `json:"database_id"`
	InviteeEmail    string    `json:"invitee_email"`
	PermissionLevel string    `json:"permission_level"`
}

// InvitationCreated is the create-invitation payload: the stored record
// plus a link the owner can hand to the invitee out of band.
type InvitationCreated struct {
	Invitation     models.Invitation `json:"invitation"`
	InvitationLink string            `json:"invitation_link"`
}

type revokeAccessRequest struct {
	DatabaseID uuid.UUID `json:"database_id"`
	UserID     uuid.UUID `json:"user_id"`
}

type leaveRequest struct {
	DatabaseID uuid.UUID `json:"database_id"`
}

// CreateInvitation opens a new invitation in the pending state.
func (c *Client) CreateInvitation(ctx context.Context, req InvitationRequest) (*InvitationCreated, error) {
	var out InvitationCreated
	if err := c.do(ctx, http.MethodPost, "/sharing/invitations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DatabaseInvitations lists every invitation for a database the caller
// owns, terminal ones included.
func (c *Client) DatabaseInvitations(ctx context.Context, databaseID uuid.UUID) ([]models.Invitation, error) {
	var out []models.Invitation
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sharing/invitations/database/%s", databaseID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Invitation looks up a pending invitation by its token. Unknown,
// expired, and resolved tokens all come back as ErrNotFound.
func (c *Client) Invitation(ctx context.Context, token string) (*models.Invitation, error) {
	var out models.Invitation
	if err := c.do(ctx, http.MethodGet, "/sharing/invitations/"+url.PathEscape(token), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptInvitation accepts a pending invitation addressed to the caller
// and returns the access grant it created. Tokens that are unknown,
// expired, or already resolved fail with ErrNotFound.
func (c *Client) AcceptInvitation(ctx context.Context, token string) (*models.AccessGrant, error) {
	var out models.AccessGrant
	if err := c.do(ctx, http.MethodPost, "/sharing/invitations/"+url.PathEscape(token)+"/accept", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SharedDatabases lists the grants held by the caller on other users'
// databases.
func (c *Client) SharedDatabases(ctx context.Context) ([]models.AccessGrant, error) {
	var out []models.AccessGrant
	if err := c.do(ctx, http.MethodGet, "/sharing/shared-databases", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PendingInvitations lists pending invitations addressed to the caller.
func (c *Client) PendingInvitations(ctx context.Context) ([]models.Invitation, error) {
	var out []models.Invitation
	if err := c.do(ctx, http.MethodGet, "/sharing/pending-invitations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DatabaseAccess lists who holds a grant on a database the caller owns.
func (c *Client) DatabaseAccess(ctx context.Context, databaseID uuid.UUID) ([]models.AccessGrant, error) {
	var out []models.AccessGrant
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sharing/database-access/%s", databaseID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RevokeAccess removes a user's grant on a database the caller owns.
// This is independent of any invitation record; see sharing.Workflow for
// the sequencing with invitation revocation.
func (c *Client) RevokeAccess(ctx context.Context, databaseID, userID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/sharing/access", revokeAccessRequest{DatabaseID: databaseID, UserID: userID}, nil)
}

// RevokeInvitation moves a pending invitation the caller issued to the
// revoked state. Revoking an already-terminal invitation fails with
// ErrNotFound.
func (c *Client) RevokeInvitation(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/sharing/invitations/%s", id), nil, nil)
}

// LeaveSharedDatabase gives up the caller's own grant on someone else's
// database. The invitation's historical status is untouched.
func (c *Client) LeaveSharedDatabase(ctx context.Context, databaseID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/sharing/leave", leaveRequest{DatabaseID: databaseID}, nil)
}
