// Package sharing implements the client side of the database-sharing
// workflow: issuing and resolving invitations, and tracking which
// databases are owned, shared in, or shared out. It layers transition
// rules and observable caches over the raw gateway calls.
package sharing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nkovachev/dbdeck/internal/gateway"
	"github.com/nkovachev/dbdeck/internal/state"
	"github.com/nkovachev/dbdeck/pkg/models"
)

// Workflow drives the invitation lifecycle against the API and keeps
// the local caches coherent with each transition. The caches are
// projections of the last fetch; the server stays authoritative.
type Workflow struct {
	gw *gateway.Client

	// mu serializes transitions that take more than one API call, so a
	// revoke never interleaves with another revoke for the same record.
	mu sync.Mutex

	// Invitations is the owner view, keyed by database.
	Invitations *state.Container[map[uuid.UUID][]models.Invitation]
	// Pending is the invitee view: open invitations addressed to me.
	Pending *state.Container[[]models.Invitation]
	// Shared lists the grants I hold on other users' databases.
	Shared *state.Container[[]models.AccessGrant]
	// Access is the owner view of who holds grants, keyed by database.
	Access *state.Container[map[uuid.UUID][]models.AccessGrant]
}

func New(gw *gateway.Client) *Workflow {
	return &Workflow{
		gw:          gw,
		Invitations: state.New(map[uuid.UUID][]models.Invitation{}),
		Pending:     state.New([]models.Invitation{}),
		Shared:      state.New([]models.AccessGrant{}),
		Access:      state.New(map[uuid.UUID][]models.AccessGrant{}),
	}
}

// Invite opens a new invitation in the pending state and records it in
// the owner cache. The permission level is validated before the call;
// database ownership is the server's check.
func (w *Workflow) Invite(ctx context.Context, databaseID uuid.UUID, inviteeEmail, permissionLevel string) (*gateway.InvitationCreated, error) {
	if !models.ValidPermission(permissionLevel) {
		return nil, fmt.Errorf("unknown permission level %q", permissionLevel)
	}
	if inviteeEmail == "" {
		return nil, fmt.Errorf("invitee email is required")
	}

	created, err := w.gw.CreateInvitation(ctx, gateway.InvitationRequest{
		DatabaseID:      databaseID,
		InviteeEmail:    inviteeEmail,
		PermissionLevel: permissionLevel,
	})
	if err != nil {
		return nil, err
	}

	w.Invitations.Update(func(m map[uuid.UUID][]models.Invitation) map[uuid.UUID][]models.Invitation {
		next := cloneInvitations(m)
		next[databaseID] = append(next[databaseID], created.Invitation)
		return next
	})
	return created, nil
}

// Accept resolves a pending invitation addressed to the current user,
// creating exactly one access grant. A token the local cache already
// knows to be expired or resolved fails without a round trip; otherwise
// the server is the judge and its not-found answer passes through.
func (w *Workflow) Accept(ctx context.Context, token string) (*models.AccessGrant, error) {
	for _, inv := range w.Pending.Get() {
		if inv.Token != token || inv.Acceptable(time.Now()) {
			continue
		}
		if inv.Status.Terminal() {
			return nil, fmt.Errorf("%w: invitation already %s", gateway.ErrNotFound, inv.Status)
		}
		return nil, fmt.Errorf("%w: invitation expired", gateway.ErrNotFound)
	}

	grant, err := w.gw.AcceptInvitation(ctx, token)
	if err != nil {
		return nil, err
	}

	w.Pending.Update(func(list []models.Invitation) []models.Invitation {
		out := make([]models.Invitation, 0, len(list))
		for _, inv := range list {
			if inv.Token != token {
				out = append(out, inv)
			}
		}
		return out
	})
	w.Shared.Update(func(list []models.AccessGrant) []models.AccessGrant {
		return append(append([]models.AccessGrant{}, list...), *grant)
	})
	return grant, nil
}

// Revoke retracts sharing for one invitation, as its inviter. A pending
// invitation moves to revoked; for an already-accepted one the live
// artifact is the access grant, which is removed through the separate
// access-revocation call. When a pending invitation coexists with a
// grant for the same invitee the two revocations run in sequence,
// invitation first.
func (w *Workflow) Revoke(ctx context.Context, inv models.Invitation) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch inv.Status {
	case models.InvitationPending:
		if err := w.gw.RevokeInvitation(ctx, inv.ID); err != nil {
			return err
		}
		w.markRevoked(inv)
		if grant, ok := w.findGrantByEmail(inv.DatabaseID, inv.InviteeEmail); ok {
			if err := w.gw.RevokeAccess(ctx, inv.DatabaseID, grant.UserID); err != nil {
				return fmt.Errorf("invitation revoked but access grant remains: %w", err)
			}
			w.dropGrant(inv.DatabaseID, grant.UserID)
		}
		return nil

	case models.InvitationAccepted:
		if inv.InviteeID == nil {
			return fmt.Errorf("accepted invitation %s has no invitee recorded", inv.ID)
		}
		if err := w.gw.RevokeAccess(ctx, inv.DatabaseID, *inv.InviteeID); err != nil {
			return err
		}
		w.dropGrant(inv.DatabaseID, *inv.InviteeID)
		return nil

	default:
		return fmt.Errorf("%w: invitation already revoked", gateway.ErrNotFound)
	}
}

// RevokeGrant removes a user's grant on a database the current user
// owns, independent of any invitation record.
func (w *Workflow) RevokeGrant(ctx context.Context, databaseID, userID uuid.UUID) error {
	if err := w.gw.RevokeAccess(ctx, databaseID, userID); err != nil {
		return err
	}
	w.dropGrant(databaseID, userID)
	return nil
}

// Leave gives up the current user's own grant on someone else's
// database. The invitation record's historical status is untouched.
func (w *Workflow) Leave(ctx context.Context, databaseID uuid.UUID) error {
	if err := w.gw.LeaveSharedDatabase(ctx, databaseID); err != nil {
		return err
	}
	w.Shared.Update(func(list []models.AccessGrant) []models.AccessGrant {
		out := make([]models.AccessGrant, 0, len(list))
		for _, g := range list {
			if g.DatabaseID != databaseID {
				out = append(out, g)
			}
		}
		return out
	})
	return nil
}

// --- read projections ---

// RefreshInvitations refetches the owner view for one database.
func (w *Workflow) RefreshInvitations(ctx context.Context, databaseID uuid.UUID) ([]models.Invitation, error) {
	list, err := w.gw.DatabaseInvitations(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	w.Invitations.Update(func(m map[uuid.UUID][]models.Invitation) map[uuid.UUID][]models.Invitation {
		next := cloneInvitations(m)
		next[databaseID] = list
		return next
	})
	return list, nil
}

// RefreshPending refetches the invitee view.
func (w *Workflow) RefreshPending(ctx context.Context) ([]models.Invitation, error) {
	list, err := w.gw.PendingInvitations(ctx)
	if err != nil {
		return nil, err
	}
	w.Pending.Set(list)
	return list, nil
}

// RefreshShared refetches the grants the current user holds.
func (w *Workflow) RefreshShared(ctx context.Context) ([]models.AccessGrant, error) {
	list, err := w.gw.SharedDatabases(ctx)
	if err != nil {
		return nil, err
	}
	w.Shared.Set(list)
	return list, nil
}

// RefreshAccess refetches who holds grants on one owned database.
func (w *Workflow) RefreshAccess(ctx context.Context, databaseID uuid.UUID) ([]models.AccessGrant, error) {
	list, err := w.gw.DatabaseAccess(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	w.Access.Update(func(m map[uuid.UUID][]models.AccessGrant) map[uuid.UUID][]models.AccessGrant {
		next := cloneAccess(m)
		next[databaseID] = list
		return next
	})
	return list, nil
}

// --- cache maintenance ---

func (w *Workflow) markRevoked(inv models.Invitation) {
	w.Invitations.Update(func(m map[uuid.UUID][]models.Invitation) map[uuid.UUID][]models.Invitation {
		next := cloneInvitations(m)
		list := append([]models.Invitation{}, next[inv.DatabaseID]...)
		for i := range list {
			if list[i].ID == inv.ID {
				list[i].Status = models.InvitationRevoked
			}
		}
		next[inv.DatabaseID] = list
		return next
	})
}

func (w *Workflow) findGrantByEmail(databaseID uuid.UUID, email string) (models.AccessGrant, bool) {
	for _, g := range w.Access.Get()[databaseID] {
		if g.User != nil && g.User.Email == email {
			return g, true
		}
	}
	return models.AccessGrant{}, false
}

func (w *Workflow) dropGrant(databaseID, userID uuid.UUID) {
	w.Access.Update(func(m map[uuid.UUID][]models.AccessGrant) map[uuid.UUID][]models.AccessGrant {
		next := cloneAccess(m)
		list := make([]models.AccessGrant, 0, len(next[databaseID]))
		for _, g := range next[databaseID] {
			if g.UserID != userID {
				list = append(list, g)
			}
		}
		next[databaseID] = list
		return next
	})
}

func cloneInvitations(m map[uuid.UUID][]models.Invitation) map[uuid.UUID][]models.Invitation {
	next := make(map[uuid.UUID][]models.Invitation, len(m))
	for k, v := range m {
		next[k] = v
	}
	return next
}

func cloneAccess(m map[uuid.UUID][]models.AccessGrant) map[uuid.UUID][]models.AccessGrant {
	next := make(map[uuid.UUID][]models.AccessGrant, len(m))
	for k, v := range m {
		next[k] = v
	}
	return next
}
