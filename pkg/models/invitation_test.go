package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInvitationStatusTransitions(t *testing.T) {
	assert.True(t, InvitationPending.CanTransition(InvitationAccepted))
	assert.True(t, InvitationPending.CanTransition(InvitationRevoked))

	// Accepted and revoked are terminal in both directions.
	for _, s := range []InvitationStatus{InvitationAccepted, InvitationRevoked} {
		assert.True(t, s.Terminal())
		assert.False(t, s.CanTransition(InvitationPending))
		assert.False(t, s.CanTransition(InvitationAccepted))
		assert.False(t, s.CanTransition(InvitationRevoked))
	}

	assert.False(t, InvitationPending.Terminal())
	assert.False(t, InvitationPending.CanTransition(InvitationPending))
}

func TestInvitationAcceptable(t *testing.T) {
	now := time.Now()
	inv := Invitation{
		Status:    InvitationPending,
		ExpiresAt: now.Add(time.Hour),
	}
	assert.True(t, inv.Acceptable(now))

	expired := inv
	expired.ExpiresAt = now.Add(-time.Minute)
	assert.True(t, expired.Expired(now))
	assert.False(t, expired.Acceptable(now))

	accepted := inv
	accepted.Status = InvitationAccepted
	assert.False(t, accepted.Acceptable(now))

	revoked := inv
	revoked.Status = InvitationRevoked
	assert.False(t, revoked.Acceptable(now))

	// A zero deadline means no expiry was recorded.
	open := Invitation{Status: InvitationPending}
	assert.False(t, open.Expired(now))
	assert.True(t, open.Acceptable(now))
}

func TestValidPermission(t *testing.T) {
	assert.True(t, ValidPermission(PermissionRead))
	assert.True(t, ValidPermission(PermissionWrite))
	assert.True(t, ValidPermission(PermissionAdmin))
	assert.False(t, ValidPermission("owner"))
	assert.False(t, ValidPermission(""))
}
