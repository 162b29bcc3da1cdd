package gateway_test

// Full-contract tests: the client against the in-process fake API,
// driving every domain the way the UI would.

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nkovachev/dbdeck/internal/apitest"
	"github.com/nkovachev/dbdeck/internal/gateway"
	"github.com/nkovachev/dbdeck/internal/session"
	"github.com/nkovachev/dbdeck/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startAPI(t *testing.T) *apitest.Server {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	return srv
}

// newUser registers a fresh account and returns a logged-in client.
func newUser(t *testing.T, srv *apitest.Server, email string) *gateway.Client {
	t.Helper()
	c := gateway.New(srv.URL(), session.NewStore(session.NewMemoryStorage()))
	_, err := c.Register(context.Background(), gateway.Credentials{Email: email, Password: "s3cret"})
	require.NoError(t, err)
	return c
}

func newConnection(t *testing.T, c *gateway.Client) *models.DatabaseConnection {
	t.Helper()
	conn, err := c.CreateConnection(context.Background(), gateway.ConnectionRequest{
		Name:     "orders-prod",
		Type:     models.EnginePostgres,
		Host:     "db.internal",
		Port:     5432,
		Database: "orders",
		Username: "app",
		Password: "hunter2",
	})
	require.NoError(t, err)
	return conn
}

// --- auth ---

func TestLogin_EstablishesSession(t *testing.T) {
	srv := startAPI(t)
	ctx := context.Background()
	newUser(t, srv, "alice@example.com")

	c := gateway.New(srv.URL(), session.NewStore(session.NewMemoryStorage()))
	resp, err := c.Login(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice@example.com", resp.User.Email)

	require.True(t, c.Session().Authenticated())
	assert.Equal(t, resp.Token, c.Session().Token())

	// Subsequent call carries the stored token.
	profile, err := c.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, profile.ID)
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := startAPI(t)
	newUser(t, srv, "alice@example.com")

	c := gateway.New(srv.URL(), session.NewStore(session.NewMemoryStorage()))
	_, err := c.Login(context.Background(), "alice@example.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrUnauthorized)
	assert.False(t, c.Session().Authenticated())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	srv := startAPI(t)
	newUser(t, srv, "alice@example.com")

	c := gateway.New(srv.URL(), session.NewStore(session.NewMemoryStorage()))
	_, err := c.Register(context.Background(), gateway.Credentials{Email: "alice@example.com", Password: "x"})
	require.Error(t, err)

	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apitest.CodeEmailTaken, apiErr.Code)
}

func TestLogout_DropsSession(t *testing.T) {
	srv := startAPI(t)
	c := newUser(t, srv, "alice@example.com")

	require.NoError(t, c.Logout())
	assert.False(t, c.Session().Authenticated())

	_, err := c.Profile(context.Background())
	assert.ErrorIs(t, err, gateway.ErrUnauthorized)
}

func TestExpiredToken_PurgesSessionOnce(t *testing.T) {
	srv := startAPI(t)
	ctx := context.Background()

	st := session.NewStore(session.NewMemoryStorage())
	var hookCalls int
	c := gateway.New(srv.URL(), st, gateway.WithUnauthorizedHook(func() { hookCalls++ }))
	resp, err := c.Register(ctx, gateway.Credentials{Email: "alice@example.com", Password: "s3cret"})
	require.NoError(t, err)

	srv.Store().RevokeToken(resp.Token)

	_, err = c.Connections(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrUnauthorized)
	assert.False(t, st.Authenticated())
	assert.Equal(t, 1, hookCalls)
}

// --- database connections ---

func TestConnections_Lifecycle(t *testing.T) {
	srv := startAPI(t)
	ctx := context.Background()
	c := newUser(t, srv, "alice@example.com")

	require.NoError(t, c.TestConnection(ctx, gateway.ConnectionRequest{
		Name: "probe", Type: models.EngineMySQL, Host: "h", Port: 3306, Database: "d",
	}))

	conn := newConnection(t, c)
	assert.Equal(t, "active", conn.Status)

	list, err := c.Connections(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, conn.ID, list[0].ID)

	info, err := c.DatabaseInfo(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnginePostgres, info.Type)
	assert.NotEmpty(t, info.Collections)

	require.NoError(t, c.DeleteConnection(ctx, conn.ID))
	list, err = c.Connections(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConnections_IsolatedPerUser(t *testing.T) {
	srv := startAPI(t)
	ctx := context.Background()
	alice := newUser(t, srv, "alice@example.com")
	bob := newUser(t, srv, "bob@example.com")

	conn := newConnection(t, alice)

	list, err := bob.Connections(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = bob.DeleteConnection(ctx, conn.ID)
	require.Error(t, err)
	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Status)
}

func TestTestConnection_RejectsUnknownEngine(t *testing.T) {
	srv := startAPI(t)
	c := newUser(t, srv, "alice@example.com")

	err := c.TestConnection(context.Background(), gateway.ConnectionRequest{
		Name: "probe", Type: "oracle", Host: "h", Port: 1521, Database: "d",
	})
	require.Error(t, err)
	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apitest.CodeValidation, apiErr.Code)
}

// --- API management ---

func TestAPIKeys_Lifecycle(t *testing.T) {
	srv := startAPI(t)
	ctx := context.Background()
	c := newUser(t, srv, "alice@example.com")
	conn := newConnection(t, c)

	key, err := c.CreateAPIKey(ctx, gateway.APIKeyRequest{DatabaseID: conn.ID, Name: "ci"})
	require.NoError(t, err)
	assert.True(t, key.IsActive)
	assert.NotEmpty(t, key.Key)

	toggled, err := c.ToggleAPIKey(ctx, key.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	toggled, err = c.ToggleAPIKey(ctx, key.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	require.NoError(t, c.DeleteAPIKey(ctx, key.ID))
	keys, err := c.APIKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestEndpoints_FilterByDatabase(t *testing.T) {
	srv := startAPI(t)
	ctx := context.Background()
	c := newUser(t, srv, "alice@example.com")
	first := newConnection(t, c)
	second, err := c.CreateConnection(ctx, gateway.ConnectionRequest{
		Name: "events", Type: models.EngineMongoDB, Host: "h", Port: 27017, Database: "events",
	})
	require.NoError(t, err)

	_, err = c.CreateEndpoint(ctx, gateway.EndpointRequest{
		DatabaseID: first.ID, Collection: "orders", Path: "/orders", Method: "GET",
	})
	require.NoError(t, err)
	_, err = c.CreateEndpoint(ctx, gateway.EndpointRequest{
		DatabaseID: second.ID, Collection: "events", Path: "/events", Method: "GET",
	})
	require.NoError(t, err)

	all, err := c.Endpoints(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := c.Endpoints(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "orders", filtered[0].Collection)
}

func TestLogs_ListAndClear(t *testing.T) {
	srv := startAPI(t)
	ctx := context.Background()
	c := newUser(t, srv, "alice@example.com")

	owner := c.Session().Current().User.ID
	srv.Store().AppendLog(owner, models.APILog{
		Method: "GET", Path: "/orders", StatusCode: 200, ResponseTime: 12,
	})

	logs, err := c.Logs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "/orders", logs[0].Path)

	require.NoError(t, c.ClearLogs(ctx))
	logs, err = c.Logs(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

// --- sharing ---

func TestInvitation_CreateAndList(t *testing.T) {
	srv := startAPI(t)
	ctx := context.Background()
	alice := newUser(t, srv, "alice@example.com")
	conn := newConnection(t, alice)

	created, err := alice.CreateInvitation(ctx, gateway.InvitationRequest{
		DatabaseID:      conn.ID,
		InviteeEmail:    "bob@example.com",
		PermissionLevel: models.PermissionRead,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, created.Invitation.Status)
	assert.NotEmpty(t, created.Invitation.Token)
	assert.Contains(t, created.InvitationLink, created.Invitation.Token)

	list, err := alice.DatabaseInvitations(ctx, conn.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.InvitationPending, list[0].Status)
	assert.Equal(t, "bob@example.com", list[0].InviteeEmail)
}

func TestInvitation_AcceptGrantsAccess(t *testing.T) {
	srv := startAPI(t)
	ctx := context.Background()
	alice := newUser(t, srv, "alice@example.com")
	bob := newUser(t, srv, "bob@example.com")
	conn := newConnection(t, alice)

	created, err := alice.CreateInvitation(ctx, gateway.InvitationRequest{
		DatabaseID:      conn.ID,
		InviteeEmail:    "bob@example.com",
		PermissionLevel: models.PermissionWrite,
	})
	require.NoError(t, err)

	// Bob can inspect the invitation before accepting.
	inv, err := bob.Invitation(ctx, created.Invitation.Token)
	require.NoError(t, err)
	assert.Equal(t, conn.ID, inv.DatabaseID)

	pending, err := bob.PendingInvitations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	grant, err := bob.AcceptInvitation(ctx, created.Invitation.Token)
	require.NoError(t, err)
	assert.Equal(t, conn.ID, grant.DatabaseID)
	assert.Equal(t, models.PermissionWrite, grant.PermissionLevel)

	// Bob sees the database as shared with him.
	shared, err := bob.SharedDatabases(ctx)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, conn.ID, shared[0].DatabaseID)

	// Alice sees exactly one grant for Bob.
	access, err := alice.DatabaseAccess(ctx, conn.ID)
	require.NoError(t, err)
	require.Len(t, access, 1)
	require.NotNil(t, access[0].User)
	assert.Equal(t, "bob@example.com", access[0].User.Email)

	// The invitation record is now terminal.
	list, err := alice.DatabaseInvitations(ctx, conn.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.InvitationAccepted, list[0].Status)
}

func TestInvitation_AcceptUnknownToken(t *testing.T) {
	srv := startAPI(t)
	bob := newUser(t, srv, "bob@example.com")

	_, err := bob.AcceptInvitation(context.Background(), "no-such-token")
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestInvitation_AcceptTwiceFails(t *testing.T) {
	srv := startAPI(t)
	ctx := context.Background()
	alice := newUser(t, srv, "alice@example.com")
	bob := newUser(t, srv, "bob@example.com")
	conn := newConnection(t, alice)

	created, err := alice.CreateInvitation(ctx, gateway.InvitationRequest{
		DatabaseID: conn.ID, InviteeEmail: "bob@example.com", PermissionLevel: models.PermissionRead,
	})
	require.NoError(t, err)

	_, err = bob.AcceptInvitation(ctx, created.Invitation.Token)
	require.NoError(t, err)

	_, err = bob.AcceptInvitation(ctx, created.Invitation.Token)
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrNotFound)

	// Still exactly one grant.
	access, err := alice.DatabaseAccess(ctx, conn.ID)
	require.NoError(t, err)
	assert.Len(t, access, 1)
}

func TestInvitation_AcceptByWrongUser(t *testing.T) {
	srv := startAPI(t)
	ctx := context.Background()
	alice := newUser(t, srv, "alice@example.com")
	mallory := newUser(t, srv, "mallory@example.com")
	conn := newConnection(t, alice)

	created, err := alice.CreateInvitation(ctx, gateway.InvitationRequest{
		DatabaseID: conn.ID, InviteeEmail: "bob@example.com", PermissionLevel: models.PermissionRead,
	})
	require.NoError(t, err)

	_, err = mallory.AcceptInvitation(ctx, created.Invitation.Token)
	require.Error(t, err)
	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Status)

	access, err := alice.DatabaseAccess(ctx, conn.ID)
	require.NoError(t, err)
	assert.Empty(t, access)
}

func TestInvitation_RevokeTwiceFails(t *testing.T) {
	srv := startAPI(t)
	ctx := context.Background()
	alice := newUser(t, srv, "alice@example.com")
	conn := newConnection(t, alice)

	created, err := alice.CreateInvitation(ctx, gateway.InvitationRequest{
		DatabaseID: conn.ID, InviteeEmail: "bob@example.com", PermissionLevel: models.PermissionRead,
	})
	require.NoError(t, err)

	require.NoError(t, alice.RevokeInvitation(ctx, created.Invitation.ID))

	list, err := alice.DatabaseInvitations(ctx, conn.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.InvitationRevoked, list[0].Status)

	err = alice.RevokeInvitation(ctx, created.Invitation.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrNotFound)

	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apitest.CodeInvitationResolved, apiErr.Code)
}

func TestInvitation_RevokedTokenCannotBeAccepted(t *testing.T) {
	srv := startAPI(t)
	ctx := context.Background()
	alice := newUser(t, srv, "alice@example.com")
	bob := newUser(t, srv, "bob@example.com")
	conn := newConnection(t, alice)

	created, err := alice.CreateInvitation(ctx, gateway.InvitationRequest{
		DatabaseID: conn.ID, InviteeEmail: "bob@example.com", PermissionLevel: models.PermissionRead,
	})
	require.NoError(t, err)
	require.NoError(t, alice.RevokeInvitation(ctx, created.Invitation.ID))

	_, err = bob.AcceptInvitation(ctx, created.Invitation.Token)
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestAccess_RevokeAndLeaveAreSymmetric(t *testing.T) {
	srv := startAPI(t)
	ctx := context.Background()
	alice := newUser(t, srv, "alice@example.com")
	bob := newUser(t, srv, "bob@example.com")
	conn := newConnection(t, alice)

	accept := func() *models.AccessGrant {
		created, err := alice.CreateInvitation(ctx, gateway.InvitationRequest{
			DatabaseID: conn.ID, InviteeEmail: "bob@example.com", PermissionLevel: models.PermissionRead,
		})
		require.NoError(t, err)
		grant, err := bob.AcceptInvitation(ctx, created.Invitation.Token)
		require.NoError(t, err)
		return grant
	}

	// Owner-side revocation.
	grant := accept()
	require.NoError(t, alice.RevokeAccess(ctx, conn.ID, grant.UserID))
	access, err := alice.DatabaseAccess(ctx, conn.ID)
	require.NoError(t, err)
	assert.Empty(t, access)
	shared, err := bob.SharedDatabases(ctx)
	require.NoError(t, err)
	assert.Empty(t, shared)

	// Grantee-side leave.
	accept()
	require.NoError(t, bob.LeaveSharedDatabase(ctx, conn.ID))
	access, err = alice.DatabaseAccess(ctx, conn.ID)
	require.NoError(t, err)
	assert.Empty(t, access)
	shared, err = bob.SharedDatabases(ctx)
	require.NoError(t, err)
	assert.Empty(t, shared)
}

func TestAccess_LeaveWithoutGrant(t *testing.T) {
	srv := startAPI(t)
	bob := newUser(t, srv, "bob@example.com")

	err := bob.LeaveSharedDatabase(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}
