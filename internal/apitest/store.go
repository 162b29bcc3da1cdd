package apitest

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nkovachev/dbdeck/pkg/models"
)

const invitationTTL = 7 * 24 * time.Hour

// Store is the fake API's in-memory state. All access goes through its
// methods; values returned are copies.
type Store struct {
	mu sync.RWMutex

	usersByID     map[uuid.UUID]models.User
	passwords     map[uuid.UUID]string
	userIDByEmail map[string]uuid.UUID
	userIDByToken map[string]uuid.UUID

	connections map[uuid.UUID]models.DatabaseConnection
	keys        map[uuid.UUID]models.APIKey
	endpoints   map[uuid.UUID]models.APIEndpoint
	logsByUser  map[uuid.UUID][]models.APILog

	invitations         map[uuid.UUID]models.Invitation
	invitationIDByToken map[string]uuid.UUID
	grants              map[uuid.UUID]models.AccessGrant
}

func NewStore() *Store {
	return &Store{
		usersByID:           make(map[uuid.UUID]models.User),
		passwords:           make(map[uuid.UUID]string),
		userIDByEmail:       make(map[string]uuid.UUID),
		userIDByToken:       make(map[string]uuid.UUID),
		connections:         make(map[uuid.UUID]models.DatabaseConnection),
		keys:                make(map[uuid.UUID]models.APIKey),
		endpoints:           make(map[uuid.UUID]models.APIEndpoint),
		logsByUser:          make(map[uuid.UUID][]models.APILog),
		invitations:         make(map[uuid.UUID]models.Invitation),
		invitationIDByToken: make(map[string]uuid.UUID),
		grants:              make(map[uuid.UUID]models.AccessGrant),
	}
}

func opaqueToken(prefix string) string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return prefix + hex.EncodeToString(buf)
}

// --- users and tokens ---

func (s *Store) CreateUser(email, password string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.userIDByEmail[email]; exists {
		return models.User{}, false
	}
	now := time.Now().UTC()
	u := models.User{ID: uuid.New(), Email: email, CreatedAt: now, UpdatedAt: now}
	s.usersByID[u.ID] = u
	s.passwords[u.ID] = password
	s.userIDByEmail[email] = u.ID
	return u, true
}

func (s *Store) Authenticate(email, password string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userIDByEmail[email]
	if !ok || s.passwords[id] != password {
		return models.User{}, false
	}
	return s.usersByID[id], true
}

func (s *Store) IssueToken(userID uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := opaqueToken("tok_")
	s.userIDByToken[tok] = userID
	return tok
}

// RevokeToken invalidates a token, so the next call carrying it gets a
// 401. Tests use this to simulate server-side session expiry.
func (s *Store) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.userIDByToken, token)
}

func (s *Store) UserByToken(token string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userIDByToken[token]
	if !ok {
		return models.User{}, false
	}
	return s.usersByID[id], true
}

func (s *Store) userCopy(id uuid.UUID) *models.User {
	if u, ok := s.usersByID[id]; ok {
		return &u
	}
	return nil
}

// --- connections ---

func (s *Store) CreateConnection(owner uuid.UUID, conn models.DatabaseConnection) models.DatabaseConnection {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	conn.ID = uuid.New()
	conn.UserID = owner
	conn.Status = "active"
	conn.CreatedAt = now
	conn.UpdatedAt = now
	s.connections[conn.ID] = conn
	return conn
}

func (s *Store) Connection(id uuid.UUID) (models.DatabaseConnection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.connections[id]
	return c, ok
}

func (s *Store) ConnectionsByOwner(owner uuid.UUID) []models.DatabaseConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.DatabaseConnection{}
	for _, c := range s.connections {
		if c.UserID == owner {
			out = append(out, c)
		}
	}
	return out
}

// DeleteConnection removes the connection and everything scoped to it.
func (s *Store) DeleteConnection(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.connections, id)
	for kid, k := range s.keys {
		if k.DatabaseID == id {
			delete(s.keys, kid)
		}
	}
	for eid, e := range s.endpoints {
		if e.DatabaseID == id {
			delete(s.endpoints, eid)
		}
	}
	for iid, inv := range s.invitations {
		if inv.DatabaseID == id {
			delete(s.invitationIDByToken, inv.Token)
			delete(s.invitations, iid)
		}
	}
	for gid, g := range s.grants {
		if g.DatabaseID == id {
			delete(s.grants, gid)
		}
	}
}

// --- API keys and endpoints ---

func (s *Store) CreateKey(owner, databaseID uuid.UUID, name string) models.APIKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	k := models.APIKey{
		ID:         uuid.New(),
		UserID:     owner,
		DatabaseID: databaseID,
		Name:       name,
		Key:        opaqueToken("dbk_"),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.keys[k.ID] = k
	return k
}

func (s *Store) Key(id uuid.UUID) (models.APIKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[id]
	return k, ok
}

func (s *Store) KeysByOwner(owner uuid.UUID) []models.APIKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.APIKey{}
	for _, k := range s.keys {
		if k.UserID == owner {
			out = append(out, k)
		}
	}
	return out
}

func (s *Store) ToggleKey(id uuid.UUID) (models.APIKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[id]
	if !ok {
		return models.APIKey{}, false
	}
	k.IsActive = !k.IsActive
	k.UpdatedAt = time.Now().UTC()
	s.keys[id] = k
	return k, true
}

func (s *Store) DeleteKey(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, id)
}

func (s *Store) CreateEndpoint(e models.APIEndpoint) models.APIEndpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	e.ID = uuid.New()
	e.IsActive = true
	e.CreatedAt = now
	e.UpdatedAt = now
	s.endpoints[e.ID] = e
	return e
}

func (s *Store) Endpoint(id uuid.UUID) (models.APIEndpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.endpoints[id]
	return e, ok
}

// EndpointsForOwner lists endpoints on the owner's databases, optionally
// narrowed to one database. filter == uuid.Nil means no filter.
func (s *Store) EndpointsForOwner(owner, filter uuid.UUID) []models.APIEndpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.APIEndpoint{}
	for _, e := range s.endpoints {
		conn, ok := s.connections[e.DatabaseID]
		if !ok || conn.UserID != owner {
			continue
		}
		if filter != uuid.Nil && e.DatabaseID != filter {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (s *Store) ToggleEndpoint(id uuid.UUID) (models.APIEndpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.endpoints[id]
	if !ok {
		return models.APIEndpoint{}, false
	}
	e.IsActive = !e.IsActive
	e.UpdatedAt = time.Now().UTC()
	s.endpoints[id] = e
	return e, true
}

func (s *Store) DeleteEndpoint(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.endpoints, id)
}

// --- request logs ---

// AppendLog records a served request for a user's endpoint. Tests seed
// logs with it; the fake API serves no generated endpoints itself.
func (s *Store) AppendLog(owner uuid.UUID, entry models.APILog) models.APILog {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = uuid.New()
	entry.CreatedAt = time.Now().UTC()
	s.logsByUser[owner] = append(s.logsByUser[owner], entry)
	return entry
}

func (s *Store) LogsByOwner(owner uuid.UUID) []models.APILog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.APILog{}
	out = append(out, s.logsByUser[owner]...)
	return out
}

func (s *Store) ClearLogs(owner uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logsByUser, owner)
}

// --- invitations and grants ---

func (s *Store) CreateInvitation(databaseID, inviter uuid.UUID, inviteeEmail, level string) (models.Invitation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, inv := range s.invitations {
		if inv.DatabaseID == databaseID && inv.InviteeEmail == inviteeEmail &&
			inv.Status == models.InvitationPending && now.Before(inv.ExpiresAt) {
			return models.Invitation{}, false
		}
	}

	inv := models.Invitation{
		ID:              uuid.New(),
		DatabaseID:      databaseID,
		InviterID:       inviter,
		InviteeEmail:    inviteeEmail,
		Token:           opaqueToken(""),
		PermissionLevel: level,
		Status:          models.InvitationPending,
		ExpiresAt:       now.Add(invitationTTL),
		CreatedAt:       now,
	}
	s.invitations[inv.ID] = inv
	s.invitationIDByToken[inv.Token] = inv.ID
	return inv, true
}

func (s *Store) Invitation(id uuid.UUID) (models.Invitation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invitations[id]
	return inv, ok
}

func (s *Store) InvitationByToken(token string) (models.Invitation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.invitationIDByToken[token]
	if !ok {
		return models.Invitation{}, false
	}
	return s.invitations[id], true
}

func (s *Store) InvitationsByDatabase(databaseID uuid.UUID) []models.Invitation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Invitation{}
	for _, inv := range s.invitations {
		if inv.DatabaseID == databaseID {
			out = append(out, inv)
		}
	}
	return out
}

func (s *Store) PendingInvitationsFor(email string, now time.Time) []models.Invitation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Invitation{}
	for _, inv := range s.invitations {
		if inv.InviteeEmail == email && inv.Status == models.InvitationPending && now.Before(inv.ExpiresAt) {
			withRefs := inv
			withRefs.Database = s.connectionCopy(inv.DatabaseID)
			withRefs.Inviter = s.userCopy(inv.InviterID)
			out = append(out, withRefs)
		}
	}
	return out
}

// ResolveInvitation applies one lifecycle transition. It fails when the
// invitation's current status forbids the move.
func (s *Store) ResolveInvitation(id uuid.UUID, next models.InvitationStatus, invitee *uuid.UUID) (models.Invitation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitations[id]
	if !ok || !inv.Status.CanTransition(next) {
		return models.Invitation{}, false
	}
	inv.Status = next
	if next == models.InvitationAccepted {
		now := time.Now().UTC()
		inv.AcceptedAt = &now
		inv.InviteeID = invitee
	}
	s.invitations[id] = inv
	return inv, true
}

func (s *Store) CreateGrant(databaseID, userID, grantedBy uuid.UUID, level string) (models.AccessGrant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.grants {
		if g.DatabaseID == databaseID && g.UserID == userID {
			return models.AccessGrant{}, false
		}
	}
	g := models.AccessGrant{
		ID:              uuid.New(),
		DatabaseID:      databaseID,
		UserID:          userID,
		PermissionLevel: level,
		GrantedBy:       grantedBy,
		CreatedAt:       time.Now().UTC(),
	}
	s.grants[g.ID] = g
	return g, true
}

func (s *Store) GrantsByUser(userID uuid.UUID) []models.AccessGrant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.AccessGrant{}
	for _, g := range s.grants {
		if g.UserID == userID {
			withRefs := g
			withRefs.Database = s.connectionCopy(g.DatabaseID)
			withRefs.Grantor = s.userCopy(g.GrantedBy)
			out = append(out, withRefs)
		}
	}
	return out
}

func (s *Store) GrantsByDatabase(databaseID uuid.UUID) []models.AccessGrant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.AccessGrant{}
	for _, g := range s.grants {
		if g.DatabaseID == databaseID {
			withRefs := g
			withRefs.User = s.userCopy(g.UserID)
			withRefs.Grantor = s.userCopy(g.GrantedBy)
			out = append(out, withRefs)
		}
	}
	return out
}

func (s *Store) DeleteGrant(databaseID, userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, g := range s.grants {
		if g.DatabaseID == databaseID && g.UserID == userID {
			delete(s.grants, id)
			return true
		}
	}
	return false
}

func (s *Store) connectionCopy(id uuid.UUID) *models.DatabaseConnection {
	if c, ok := s.connections[id]; ok {
		return &c
	}
	return nil
}
