// Package apitest runs an in-process fake of the dbdeck API for tests.
// It speaks the real wire contract end to end: bearer auth, the data
// envelope, and the full invitation lifecycle with its edge cases, so
// client tests exercise exactly the paths they would against production.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nkovachev/dbdeck/pkg/models"
)

type ctxKey int

const userKey ctxKey = 0

// Server is one running fake API instance.
type Server struct {
	store *Store
	http  *httptest.Server
}

// NewServer starts the fake API. Callers must Close it.
func NewServer() *Server {
	s := &Server{store: NewStore()}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/auth/profile", s.profile)

			r.Post("/database/test", s.testConnection)
			r.Post("/database", s.createConnection)
			r.Get("/database", s.listConnections)
			r.Get("/database/{id}/info", s.databaseInfo)
			r.Delete("/database/{id}", s.deleteConnection)

			r.Post("/api-management/keys", s.createKey)
			r.Get("/api-management/keys", s.listKeys)
			r.Put("/api-management/keys/{id}/toggle", s.toggleKey)
			r.Delete("/api-management/keys/{id}", s.deleteKey)

			r.Post("/api-management/endpoints", s.createEndpoint)
			r.Get("/api-management/endpoints", s.listEndpoints)
			r.Put("/api-management/endpoints/{id}/toggle", s.toggleEndpoint)
			r.Delete("/api-management/endpoints/{id}", s.deleteEndpoint)

			r.Get("/api-management/logs", s.listLogs)
			r.Delete("/api-management/logs", s.clearLogs)

			r.Post("/sharing/invitations", s.createInvitation)
			r.Get("/sharing/invitations/database/{id}", s.databaseInvitations)
			r.Get("/sharing/invitations/{token}", s.getInvitation)
			r.Post("/sharing/invitations/{token}/accept", s.acceptInvitation)
			r.Get("/sharing/shared-databases", s.sharedDatabases)
			r.Get("/sharing/pending-invitations", s.pendingInvitations)
			r.Get("/sharing/database-access/{id}", s.databaseAccess)
			r.Delete("/sharing/access", s.revokeAccess)
			r.Delete("/sharing/invitations/{id}", s.revokeInvitation)
			r.Delete("/sharing/leave", s.leave)
		})
	})

	s.http = httptest.NewServer(r)
	return s
}

// URL is the base URL clients should be pointed at, /api included.
func (s *Server) URL() string { return s.http.URL + "/api" }

// Store exposes the backing state for seeding and assertions.
func (s *Server) Store() *Store { return s.store }

func (s *Server) Close() { s.http.Close() }

// authenticate resolves the bearer token to a user or answers 401.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			respondError(w, http.StatusUnauthorized, CodeInvalidToken, "Missing or invalid Authorization header")
			return
		}
		user, ok := s.store.UserByToken(strings.TrimSpace(parts[1]))
		if !ok {
			respondError(w, http.StatusUnauthorized, CodeInvalidToken, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func currentUser(r *http.Request) models.User {
	return r.Context().Value(userKey).(models.User)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidation, "Invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidation, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// ownedConnection loads the connection and checks the caller owns it.
func (s *Server) ownedConnection(w http.ResponseWriter, r *http.Request, id uuid.UUID) (models.DatabaseConnection, bool) {
	conn, ok := s.store.Connection(id)
	if !ok || conn.UserID != currentUser(r).ID {
		respondError(w, http.StatusForbidden, CodeForbidden, "Database not found or access denied")
		return models.DatabaseConnection{}, false
	}
	return conn, true
}

// --- auth ---

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authPayload struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, CodeValidation, "Email and password are required")
		return
	}
	user, ok := s.store.CreateUser(req.Email, req.Password)
	if !ok {
		respondError(w, http.StatusConflict, CodeEmailTaken, "Email already registered")
		return
	}
	respondCreated(w, authPayload{Token: s.store.IssueToken(user.ID), User: user})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	user, ok := s.store.Authenticate(req.Email, req.Password)
	if !ok {
		respondError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password")
		return
	}
	respond(w, authPayload{Token: s.store.IssueToken(user.ID), User: user})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	respond(w, currentUser(r))
}

// --- database connections ---

type connectionRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (req connectionRequest) valid() bool {
	return req.Name != "" && models.ValidEngine(req.Type) && req.Host != "" && req.Port > 0 && req.Database != ""
}

func (s *Server) testConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.valid() {
		respondError(w, http.StatusBadRequest, CodeValidation, "Invalid connection settings")
		return
	}
	respond(w, map[string]string{"status": "ok"})
}

func (s *Server) createConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.valid() {
		respondError(w, http.StatusBadRequest, CodeValidation, "Invalid connection settings")
		return
	}
	conn := s.store.CreateConnection(currentUser(r).ID, models.DatabaseConnection{
		Name:     req.Name,
		Type:     req.Type,
		Host:     req.Host,
		Port:     req.Port,
		Database: req.Database,
		Username: req.Username,
	})
	respondCreated(w, conn)
}

func (s *Server) listConnections(w http.ResponseWriter, r *http.Request) {
	respond(w, s.store.ConnectionsByOwner(currentUser(r).ID))
}

func (s *Server) databaseInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	conn, ok := s.ownedConnection(w, r, id)
	if !ok {
		return
	}
	respond(w, models.DatabaseInfo{
		ID:   conn.ID,
		Name: conn.Database,
		Type: conn.Type,
		// Canned schema; the fake never dials a real database.
		Collections: []string{"users", "orders", "events"},
	})
}

func (s *Server) deleteConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, ok := s.ownedConnection(w, r, id); !ok {
		return
	}
	s.store.DeleteConnection(id)
	respond(w, map[string]string{"message": "Connection deleted"})
}

// --- API management ---

type keyRequest struct {
	DatabaseID uuid.UUID `json:"database_id"`
	Name       string    `json:"name"`
}

func (s *Server) createKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, CodeValidation, "Key name is required")
		return
	}
	if _, ok := s.ownedConnection(w, r, req.DatabaseID); !ok {
		return
	}
	respondCreated(w, s.store.CreateKey(currentUser(r).ID, req.DatabaseID, req.Name))
}

func (s *Server) listKeys(w http.ResponseWriter, r *http.Request) {
	respond(w, s.store.KeysByOwner(currentUser(r).ID))
}

func (s *Server) toggleKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	key, found := s.store.Key(id)
	if !found || key.UserID != currentUser(r).ID {
		respondError(w, http.StatusNotFound, CodeNotFound, "API key not found")
		return
	}
	key, _ = s.store.ToggleKey(id)
	respond(w, key)
}

func (s *Server) deleteKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	key, found := s.store.Key(id)
	if !found || key.UserID != currentUser(r).ID {
		respondError(w, http.StatusNotFound, CodeNotFound, "API key not found")
		return
	}
	s.store.DeleteKey(id)
	respond(w, map[string]string{"message": "API key deleted"})
}

type endpointRequest struct {
	DatabaseID uuid.UUID `json:"database_id"`
	Collection string    `json:"collection"`
	Path       string    `json:"path"`
	Method     string    `json:"method"`
}

func (s *Server) createEndpoint(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Collection == "" || req.Path == "" || req.Method == "" {
		respondError(w, http.StatusBadRequest, CodeValidation, "Collection, path and method are required")
		return
	}
	if _, ok := s.ownedConnection(w, r, req.DatabaseID); !ok {
		return
	}
	respondCreated(w, s.store.CreateEndpoint(models.APIEndpoint{
		DatabaseID: req.DatabaseID,
		Collection: req.Collection,
		Path:       req.Path,
		Method:     req.Method,
	}))
}

func (s *Server) listEndpoints(w http.ResponseWriter, r *http.Request) {
	// database_id is always present on the wire; empty means no filter.
	filter := uuid.Nil
	if v := r.URL.Query().Get("database_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, CodeValidation, "Invalid database_id")
			return
		}
		filter = id
	}
	respond(w, s.store.EndpointsForOwner(currentUser(r).ID, filter))
}

func (s *Server) toggleEndpoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ep, found := s.store.Endpoint(id)
	if !found {
		respondError(w, http.StatusNotFound, CodeNotFound, "Endpoint not found")
		return
	}
	if _, ok := s.ownedConnection(w, r, ep.DatabaseID); !ok {
		return
	}
	ep, _ = s.store.ToggleEndpoint(id)
	respond(w, ep)
}

func (s *Server) deleteEndpoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ep, found := s.store.Endpoint(id)
	if !found {
		respondError(w, http.StatusNotFound, CodeNotFound, "Endpoint not found")
		return
	}
	if _, ok := s.ownedConnection(w, r, ep.DatabaseID); !ok {
		return
	}
	s.store.DeleteEndpoint(id)
	respond(w, map[string]string{"message": "Endpoint deleted"})
}

func (s *Server) listLogs(w http.ResponseWriter, r *http.Request) {
	respond(w, s.store.LogsByOwner(currentUser(r).ID))
}

func (s *Server) clearLogs(w http.ResponseWriter, r *http.Request) {
	s.store.ClearLogs(currentUser(r).ID)
	respond(w, map[string]string{"message": "Logs cleared"})
}

// --- sharing ---

type invitationRequest struct {
	DatabaseID      uuid.UUID `json:"database_id"`
	InviteeEmail    string    `json:"invitee_email"`
	PermissionLevel string    `json:"permission_level"`
}

type invitationPayload struct {
	Invitation     models.Invitation `json:"invitation"`
	InvitationLink string            `json:"invitation_link"`
}

func (s *Server) createInvitation(w http.ResponseWriter, r *http.Request) {
	var req invitationRequest
	if !decode(w, r, &req) {
		return
	}
	if req.InviteeEmail == "" || !models.ValidPermission(req.PermissionLevel) {
		respondError(w, http.StatusBadRequest, CodeValidation, "Invitee email and a valid permission level are required")
		return
	}
	if _, ok := s.ownedConnection(w, r, req.DatabaseID); !ok {
		return
	}
	inv, ok := s.store.CreateInvitation(req.DatabaseID, currentUser(r).ID, req.InviteeEmail, req.PermissionLevel)
	if !ok {
		respondError(w, http.StatusConflict, CodeDuplicateInvite, "Invitation already sent to this email")
		return
	}
	respondCreated(w, invitationPayload{
		Invitation:     inv,
		InvitationLink: s.http.URL + "/join/" + inv.Token,
	})
}

func (s *Server) databaseInvitations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, ok := s.ownedConnection(w, r, id); !ok {
		return
	}
	respond(w, s.store.InvitationsByDatabase(id))
}

// liveInvitation resolves a token to a pending, unexpired invitation.
// Anything else is indistinguishable from absent, on purpose.
func (s *Server) liveInvitation(w http.ResponseWriter, token string) (models.Invitation, bool) {
	inv, ok := s.store.InvitationByToken(token)
	if !ok || inv.Status != models.InvitationPending || inv.Expired(time.Now()) {
		respondError(w, http.StatusNotFound, CodeNotFound, "Invalid or expired invitation")
		return models.Invitation{}, false
	}
	return inv, true
}

func (s *Server) getInvitation(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.liveInvitation(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}
	respond(w, inv)
}

func (s *Server) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.liveInvitation(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}
	user := currentUser(r)
	if inv.InviteeEmail != user.Email {
		respondError(w, http.StatusForbidden, CodeForbidden, "Invitation is addressed to a different user")
		return
	}
	grant, created := s.store.CreateGrant(inv.DatabaseID, user.ID, inv.InviterID, inv.PermissionLevel)
	if !created {
		respondError(w, http.StatusConflict, CodeAlreadyHasAccess, "You already have access to this database")
		return
	}
	s.store.ResolveInvitation(inv.ID, models.InvitationAccepted, &user.ID)
	respond(w, grant)
}

func (s *Server) sharedDatabases(w http.ResponseWriter, r *http.Request) {
	respond(w, s.store.GrantsByUser(currentUser(r).ID))
}

func (s *Server) pendingInvitations(w http.ResponseWriter, r *http.Request) {
	respond(w, s.store.PendingInvitationsFor(currentUser(r).Email, time.Now()))
}

func (s *Server) databaseAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, ok := s.ownedConnection(w, r, id); !ok {
		return
	}
	respond(w, s.store.GrantsByDatabase(id))
}

type revokeAccessRequest struct {
	DatabaseID uuid.UUID `json:"database_id"`
	UserID     uuid.UUID `json:"user_id"`
}

func (s *Server) revokeAccess(w http.ResponseWriter, r *http.Request) {
	var req revokeAccessRequest
	if !decode(w, r, &req) {
		return
	}
	if _, ok := s.ownedConnection(w, r, req.DatabaseID); !ok {
		return
	}
	if !s.store.DeleteGrant(req.DatabaseID, req.UserID) {
		respondError(w, http.StatusNotFound, CodeNotFound, "No access grant for this user")
		return
	}
	respond(w, map[string]string{"message": "Access revoked"})
}

func (s *Server) revokeInvitation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, found := s.store.Invitation(id)
	if !found {
		respondError(w, http.StatusNotFound, CodeNotFound, "Invitation not found")
		return
	}
	if _, ok := s.ownedConnection(w, r, inv.DatabaseID); !ok {
		return
	}
	if _, ok := s.store.ResolveInvitation(id, models.InvitationRevoked, nil); !ok {
		respondError(w, http.StatusNotFound, CodeInvitationResolved, "Invitation already resolved")
		return
	}
	respond(w, map[string]string{"message": "Invitation revoked"})
}

type leaveRequest struct {
	DatabaseID uuid.UUID `json:"database_id"`
}

func (s *Server) leave(w http.ResponseWriter, r *http.Request) {
	var req leaveRequest
	if !decode(w, r, &req) {
		return
	}
	if !s.store.DeleteGrant(req.DatabaseID, currentUser(r).ID) {
		respondError(w, http.StatusNotFound, CodeNotFound, "No access grant to give up")
		return
	}
	respond(w, map[string]string{"message": "Left shared database"})
}
