package gateway

import (
	"context"
	"net/http"

	"github.com/nkovachev/dbdeck/pkg/models"
)

// Credentials is the login/register payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by Login and Register.
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates an account and starts a session with the returned
// token, exactly as Login does.
func (c *Client) Register(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", creds, &out); err != nil {
		return nil, err
	}
	if err := c.session.Set(&out.User, out.Token); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates with email and password and stores the resulting
// session.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", Credentials{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	if err := c.session.Set(&out.User, out.Token); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout drops the session. The token is a bearer credential with no
// server-side session record, so no call is made.
func (c *Client) Logout() error {
	return c.session.Clear()
}

// Profile fetches the authenticated user's record.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
