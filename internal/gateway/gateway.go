// Package gateway issues every outbound call to the dbdeck API. Each
// remote operation has one typed method, grouped by domain across the
// files of this package. The gateway attaches the session's bearer token
// to every request and applies the 401 policy: purge the session, fire
// the login-boundary hook, then re-signal the failure to the caller.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nkovachev/dbdeck/internal/session"
)

const defaultTimeout = 30 * time.Second

// Client talks to the dbdeck API.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Store

	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithUnauthorizedHook registers the login-boundary callback. It fires
// once per call that comes back 401, after the session purge.
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New creates a Client against baseURL using sess as its session context.
func New(baseURL string, sess *session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		session: sess,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session store this client mutates.
func (c *Client) Session() *session.Store {
	return c.session
}

// Every response wraps its payload in a data envelope; errors arrive as
// {"error": {"code": ..., "message": ...}}.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do issues one request and decodes the data payload into out (out may
// be nil when the payload is not needed). Requests proceed without an
// Authorization header when no token is set; the server decides.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.session.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var env errorEnvelope
		if jsonErr := json.Unmarshal(raw, &env); jsonErr == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return c.afterFailure(apiErr)
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding response envelope: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding response payload: %w", err)
	}
	return nil
}

// afterFailure is the response middleware applied to every failed call.
// A 401 clears the session (memory and durable storage) and fires the
// login-boundary hook exactly once; the error is then re-signaled, not
// swallowed. Every other status passes through untouched.
func (c *Client) afterFailure(apiErr *APIError) error {
	if apiErr.Status == http.StatusUnauthorized {
		if err := c.session.Clear(); err != nil {
			slog.Warn("clearing session after auth failure", "error", err)
		}
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	}
	return apiErr
}
