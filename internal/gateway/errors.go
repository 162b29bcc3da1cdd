package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors for gateway failures.
var (
	// ErrUnauthorized marks a 401: the session has already been purged
	// and the login-boundary hook fired by the time callers see it.
	ErrUnauthorized = errors.New("authentication required")
	// ErrNotFound marks a 404, which for invitation-token operations
	// means unknown, expired, or already resolved.
	ErrNotFound    = errors.New("not found or already resolved")
	ErrUnreachable = errors.New("api unreachable")
	ErrTimeout     = errors.New("api request timeout")
)

// APIError carries the server's error body for any non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status %d", e.Status)
}

// Unwrap maps well-known statuses onto sentinel errors so callers can
// branch with errors.Is while the server's message stays attached.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
