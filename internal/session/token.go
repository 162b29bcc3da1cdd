package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenUsable reports whether a bearer token can still establish an
// authenticated session at now. Tokens are opaque to the client except
// that a JWT carrying an exp claim in the past is known-dead and not
// worth restoring; anything that is not a JWT passes through untouched.
func tokenUsable(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return true
	}
	return claims.ExpiresAt == nil || now.Before(claims.ExpiresAt.Time)
}
