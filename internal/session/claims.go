package session

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Role is the access level embedded in the session token.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// ParseRole maps a raw role claim to a Role. Anything that is not a known
// role (including the empty string) defaults to customer - an absent role
// claim is a normal case, not an error.
func ParseRole(raw string) Role {
	if Role(raw) == RoleAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

// Claims are the attributes the client derives from a session token.
type Claims struct {
	UserID      string
	DisplayName string
	Role        Role
	// Expiry is zero when the token carries no exp claim.
	Expiry time.Time
}

// tokenClaims is the JWT payload shape. The role claim is optional.
type tokenClaims struct {
	DisplayName string `json:"name"`
	Role        string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// DecodeClaims extracts Claims from a bearer token without verifying the
// signature - the client holds no signing key; the server is the verifier.
//
// Expired tokens decode successfully. Validity is the Store's concern
// (see Store.Valid), not the parser's. Never panics.
func DecodeClaims(token string) (Claims, error) {
	parsed := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, parsed); err != nil {
		return Claims{}, fmt.Errorf("decode session token: %w", err)
	}

	claims := Claims{
		UserID:      parsed.Subject,
		DisplayName: parsed.DisplayName,
		Role:        ParseRole(parsed.Role),
	}
	if parsed.ExpiresAt != nil {
		claims.Expiry = parsed.ExpiresAt.Time
	}
	return claims, nil
}
