// Package auth decodes an access token into an authenticated identity: a
// stable user id plus a role. Issuance (registration, login, refresh,
// password hashing, token signing) is out of core scope — this package
// only consumes tokens the HTTP side-channel already signed.
//
// Validate(ctx, token) -> (*Identity, error), with ErrInvalidToken and
// ErrUnavailable sentinel errors distinguishing a rejected token from a
// validator that can't currently reach its signing material.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken indicates the token is definitively invalid: expired,
	// malformed, or signed with the wrong key.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable indicates validation could not be completed (e.g. the
	// validator's dependencies are not ready). No production path returns
	// this today; it is kept so callers have one place to decide fail-open
	// vs fail-closed policy, per Validator contract.
	ErrUnavailable = errors.New("auth: unavailable")
)

// Role is the authenticated identity's authorization level. Admin-only
// handlers guard on this explicitly.
type Role string

const (
	RolePlayer Role = "PLAYER"
	RoleAdmin Role = "ADMIN"
)

// Identity is the result of a successful token validation: a stable user id
// and its role. The core never stores passwords or emails itself.
type Identity struct {
	UserID string
	Role Role
}

// Validator decodes a bearer token into an Identity.
type Validator interface {
	Validate(ctx context.Context, token string) (*Identity, error)
}

type claims struct {
	UserID string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTValidator validates a self-signed HS256 access token carrying `sub`
// (user id) and `role` claims; admin-only endpoints require the decoded
// role to be ADMIN.
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator builds a validator keyed on the configured signing secret
// (the `jwt_secret` configuration option; signing itself happens outside
// the core, at the HTTP register/login/refresh side-channel).
func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret)}
}

func (v *JWTValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || c.UserID == "" {
		return nil, ErrInvalidToken
	}

	role := RolePlayer
	if Role(c.Role) == RoleAdmin {
		role = RoleAdmin
	}
	return &Identity{UserID: c.UserID, Role: role}, nil
}

// NoopValidator accepts any non-empty token verbatim as a user id with
// PLAYER role, for tests that wire in a fake identity rather than minting
// real JWTs (per NoopValidator dependency-injection pattern).
type NoopValidator struct {
	// Identities, if set, maps a token to a fixed Identity. If nil, the
	// token string itself is used as the user id.
	Identities map[string]Identity
}

func NewNoopValidator() *NoopValidator {
	return &NoopValidator{}
}

func (v *NoopValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	if v.Identities != nil {
		id, ok := v.Identities[token]
		if !ok {
			return nil, ErrInvalidToken
		}
		return &id, nil
	}
	return &Identity{UserID: token, Role: RolePlayer}, nil
}
