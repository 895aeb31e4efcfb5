// Package auth verifies bearer credentials and produces the request Principal.
package auth

import (
	"context"
	"strings"

	"api-go-template/internal/apperr"
)

// DefaultRole is assigned when a credential carries no role.
const DefaultRole = "user"

// RoleAdmin is the role allowed on administrative endpoints.
const RoleAdmin = "admin"

// Principal is the authenticated identity of one request.
type Principal struct {
	ID     string         `json:"id"`
	Email  string         `json:"email"`
	Role   string         `json:"role"`
	Claims map[string]any `json:"claims,omitempty"`
}

// HasRole reports whether the principal's role is one of roles.
func (p *Principal) HasRole(roles ...string) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// Verifier resolves a bearer token to a Principal.
// Every failure wraps apperr.ErrInvalidCredentials.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (*Principal, error)

// Verify implements Verifier.
func (f VerifierFunc) Verify(ctx context.Context, token string) (*Principal, error) {
	return f(ctx, token)
}

const bearerPrefix = "Bearer "

// BearerToken extracts the token from an Authorization header value.
// The header must look like "Bearer <token>".
func BearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", apperr.ErrMissingCredentials
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", apperr.ErrMissingCredentials
	}
	return token, nil
}

// Authenticate extracts and verifies the credential in header.
func Authenticate(ctx context.Context, v Verifier, header string) (*Principal, error) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, err
	}
	p, err := v.Verify(ctx, token)
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrInvalidCredentials)
	}
	if p == nil {
		return nil, apperr.ErrInvalidCredentials
	}
	if p.Role == "" {
		p.Role = DefaultRole
	}
	return p, nil
}

// Authorize checks that p exists and holds one of roles.
// An empty role set admits any authenticated principal.
func Authorize(p *Principal, roles ...string) error {
	if p == nil {
		return apperr.ErrMissingCredentials
	}
	if len(roles) == 0 || p.HasRole(roles...) {
		return nil
	}
	return apperr.ErrForbidden
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
