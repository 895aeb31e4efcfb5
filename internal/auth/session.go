package auth

import (
	"context"
	"errors"

	"api-go-template/internal/apperr"
)

// SessionUser is the user record an external auth service resolves a token to.
type SessionUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// UserFetcher resolves an access token through an external auth service.
type UserFetcher interface {
	GetUser(ctx context.Context, token string) (*SessionUser, error)
}

// SessionVerifier delegates verification to an external auth service.
// Service failures and unknown sessions both surface as invalid credentials;
// no retry is attempted.
type SessionVerifier struct {
	users UserFetcher
}

// NewSessionVerifier creates a verifier backed by users.
func NewSessionVerifier(users UserFetcher) *SessionVerifier {
	return &SessionVerifier{users: users}
}

// Verify implements Verifier.
func (v *SessionVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	u, err := v.users.GetUser(ctx, token)
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrInvalidCredentials)
	}
	if u == nil || u.ID == "" {
		return nil, apperr.Mark(errors.New("session: no user for token"), apperr.ErrInvalidCredentials)
	}

	return u.Principal(), nil
}

// Principal converts u into a Principal. user_metadata is copied into Claims.
func (u *SessionUser) Principal() *Principal {
	claims := make(map[string]any, len(u.UserMetadata))
	for k, val := range u.UserMetadata {
		claims[k] = val
	}
	return &Principal{
		ID:     u.ID,
		Email:  u.Email,
		Role:   sessionRole(u),
		Claims: claims,
	}
}

// sessionRole reads app_metadata only. Users can rewrite their own
// user_metadata, so a role found there is ignored.
func sessionRole(u *SessionUser) string {
	if r, ok := u.AppMetadata["role"].(string); ok && r != "" {
		return r
	}
	return DefaultRole
}
