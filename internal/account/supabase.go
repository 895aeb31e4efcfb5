package account

import (
	"context"
	"strings"

	"api-go-template/internal/adapter/external/supabase"
	"api-go-template/internal/platform/validate"
)

// Provider is the subset of the Supabase client used for accounts.
type Provider interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*supabase.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*supabase.Session, error)
}

// Supabase delegates accounts to GoTrue. Provider failures reach the caller
// as *apperr.ProviderError.
type Supabase struct {
	provider Provider
	validate *validate.Validator
}

var _ Service = (*Supabase)(nil)

// NewSupabase creates a Supabase account service.
func NewSupabase(p Provider, v *validate.Validator) *Supabase {
	return &Supabase{provider: p, validate: v}
}

// Register signs a user up. Name is stored in user_metadata.
func (s *Supabase) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return Session{}, err
	}
	var meta map[string]any
	if name := strings.TrimSpace(in.Name); name != "" {
		meta = map[string]any{"name": name}
	}
	ss, err := s.provider.SignUp(ctx, in.Email, in.Password, meta)
	if err != nil {
		return Session{}, err
	}
	return fromProvider(ss), nil
}

// Login signs a user in with email and password.
func (s *Supabase) Login(ctx context.Context, in LoginInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return Session{}, err
	}
	ss, err := s.provider.SignInWithPassword(ctx, in.Email, in.Password)
	if err != nil {
		return Session{}, err
	}
	return fromProvider(ss), nil
}

// Refresh exchanges a refresh token for a new session.
func (s *Supabase) Refresh(ctx context.Context, in RefreshInput) (Session, error) {
	if err := s.validate.Struct(in); err != nil {
		return Session{}, err
	}
	ss, err := s.provider.RefreshSession(ctx, in.RefreshToken)
	if err != nil {
		return Session{}, err
	}
	return fromProvider(ss), nil
}

func fromProvider(ss *supabase.Session) Session {
	return Session{
		AccessToken:  ss.AccessToken,
		RefreshToken: ss.RefreshToken,
		TokenType:    ss.TokenType,
		ExpiresIn:    int64(ss.ExpiresIn),
		User:         ss.User.Principal(),
	}
}
