package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"api-go-template/internal/apperr"
	"api-go-template/internal/auth"
	"api-go-template/internal/platform/validate"
)

var errBadLogin = &apperr.ProviderError{
	Status:  http.StatusBadRequest,
	Code:    "invalid_credentials",
	Message: "invalid login credentials",
}

// Local keeps accounts in the application database and issues its own JWTs.
type Local struct {
	users    UserRepository
	issuer   *auth.TokenIssuer
	validate *validate.Validator
	log      *slog.Logger
	now      func() time.Time
}

var _ Service = (*Local)(nil)

// NewLocal creates a Local account service.
func NewLocal(users UserRepository, issuer *auth.TokenIssuer, v *validate.Validator, log *slog.Logger) *Local {
	if log == nil {
		log = slog.Default()
	}
	return &Local{users: users, issuer: issuer, validate: v, log: log, now: time.Now}
}

// Register creates a user with the default role and signs them in.
func (l *Local) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := l.validate.Struct(in); err != nil {
		return Session{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}
	now := l.now().UTC()
	u, err := l.users.CreateUser(ctx, User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         auth.DefaultRole,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Session{}, apperr.Wrap(err, "create user")
	}
	l.log.Info("user registered", slog.String("user_id", u.ID))
	return l.session(u)
}

// Login checks credentials. Unknown emails and wrong passwords fail the same way.
func (l *Local) Login(ctx context.Context, in LoginInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := l.validate.Struct(in); err != nil {
		return Session{}, err
	}
	u, err := l.users.UserByEmail(ctx, in.Email)
	if err != nil {
		if isNoRows(err) {
			return Session{}, errBadLogin
		}
		return Session{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		return Session{}, errBadLogin
	}
	return l.session(u)
}

// Refresh verifies a refresh token and issues a new pair. The user is
// reloaded so role changes take effect.
func (l *Local) Refresh(ctx context.Context, in RefreshInput) (Session, error) {
	if err := l.validate.Struct(in); err != nil {
		return Session{}, err
	}
	p, err := l.issuer.RefreshVerifier().Verify(ctx, in.RefreshToken)
	if err != nil {
		return Session{}, err
	}
	u, err := l.users.UserByID(ctx, p.ID)
	if err != nil {
		if isNoRows(err) {
			// the store error would classify as NOT_FOUND
			return Session{}, fmt.Errorf("%w: user %s no longer exists", apperr.ErrInvalidCredentials, p.ID)
		}
		return Session{}, err
	}
	return l.session(u)
}

func (l *Local) session(u User) (Session, error) {
	p := &auth.Principal{ID: u.ID, Email: u.Email, Role: u.Role, Claims: map[string]any{}}
	if u.Name != "" {
		p.Claims["name"] = u.Name
	}
	pair, err := l.issuer.Issue(*p)
	if err != nil {
		return Session{}, err
	}
	return Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		User:         p,
	}, nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func isNoRows(err error) bool {
	var se *apperr.StoreError
	return errors.As(err, &se) && se.Code == apperr.NoRowsCode
}
