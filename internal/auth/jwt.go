package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"api-go-template/internal/apperr"
)

// Claim names of the token payload.
const (
	ClaimUserID = "userId"
	ClaimEmail  = "email"
	ClaimRole   = "role"
)

// JWTVerifier verifies HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

// JWTOption configures JWTVerifier.
type JWTOption func(*JWTVerifier)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) JWTOption {
	return func(v *JWTVerifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewJWTVerifier creates a verifier for tokens signed with secret.
func NewJWTVerifier(secret string, opts ...JWTOption) *JWTVerifier {
	v := &JWTVerifier{secret: []byte(secret), now: time.Now}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify implements Verifier. The payload must carry a non-empty userId.
func (v *JWTVerifier) Verify(_ context.Context, raw string) (*Principal, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, apperr.Mark(fmt.Errorf("jwt: %w", err), apperr.ErrInvalidCredentials)
	}
	return principalFromClaims(claims)
}

func principalFromClaims(claims jwt.MapClaims) (*Principal, error) {
	id, _ := claims[ClaimUserID].(string)
	if id == "" {
		return nil, apperr.Mark(errors.New("jwt: missing userId claim"), apperr.ErrInvalidCredentials)
	}
	email, _ := claims[ClaimEmail].(string)
	role, _ := claims[ClaimRole].(string)
	if role == "" {
		role = DefaultRole
	}
	extra := make(map[string]any, len(claims))
	for k, val := range claims {
		extra[k] = val
	}
	return &Principal{ID: id, Email: email, Role: role, Claims: extra}, nil
}

// TokenPair is an access token with its refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// IssuerConfig holds signing secrets and lifetimes.
type IssuerConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenIssuer signs access and refresh tokens.
type TokenIssuer struct {
	cfg IssuerConfig
	now func() time.Time
}

// NewTokenIssuer creates an issuer. A nil clock uses time.Now.
func NewTokenIssuer(cfg IssuerConfig, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{cfg: cfg, now: now}
}

// Issue signs a new token pair for p.
func (i *TokenIssuer) Issue(p Principal) (TokenPair, error) {
	access, err := i.sign(p, i.cfg.AccessSecret, i.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := i.sign(p, i.cfg.RefreshSecret, i.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(i.cfg.AccessTTL / time.Second),
	}, nil
}

// AccessVerifier returns a verifier bound to the access secret.
func (i *TokenIssuer) AccessVerifier() *JWTVerifier {
	return NewJWTVerifier(i.cfg.AccessSecret, WithClock(i.now))
}

// RefreshVerifier returns a verifier bound to the refresh secret.
func (i *TokenIssuer) RefreshVerifier() *JWTVerifier {
	return NewJWTVerifier(i.cfg.RefreshSecret, WithClock(i.now))
}

func (i *TokenIssuer) sign(p Principal, secret string, ttl time.Duration) (string, error) {
	now := i.now()
	role := p.Role
	if role == "" {
		role = DefaultRole
	}
	claims := jwt.MapClaims{
		ClaimUserID: p.ID,
		ClaimEmail:  p.Email,
		ClaimRole:   role,
		"iat":       now.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
