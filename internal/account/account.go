// Package account implements registration, login and token refresh for both
// authentication backends.
package account

import (
	"context"
	"time"

	"api-go-template/internal/auth"
)

// Session is what a successful register, login or refresh returns. The
// tokens are empty when the provider still waits for email confirmation.
type Session struct {
	AccessToken  string          `json:"accessToken,omitempty"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	TokenType    string          `json:"tokenType,omitempty"`
	ExpiresIn    int64           `json:"expiresIn,omitempty"`
	User         *auth.Principal `json:"user"`
}

// RegisterInput is the payload of a register request.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
	Name     string `json:"name" validate:"max=100"`
}

// LoginInput is the payload of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshInput is the payload of a refresh request.
type RefreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Service is implemented by Local and Supabase.
type Service interface {
	Register(ctx context.Context, in RegisterInput) (Session, error)
	Login(ctx context.Context, in LoginInput) (Session, error)
	Refresh(ctx context.Context, in RefreshInput) (Session, error)
}

// User is a locally stored account.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository persists local accounts. A duplicate email is reported as a
// unique violation store error and a missing user with the missing-row code.
type UserRepository interface {
	CreateUser(ctx context.Context, u User) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
}
