package sqlite

import (
	"context"

	"api-go-template/internal/account"
	"api-go-template/internal/platform/sqlite"
)

const userColumns = `id, email, name, password_hash, role, created_at, updated_at`

// Users is the SQLite account.UserRepository. Emails compare case
// insensitively through the column collation.
type Users struct {
	tx *sqlite.TxRunner
}

var _ account.UserRepository = (*Users)(nil)

// NewUsers creates a Users repository.
func NewUsers(tx *sqlite.TxRunner) *Users {
	return &Users{tx: tx}
}

func (r *Users) CreateUser(ctx context.Context, u account.User) (account.User, error) {
	row := r.tx.Querier(ctx).QueryRowContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING `+userColumns,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	out, err := scanUser(row)
	return out, sqlite.TranslateError(err)
}

func (r *Users) UserByEmail(ctx context.Context, email string) (account.User, error) {
	row := r.tx.Querier(ctx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	out, err := scanUser(row)
	return out, sqlite.TranslateError(err)
}

func (r *Users) UserByID(ctx context.Context, id string) (account.User, error) {
	row := r.tx.Querier(ctx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	out, err := scanUser(row)
	return out, sqlite.TranslateError(err)
}

func scanUser(s scanner) (account.User, error) {
	var (
		u                account.User
		created, updated string
	)
	if err := s.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &created, &updated); err != nil {
		return account.User{}, err
	}
	var err error
	if u.CreatedAt, err = parseTime(created); err != nil {
		return account.User{}, err
	}
	if u.UpdatedAt, err = parseTime(updated); err != nil {
		return account.User{}, err
	}
	return u, nil
}
