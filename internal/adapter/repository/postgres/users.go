package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"api-go-template/internal/account"
	"api-go-template/internal/platform/pg"
)

const userColumns = `id::text, email, name, password_hash, role, created_at, updated_at`

// Users is the PostgreSQL account.UserRepository.
type Users struct {
	tx *pg.TxRunner
}

var _ account.UserRepository = (*Users)(nil)

// NewUsers creates a Users repository.
func NewUsers(tx *pg.TxRunner) *Users {
	return &Users{tx: tx}
}

func (r *Users) CreateUser(ctx context.Context, u account.User) (account.User, error) {
	row := r.tx.Querier(ctx).QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	out, err := scanUser(row)
	return out, pg.TranslateError(err)
}

func (r *Users) UserByEmail(ctx context.Context, email string) (account.User, error) {
	row := r.tx.Querier(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	out, err := scanUser(row)
	return out, pg.TranslateError(err)
}

func (r *Users) UserByID(ctx context.Context, id string) (account.User, error) {
	row := r.tx.Querier(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	out, err := scanUser(row)
	return out, pg.TranslateError(err)
}

func scanUser(row pgx.Row) (account.User, error) {
	var u account.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
