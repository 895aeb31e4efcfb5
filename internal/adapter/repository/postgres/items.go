// Package postgres implements the repositories on PostgreSQL through pgx.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"api-go-template/internal/item"
	"api-go-template/internal/platform/pg"
)

const itemColumns = `id::text, name, description, owner_id::text, created_at, updated_at`

// Items is the PostgreSQL item.Repository.
type Items struct {
	tx *pg.TxRunner
}

var _ item.Repository = (*Items)(nil)

// NewItems creates an Items repository.
func NewItems(tx *pg.TxRunner) *Items {
	return &Items{tx: tx}
}

func (r *Items) List(ctx context.Context, f item.ListFilter) ([]item.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM items`
	args := []any{f.Limit, f.Offset}
	if f.OwnerID != "" {
		q += ` WHERE owner_id = $3`
		args = append(args, f.OwnerID)
	}
	q += ` ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`

	rows, err := r.tx.Querier(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, pg.TranslateError(err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (item.Item, error) {
		return scanItem(row)
	})
	return items, pg.TranslateError(err)
}

func (r *Items) Count(ctx context.Context, ownerID string) (int, error) {
	q := `SELECT count(*) FROM items`
	var args []any
	if ownerID != "" {
		q += ` WHERE owner_id = $1`
		args = append(args, ownerID)
	}
	var n int
	err := r.tx.Querier(ctx).QueryRow(ctx, q, args...).Scan(&n)
	return n, pg.TranslateError(err)
}

func (r *Items) Get(ctx context.Context, id string) (item.Item, error) {
	row := r.tx.Querier(ctx).QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	it, err := scanItem(row)
	return it, pg.TranslateError(err)
}

func (r *Items) Create(ctx context.Context, it item.Item) (item.Item, error) {
	row := r.tx.Querier(ctx).QueryRow(ctx, `
		INSERT INTO items (id, name, description, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+itemColumns,
		it.ID, it.Name, it.Description, it.OwnerID, it.CreatedAt, it.UpdatedAt)
	out, err := scanItem(row)
	return out, pg.TranslateError(err)
}

func (r *Items) Update(ctx context.Context, id string, p item.Patch) (item.Item, error) {
	row := r.tx.Querier(ctx).QueryRow(ctx, `
		UPDATE items
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    updated_at = $4
		WHERE id = $1
		RETURNING `+itemColumns,
		id, p.Name, p.Description, p.UpdatedAt)
	out, err := scanItem(row)
	return out, pg.TranslateError(err)
}

func (r *Items) Delete(ctx context.Context, id string) error {
	tag, err := r.tx.Querier(ctx).Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return pg.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return pg.TranslateError(pgx.ErrNoRows)
	}
	return nil
}

func (r *Items) Ping(ctx context.Context) error {
	return pg.CheckPool(ctx, r.tx.Pool)
}

func scanItem(row pgx.Row) (item.Item, error) {
	var it item.Item
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.OwnerID, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}
