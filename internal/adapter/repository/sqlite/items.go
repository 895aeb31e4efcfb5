// Package sqlite implements the repositories on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"api-go-template/internal/item"
	"api-go-template/internal/platform/sqlite"
)

// timeLayout is fixed width so that text comparison orders timestamps.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const itemColumns = `id, name, description, owner_id, created_at, updated_at`

// Items is the SQLite item.Repository.
type Items struct {
	tx *sqlite.TxRunner
}

var _ item.Repository = (*Items)(nil)

// NewItems creates an Items repository.
func NewItems(tx *sqlite.TxRunner) *Items {
	return &Items{tx: tx}
}

func (r *Items) List(ctx context.Context, f item.ListFilter) ([]item.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM items`
	var args []any
	if f.OwnerID != "" {
		q += ` WHERE owner_id = ?`
		args = append(args, f.OwnerID)
	}
	q += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := r.tx.Querier(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, sqlite.TranslateError(err)
	}
	defer rows.Close()

	items := make([]item.Item, 0, min(f.Limit, 100))
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, sqlite.TranslateError(err)
		}
		items = append(items, it)
	}
	return items, sqlite.TranslateError(rows.Err())
}

func (r *Items) Count(ctx context.Context, ownerID string) (int, error) {
	q := `SELECT count(*) FROM items`
	var args []any
	if ownerID != "" {
		q += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	var n int
	err := r.tx.Querier(ctx).QueryRowContext(ctx, q, args...).Scan(&n)
	return n, sqlite.TranslateError(err)
}

func (r *Items) Get(ctx context.Context, id string) (item.Item, error) {
	row := r.tx.Querier(ctx).QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	return it, sqlite.TranslateError(err)
}

func (r *Items) Create(ctx context.Context, it item.Item) (item.Item, error) {
	row := r.tx.Querier(ctx).QueryRowContext(ctx, `
		INSERT INTO items (id, name, description, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+itemColumns,
		it.ID, it.Name, it.Description, it.OwnerID, formatTime(it.CreatedAt), formatTime(it.UpdatedAt))
	out, err := scanItem(row)
	return out, sqlite.TranslateError(err)
}

func (r *Items) Update(ctx context.Context, id string, p item.Patch) (item.Item, error) {
	row := r.tx.Querier(ctx).QueryRowContext(ctx, `
		UPDATE items
		SET name = COALESCE(?, name),
		    description = COALESCE(?, description),
		    updated_at = ?
		WHERE id = ?
		RETURNING `+itemColumns,
		nullString(p.Name), nullString(p.Description), formatTime(p.UpdatedAt), id)
	out, err := scanItem(row)
	return out, sqlite.TranslateError(err)
}

func (r *Items) Delete(ctx context.Context, id string) error {
	res, err := r.tx.Querier(ctx).ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return sqlite.TranslateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return sqlite.TranslateError(err)
	}
	if n == 0 {
		return sqlite.TranslateError(sql.ErrNoRows)
	}
	return nil
}

func (r *Items) Ping(ctx context.Context) error {
	return sqlite.Check(ctx, r.tx.DB)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (item.Item, error) {
	var (
		it               item.Item
		created, updated string
	)
	if err := s.Scan(&it.ID, &it.Name, &it.Description, &it.OwnerID, &created, &updated); err != nil {
		return item.Item{}, err
	}
	var err error
	if it.CreatedAt, err = parseTime(created); err != nil {
		return item.Item{}, err
	}
	if it.UpdatedAt, err = parseTime(updated); err != nil {
		return item.Item{}, err
	}
	return it, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
