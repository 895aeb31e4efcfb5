package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"api-go-template/internal/apperr"
)

// TranslateError converts pgx failures into *apperr.StoreError carrying the
// SQLSTATE, so the classifier can map them. pgx.ErrNoRows becomes the
// missing-row code. Nil stays nil.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var se *apperr.StoreError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NoRows(err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		out := apperr.NewStoreError(pgErr.Code, pgErr.Message, err)
		out.Detail = pgErr.Detail
		out.Hint = pgErr.Hint
		return out
	}
	return apperr.NewStoreError("", err.Error(), err)
}
