package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"api-go-template/internal/apperr"
)

// TranslateError converts driver failures into *apperr.StoreError.
// Constraint violations carry the SQLSTATE PostgreSQL would report and
// sql.ErrNoRows becomes the missing-row code. Nil stays nil.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var se *apperr.StoreError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NoRows(err)
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		return apperr.NewStoreError(sqlState(sqErr), sqErr.Error(), err)
	}
	return apperr.NewStoreError("", err.Error(), err)
}

// IsBusy reports whether err means the database was locked by another writer.
func IsBusy(err error) bool {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return false
	}
	switch sqErr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

func sqlState(e *sqlite.Error) string {
	switch e.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return apperr.SQLStateUniqueViolation
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return apperr.SQLStateForeignKeyViolation
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return apperr.SQLStateNotNullViolation
	}
	// without extended result codes only the message tells them apart
	if e.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := e.Error()
		switch {
		case strings.Contains(msg, "UNIQUE constraint failed"):
			return apperr.SQLStateUniqueViolation
		case strings.Contains(msg, "FOREIGN KEY constraint failed"):
			return apperr.SQLStateForeignKeyViolation
		case strings.Contains(msg, "NOT NULL constraint failed"):
			return apperr.SQLStateNotNullViolation
		}
	}
	return ""
}
