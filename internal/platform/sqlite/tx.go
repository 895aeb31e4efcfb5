package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"api-go-template/pkg/retry"
)

type txKey struct{}

// Querier is the query surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// TxRunner runs callbacks inside a transaction and retries the whole
// transaction when SQLite reports the database as busy.
type TxRunner struct {
	DB     *sql.DB
	Retry  retry.Config
	Logger *slog.Logger
}

// NewTxRunner creates a TxRunner with short busy retries.
func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{
		DB: db,
		Retry: retry.Config{
			MaxAttempts:  3,
			InitialDelay: 10 * time.Millisecond,
			MaxDelay:     500 * time.Millisecond,
			Multiplier:   2,
			Jitter:       true,
		},
	}
}

// WithinTx runs fn in a transaction that commits when fn returns nil. A
// transaction already in ctx is joined instead of starting a new one.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := SqlTx(ctx); ok {
		return fn(ctx)
	}
	cfg := r.Retry
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		if r.Logger != nil {
			r.Logger.Debug("sqlite busy, retrying transaction", slog.Int("attempt", attempt), slog.Duration("wait", wait))
		}
	}
	return retry.DoWithRetryable(ctx, cfg, func(ctx context.Context) error {
		return r.run(ctx, fn)
	}, IsBusy)
}

func (r *TxRunner) run(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SqlTx returns the transaction stored in ctx by WithinTx.
func SqlTx(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// Querier returns the transaction from ctx, or the database when there is none.
func (r *TxRunner) Querier(ctx context.Context) Querier {
	if tx, ok := SqlTx(ctx); ok {
		return tx
	}
	return r.DB
}
