package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

// Querier is the query surface shared by the pool and a transaction, so
// repositories run the same code inside and outside WithinTx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
)

// TxRunner runs callbacks inside a transaction that commits on nil and rolls
// back on error.
type TxRunner struct {
	Pool *pgxpool.Pool
}

// NewTxRunner creates a TxRunner over pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{Pool: pool}
}

// WithinTx runs fn in a transaction. A transaction already present in ctx is
// reused, so nested calls join the outer one.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := PgxTx(ctx); ok {
		return fn(ctx)
	}
	return pgx.BeginFunc(ctx, r.Pool, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// PgxTx returns the transaction stored in ctx by WithinTx.
func PgxTx(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// Querier returns the transaction from ctx, or the pool when there is none.
func (r *TxRunner) Querier(ctx context.Context) Querier {
	if tx, ok := PgxTx(ctx); ok {
		return tx
	}
	return r.Pool
}
