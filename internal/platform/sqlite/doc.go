// Package sqlite provides the embedded SQLite store used for local
// development and single-node deployments.
//
// Opening a database applies WAL mode, foreign keys and a busy timeout:
//
//	db, err := sqlite.Open(ctx, "data/app.db", sqlite.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
// Transactions are carried in the context so repositories run the same code
// inside and outside of them:
//
//	runner := sqlite.NewTxRunner(db)
//	err = runner.WithinTx(ctx, func(ctx context.Context) error {
//		_, err := runner.Querier(ctx).ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
//		return err
//	})
//
// A transaction that fails with SQLITE_BUSY is retried with backoff. Driver
// errors are converted by TranslateError into store errors carrying the
// PostgreSQL SQLSTATE equivalent, so both SQL backends classify the same way.
package sqlite
