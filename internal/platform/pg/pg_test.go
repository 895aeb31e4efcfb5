package pg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-go-template/internal/apperr"
)

func TestTranslateError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, TranslateError(nil))

	var se *apperr.StoreError
	require.ErrorAs(t, TranslateError(fmt.Errorf("get item: %w", pgx.ErrNoRows)), &se)
	assert.Equal(t, apperr.NoRowsCode, se.Code)
	assert.ErrorIs(t, se, pgx.ErrNoRows)

	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key value", Detail: "Key (email)=(a@b.c) already exists.", Hint: "h"}
	require.ErrorAs(t, TranslateError(pgErr), &se)
	assert.Equal(t, "23505", se.Code)
	assert.Equal(t, "Key (email)=(a@b.c) already exists.", se.Detail)
	assert.Equal(t, "h", se.Hint)
	assert.Equal(t, apperr.CodeDuplicateKey, apperr.Classify(TranslateError(pgErr)).Code)

	require.ErrorAs(t, TranslateError(errors.New("conn reset")), &se)
	assert.Empty(t, se.Code)
	assert.Equal(t, apperr.CodeDatabase, apperr.Classify(se).Code)

	already := apperr.NewStoreError("42501", "denied", nil)
	assert.Same(t, already, TranslateError(already))
}

func TestPgxTx_NoTransaction(t *testing.T) {
	t.Parallel()

	tx, ok := PgxTx(context.Background())
	assert.False(t, ok)
	assert.Nil(t, tx)

	ctx := context.WithValue(context.Background(), txKey{}, "not a tx")
	_, ok = PgxTx(ctx)
	assert.False(t, ok)
}

func TestTxRunner_QuerierWithoutTransaction(t *testing.T) {
	t.Parallel()

	pool := &pgxpool.Pool{}
	r := NewTxRunner(pool)
	assert.Same(t, pool, r.Querier(context.Background()))
}

func TestWithApplicationName(t *testing.T) {
	t.Parallel()

	got, err := WithApplicationName("postgres://u:p@localhost:5432/app?sslmode=disable", "api")
	require.NoError(t, err)
	assert.Contains(t, got, "application_name=api")
	assert.Contains(t, got, "sslmode=disable")

	got, err = WithApplicationName("postgres://localhost/app?application_name=other", "api")
	require.NoError(t, err)
	assert.Contains(t, got, "application_name=other")

	_, err = WithApplicationName("mysql://localhost/app", "api")
	assert.Error(t, err)
	_, err = WithApplicationName("postgres:///app", "api")
	assert.Error(t, err)
}

func TestRedactDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "postgres://u:xxxxx@db:5432/app", RedactDSN("postgres://u:secret@db:5432/app"))
	assert.NotContains(t, RedactDSN("postgres://db/app?password=secret"), "secret")
	assert.Equal(t, "[invalid dsn]", RedactDSN("::nope"))
}

func TestWaitForDB_InvalidDSN(t *testing.T) {
	t.Parallel()

	err := WaitForDB(context.Background(), "postgres://%zz", DefaultWaitOptions())
	assert.Error(t, err)
}

func TestWaitForDB_GivesUp(t *testing.T) {
	t.Parallel()

	opts := WaitOptions{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, PingTimeout: 200 * time.Millisecond}
	err := WaitForDB(context.Background(), "postgres://u:p@127.0.0.1:1/none?sslmode=disable&connect_timeout=1", opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait for database")
}

func TestCheckPool_Nil(t *testing.T) {
	t.Parallel()

	assert.Error(t, CheckPool(context.Background(), nil))
	assert.Equal(t, Stats{}, PoolStats(nil))
}

func TestMigrate_BadSource(t *testing.T) {
	t.Parallel()

	_, err := Migrate("postgres://localhost/app", fstest.MapFS{}, "missing")
	assert.Error(t, err)
}

func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return dsn
}

func TestTxRunner_Integration(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := NewPool(ctx, dsn, DefaultPoolOptions())
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, CheckPool(ctx, pool))

	r := NewTxRunner(pool)
	_, err = pool.Exec(ctx, "CREATE TABLE IF NOT EXISTS tx_probe (v int)")
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), "DROP TABLE IF EXISTS tx_probe") })

	boom := errors.New("boom")
	err = r.WithinTx(ctx, func(ctx context.Context) error {
		_, ok := PgxTx(ctx)
		require.True(t, ok)
		// nested call joins the outer transaction
		return r.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := r.Querier(ctx).Exec(ctx, "INSERT INTO tx_probe VALUES (1)"); err != nil {
				return err
			}
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM tx_probe").Scan(&n))
	assert.Zero(t, n)
}
