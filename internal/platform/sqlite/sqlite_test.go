package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-go-template/internal/apperr"
	"api-go-template/migrations"
)

func openTemp(t *testing.T) (*TxRunner, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	db, err := Open(context.Background(), path, DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTxRunner(db), path
}

func TestMigrate_AppliesEmbeddedSchema(t *testing.T) {
	r, path := openTemp(t)

	v, err := Migrate(path, migrations.FS, migrations.SQLiteDir)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)

	// second run is a no-op
	v, err = Migrate(path, migrations.FS, migrations.SQLiteDir)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)

	var n int
	require.NoError(t, r.DB.QueryRow("SELECT count(*) FROM items").Scan(&n))
	assert.Zero(t, n)

	require.NoError(t, MigrateDown(path, migrations.FS, migrations.SQLiteDir))
	_, err = r.DB.Exec("SELECT count(*) FROM items")
	assert.Error(t, err)
}

func TestMigrateURL(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	u, err := MigrateURL("/tmp/app.db")
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/app.db", u)

	u, err = MigrateURL("rel.db")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "sqlite:///"))
	assert.True(t, strings.HasSuffix(u, "/rel.db"))
}

func TestOpen_ForeignKeysOnEveryConnection(t *testing.T) {
	r, _ := openTemp(t)
	ctx := context.Background()

	// hold one connection so the next query needs another
	conn, err := r.DB.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	var fk int
	require.NoError(t, r.DB.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
	require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestTxRunner_CommitAndRollback(t *testing.T) {
	r, _ := openTemp(t)
	ctx := context.Background()
	_, err := r.DB.Exec("CREATE TABLE probe (v INTEGER)")
	require.NoError(t, err)

	require.NoError(t, r.WithinTx(ctx, func(ctx context.Context) error {
		_, ok := SqlTx(ctx)
		require.True(t, ok)
		_, err := r.Querier(ctx).ExecContext(ctx, "INSERT INTO probe VALUES (1)")
		return err
	}))

	boom := errors.New("boom")
	err = r.WithinTx(ctx, func(ctx context.Context) error {
		// nested call joins the outer transaction
		return r.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := r.Querier(ctx).ExecContext(ctx, "INSERT INTO probe VALUES (2)"); err != nil {
				return err
			}
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, r.DB.QueryRow("SELECT count(*) FROM probe").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestTxRunner_QuerierOutsideTx(t *testing.T) {
	r, _ := openTemp(t)
	assert.Same(t, r.DB, r.Querier(context.Background()))
}

func TestTranslateError_Constraints(t *testing.T) {
	db, err := OpenInMemory(context.Background())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE parent (id INTEGER PRIMARY KEY, email TEXT NOT NULL UNIQUE);
		CREATE TABLE child (id INTEGER PRIMARY KEY, parent_id INTEGER NOT NULL REFERENCES parent(id));
	`)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO parent (id, email) VALUES (1, 'a@b.c')")
	require.NoError(t, err)

	cases := []struct {
		name  string
		query string
		state string
		code  apperr.Code
	}{
		{"unique", "INSERT INTO parent (id, email) VALUES (2, 'a@b.c')", "23505", apperr.CodeDuplicateKey},
		{"primary key", "INSERT INTO parent (id, email) VALUES (1, 'x@y.z')", "23505", apperr.CodeDuplicateKey},
		{"not null", "INSERT INTO parent (id, email) VALUES (3, NULL)", "23502", apperr.CodeNotNullViolation},
		{"foreign key", "INSERT INTO child (id, parent_id) VALUES (1, 99)", "23503", apperr.CodeForeignKeyViolation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := db.Exec(tc.query)
			require.Error(t, err)

			var se *apperr.StoreError
			require.ErrorAs(t, TranslateError(err), &se)
			assert.Equal(t, tc.state, se.Code)
			assert.Equal(t, tc.code, apperr.Classify(TranslateError(err)).Code)
		})
	}
}

func TestTranslateError_NoRows(t *testing.T) {
	db, err := OpenInMemory(context.Background())
	require.NoError(t, err)
	defer db.Close()

	var v int
	err = db.QueryRow("SELECT 1 WHERE 0").Scan(&v)
	translated := TranslateError(err)

	var se *apperr.StoreError
	require.ErrorAs(t, translated, &se)
	assert.Equal(t, apperr.NoRowsCode, se.Code)
	assert.Equal(t, apperr.CodeNotFound, apperr.Classify(translated).Code)
	assert.NoError(t, TranslateError(nil))
	assert.False(t, IsBusy(errors.New("database is locked")))
}

func TestCheck(t *testing.T) {
	r, _ := openTemp(t)
	assert.NoError(t, Check(context.Background(), r.DB))
}
