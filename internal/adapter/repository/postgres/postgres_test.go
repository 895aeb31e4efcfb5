package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-go-template/internal/account"
	"api-go-template/internal/apperr"
	"api-go-template/internal/item"
	"api-go-template/internal/platform/pg"
	"api-go-template/migrations"
)

func setup(t *testing.T) *pg.TxRunner {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	_, err := pg.Migrate(dsn, migrations.FS, migrations.PostgresDir)
	require.NoError(t, err)

	pool, err := pg.NewPool(ctx, dsn, pg.DefaultPoolOptions())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, "TRUNCATE items, users")
	require.NoError(t, err)
	return pg.NewTxRunner(pool)
}

func newItem(owner string, at time.Time, n int) item.Item {
	return item.Item{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("item %02d", n),
		OwnerID:   owner,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestItems_CRUD(t *testing.T) {
	tx := setup(t)
	repo := NewItems(tx)
	ctx := context.Background()
	owner := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)

	created, err := repo.Create(ctx, newItem(owner, now, 1))
	require.NoError(t, err)
	assert.Equal(t, owner, created.OwnerID)
	assert.True(t, now.Equal(created.CreatedAt))

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)

	name := "renamed"
	later := now.Add(time.Minute)
	updated, err := repo.Update(ctx, created.ID, item.Patch{Name: &name, UpdatedAt: later})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, created.Description, updated.Description)
	assert.True(t, later.Equal(updated.UpdatedAt))

	require.NoError(t, repo.Delete(ctx, created.ID))

	_, err = repo.Get(ctx, created.ID)
	var se *apperr.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperr.NoRowsCode, se.Code)

	err = repo.Delete(ctx, created.ID)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperr.NoRowsCode, se.Code)

	_, err = repo.Update(ctx, created.ID, item.Patch{Name: &name, UpdatedAt: later})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperr.NoRowsCode, se.Code)

	require.NoError(t, repo.Ping(ctx))
}

func TestItems_ListAndCount(t *testing.T) {
	tx := setup(t)
	repo := NewItems(tx)
	ctx := context.Background()
	alice, bob := uuid.NewString(), uuid.NewString()
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, newItem(alice, base.Add(time.Duration(i)*time.Second), i))
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, newItem(bob, base, 9))
	require.NoError(t, err)

	total, err := repo.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 6, total)

	mine, err := repo.Count(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 5, mine)

	page, err := repo.List(ctx, item.ListFilter{OwnerID: alice, Limit: 2, Offset: 0})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "item 04", page[0].Name)
	assert.Equal(t, "item 03", page[1].Name)

	page, err = repo.List(ctx, item.ListFilter{OwnerID: alice, Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "item 00", page[0].Name)
}

func TestItems_WithinTxRollsBack(t *testing.T) {
	tx := setup(t)
	repo := NewItems(tx)
	ctx := context.Background()

	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := repo.Create(ctx, newItem(uuid.NewString(), time.Now().UTC(), 1)); err != nil {
			return err
		}
		return apperr.Forbidden("nope")
	})
	require.Error(t, err)

	n, err := repo.Count(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUsers(t *testing.T) {
	tx := setup(t)
	repo := NewUsers(tx)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	u := account.User{
		ID:           uuid.NewString(),
		Email:        "Ada@Example.com",
		Name:         "Ada",
		PasswordHash: "hash",
		Role:         "user",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := repo.CreateUser(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, u.ID, created.ID)

	byEmail, err := repo.UserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := repo.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", byID.PasswordHash)

	dup := u
	dup.ID = uuid.NewString()
	dup.Email = "ADA@example.com"
	_, err = repo.CreateUser(ctx, dup)
	assert.Equal(t, apperr.CodeDuplicateKey, apperr.Classify(err).Code)

	_, err = repo.UserByID(ctx, uuid.NewString())
	var se *apperr.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperr.NoRowsCode, se.Code)
}
