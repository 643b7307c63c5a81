package entries

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/migrations"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.SQLite())
	require.NoError(t, err)
	_, err = p.Up(context.Background())
	require.NoError(t, err)
	return db
}

func TestSQLite_InsertList(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	first := stored("e1", "alice")
	second := stored("e2", "alice")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	second.UpdatedAt = second.CreatedAt

	// inserted out of order on purpose
	require.NoError(t, repo.Insert(ctx, second))
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, stored("e3", "bob")))

	got, err := repo.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "e2", got[1].ID)
	assert.Equal(t, "w-blob", got[0].Website)
	assert.Equal(t, models.StrengthMedium, got[0].Strength)
	assert.True(t, first.CreatedAt.Equal(got[0].CreatedAt))
}

func TestSQLite_ListEmpty(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	got, err := repo.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_Update(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	e := stored("e1", "alice")
	require.NoError(t, repo.Insert(ctx, e))

	e.Password = "new-blob"
	e.Strength = models.StrengthStrong
	e.UpdatedAt = e.CreatedAt.Add(time.Hour)
	require.NoError(t, repo.Update(ctx, e))

	got, err := repo.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new-blob", got[0].Password)
	assert.Equal(t, models.StrengthStrong, got[0].Strength)
	assert.True(t, e.UpdatedAt.Equal(got[0].UpdatedAt))

	foreign := *e
	foreign.UserID = "bob"
	require.ErrorIs(t, repo.Update(ctx, &foreign), common.ErrNotFound)
}

func TestSQLite_DeleteScopedByUser(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, stored("e1", "alice")))

	require.ErrorIs(t, repo.Delete(ctx, "bob", "e1"), common.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "alice", "e1"))
	require.ErrorIs(t, repo.Delete(ctx, "alice", "e1"), common.ErrNotFound)
}

func TestSQLite_DeleteAll(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, stored("e1", "alice")))
	require.NoError(t, repo.Insert(ctx, stored("e2", "alice")))
	require.NoError(t, repo.Insert(ctx, stored("e3", "bob")))

	n, err := repo.DeleteAll(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := repo.List(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
