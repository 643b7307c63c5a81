package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophvault/internal/repositories/entries"
	"github.com/dmitrijs2005/gophvault/internal/repositories/settings"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m, err := New(DriverPostgres)
	require.NoError(t, err)
	assert.IsType(t, &PostgresRepositoryManager{}, m)

	m, err = New(DriverSQLite)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteRepositoryManager{}, m)

	_, err = New("mysql")
	require.ErrorContains(t, err, `unsupported store driver "mysql"`)
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pg := NewPostgresRepositoryManager()
	assert.IsType(t, &settings.PostgresRepository{}, pg.Settings(db))
	assert.IsType(t, &entries.PostgresRepository{}, pg.Entries(db))

	lite := NewSQLiteRepositoryManager()
	assert.IsType(t, &settings.SQLiteRepository{}, lite.Settings(db))
	assert.IsType(t, &entries.SQLiteRepository{}, lite.Entries(db))
}

func TestPostgresRunMigrations_UsesPostgresDialect(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDialect goose.Dialect
	gooseUp = func(ctx context.Context, dialect goose.Dialect, _ *sql.DB, fsys fs.FS) error {
		gotDialect = dialect
		names, err := fs.Glob(fsys, "*.sql")
		require.NoError(t, err)
		require.NotEmpty(t, names)
		return nil
	}

	require.NoError(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), db))
	assert.Equal(t, goose.DialectPostgres, gotDialect)
}

func TestRunMigrations_PropagatesError(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })
	gooseUp = func(context.Context, goose.Dialect, *sql.DB, fs.FS) error {
		return errors.New("migration failed")
	}

	err = NewPostgresRepositoryManager().RunMigrations(context.Background(), db)
	require.ErrorContains(t, err, "migration failed")
}

func TestOpen_SQLiteMigratesSchema(t *testing.T) {
	ctx := context.Background()
	db, m, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = m.Entries(db).List(ctx, "alice")
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `select count(*) from vault_settings`).Scan(&n))
	assert.Zero(t, n)

	// running again is a no-op
	require.NoError(t, m.RunMigrations(ctx, db))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), "oracle", "x")
	require.Error(t, err)
}
