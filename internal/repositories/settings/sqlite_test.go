package settings

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

func sampleSettings(userID string) *models.VaultSettings {
	now := time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC)
	return &models.VaultSettings{
		UserID:       userID,
		PasswordHash: "pwhash",
		Recovery:     models.RecoveryData{Question1: "q1", Answer1Hash: "a1", Question2: "q2", Answer2Hash: "a2", KeyHash: "kh"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestSQLite_UpsertGetRoundTrip(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	s := sampleSettings("alice")
	require.NoError(t, repo.Upsert(ctx, s))

	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, s.PasswordHash, got.PasswordHash)
	assert.Equal(t, s.Recovery, got.Recovery)
	assert.False(t, got.TwoFactorEnabled)
	assert.True(t, got.EmailTokenExpires.IsZero())
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLite_UpsertReplaces(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	s := sampleSettings("alice")
	require.NoError(t, repo.Upsert(ctx, s))

	s.PasswordHash = "newhash"
	s.TwoFactorEnabled = true
	s.TwoFactorSecret = "JBSWY3DPEHPK3PXP"
	s.EmailTokenHash = "th"
	s.EmailTokenExpires = s.CreatedAt.Add(15 * time.Minute)
	require.NoError(t, repo.Upsert(ctx, s))

	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "newhash", got.PasswordHash)
	assert.True(t, got.TwoFactorEnabled)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", got.TwoFactorSecret)
	assert.Equal(t, "th", got.EmailTokenHash)
	assert.True(t, s.EmailTokenExpires.Equal(got.EmailTokenExpires))
}

func TestSQLite_ScopedByUser(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, sampleSettings("alice")))

	_, err := repo.Get(ctx, "bob")
	require.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "bob"))
	_, err = repo.Get(ctx, "alice")
	require.NoError(t, err)
}

func TestSQLite_Delete(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, sampleSettings("alice")))
	require.NoError(t, repo.Delete(ctx, "alice"))

	_, err := repo.Get(ctx, "alice")
	require.ErrorIs(t, err, common.ErrNotFound)
}
