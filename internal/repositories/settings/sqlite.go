package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/models"
)

// SQLiteRepository implements Repository for the local SQLite store.
// Timestamps are kept as unix nanoseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, userID string) (*models.VaultSettings, error) {
	query := `select user_id, password_hash, two_factor_secret, two_factor_enabled,
		question1, answer1_hash, question2, answer2_hash, recovery_key_hash,
		recovery_email, email_token_hash, email_token_expires, created_at, updated_at
		from vault_settings where user_id=?`

	var (
		s                         models.VaultSettings
		twoFactor                 int
		expires, created, updated int64
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID, &s.PasswordHash, &s.TwoFactorSecret, &twoFactor,
		&s.Recovery.Question1, &s.Recovery.Answer1Hash, &s.Recovery.Question2, &s.Recovery.Answer2Hash, &s.Recovery.KeyHash,
		&s.RecoveryEmail, &s.EmailTokenHash, &expires, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select settings: %w", err)
	}

	s.TwoFactorEnabled = twoFactor != 0
	s.EmailTokenExpires = fromUnixNano(expires)
	s.CreatedAt = fromUnixNano(created)
	s.UpdatedAt = fromUnixNano(updated)
	return &s, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, s *models.VaultSettings) error {
	query := `insert into vault_settings (user_id, password_hash, two_factor_secret, two_factor_enabled,
			question1, answer1_hash, question2, answer2_hash, recovery_key_hash,
			recovery_email, email_token_hash, email_token_expires, created_at, updated_at)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		on conflict (user_id) do update set
			password_hash = excluded.password_hash,
			two_factor_secret = excluded.two_factor_secret,
			two_factor_enabled = excluded.two_factor_enabled,
			question1 = excluded.question1,
			answer1_hash = excluded.answer1_hash,
			question2 = excluded.question2,
			answer2_hash = excluded.answer2_hash,
			recovery_key_hash = excluded.recovery_key_hash,
			recovery_email = excluded.recovery_email,
			email_token_hash = excluded.email_token_hash,
			email_token_expires = excluded.email_token_expires,
			updated_at = excluded.updated_at`

	twoFactor := 0
	if s.TwoFactorEnabled {
		twoFactor = 1
	}

	_, err := r.db.ExecContext(ctx, query,
		s.UserID, s.PasswordHash, s.TwoFactorSecret, twoFactor,
		s.Recovery.Question1, s.Recovery.Answer1Hash, s.Recovery.Question2, s.Recovery.Answer2Hash, s.Recovery.KeyHash,
		s.RecoveryEmail, s.EmailTokenHash, toUnixNano(s.EmailTokenExpires), toUnixNano(s.CreatedAt), toUnixNano(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `delete from vault_settings where user_id=?`, userID); err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}
	return nil
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
