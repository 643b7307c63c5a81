package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.VaultSettings, error) {
	query := `SELECT user_id, password_hash, two_factor_secret, two_factor_enabled,
		question1, answer1_hash, question2, answer2_hash, recovery_key_hash,
		recovery_email, email_token_hash, email_token_expires, created_at, updated_at
		FROM vault_settings WHERE user_id=$1`

	var (
		s       models.VaultSettings
		expires sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID, &s.PasswordHash, &s.TwoFactorSecret, &s.TwoFactorEnabled,
		&s.Recovery.Question1, &s.Recovery.Answer1Hash, &s.Recovery.Question2, &s.Recovery.Answer2Hash, &s.Recovery.KeyHash,
		&s.RecoveryEmail, &s.EmailTokenHash, &expires, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if expires.Valid {
		s.EmailTokenExpires = expires.Time
	}
	return &s, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, s *models.VaultSettings) error {
	query := `
		INSERT INTO vault_settings (user_id, password_hash, two_factor_secret, two_factor_enabled,
			question1, answer1_hash, question2, answer2_hash, recovery_key_hash,
			recovery_email, email_token_hash, email_token_expires, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id)
		DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			two_factor_secret = EXCLUDED.two_factor_secret,
			two_factor_enabled = EXCLUDED.two_factor_enabled,
			question1 = EXCLUDED.question1,
			answer1_hash = EXCLUDED.answer1_hash,
			question2 = EXCLUDED.question2,
			answer2_hash = EXCLUDED.answer2_hash,
			recovery_key_hash = EXCLUDED.recovery_key_hash,
			recovery_email = EXCLUDED.recovery_email,
			email_token_hash = EXCLUDED.email_token_hash,
			email_token_expires = EXCLUDED.email_token_expires,
			updated_at = EXCLUDED.updated_at;
	`
	var expires sql.NullTime
	if !s.EmailTokenExpires.IsZero() {
		expires = sql.NullTime{Time: s.EmailTokenExpires, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		s.UserID, s.PasswordHash, s.TwoFactorSecret, s.TwoFactorEnabled,
		s.Recovery.Question1, s.Recovery.Answer1Hash, s.Recovery.Question2, s.Recovery.Answer2Hash, s.Recovery.KeyHash,
		s.RecoveryEmail, s.EmailTokenHash, expires, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM vault_settings WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
