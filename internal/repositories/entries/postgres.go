package entries

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/models"
)

// PostgresRepository implements entry storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, e *models.StoredEntry) error {
	query := `
		INSERT INTO password_entries (id, user_id, website, username, password, strength, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Website, e.Username, e.Password, string(e.Strength), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, e *models.StoredEntry) error {
	query := `
		UPDATE password_entries
		SET website=$1, username=$2, password=$3, strength=$4, updated_at=$5
		WHERE id=$6 AND user_id=$7
	`
	res, err := r.db.ExecContext(ctx, query,
		e.Website, e.Username, e.Password, string(e.Strength), e.UpdatedAt, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res.RowsAffected())
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]*models.StoredEntry, error) {
	query := `SELECT id, user_id, website, username, password, strength, created_at, updated_at
		FROM password_entries WHERE user_id=$1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []*models.StoredEntry
	for rows.Next() {
		var (
			item     models.StoredEntry
			strength string
		)
		if err := rows.Scan(&item.ID, &item.UserID, &item.Website, &item.Username, &item.Password,
			&strength, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.Strength = models.Strength(strength)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM password_entries WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res.RowsAffected())
}

func (r *PostgresRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM password_entries WHERE user_id=$1`, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func expectOneRow(n int64, err error) error {
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
