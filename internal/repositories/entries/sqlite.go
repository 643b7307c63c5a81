package entries

import (
	"context"
	"fmt"
	"time"

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

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.StoredEntry) error {
	query := `insert into password_entries (id, user_id, website, username, password, strength, created_at, updated_at)
			values (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Website, e.Username, e.Password, string(e.Strength),
		e.CreatedAt.UnixNano(), e.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, e *models.StoredEntry) error {
	query := `update password_entries set website=?, username=?, password=?, strength=?, updated_at=?
			where id=? and user_id=?`
	res, err := r.db.ExecContext(ctx, query,
		e.Website, e.Username, e.Password, string(e.Strength), e.UpdatedAt.UnixNano(), e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return expectOneRow(res.RowsAffected())
}

func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]*models.StoredEntry, error) {
	query := `select id, user_id, website, username, password, strength, created_at, updated_at
			from password_entries where user_id=? order by created_at, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []*models.StoredEntry
	for rows.Next() {
		var (
			item             models.StoredEntry
			strength         string
			created, updated int64
		)
		if err := rows.Scan(&item.ID, &item.UserID, &item.Website, &item.Username, &item.Password,
			&strength, &created, &updated); err != nil {
			return nil, err
		}
		item.Strength = models.Strength(strength)
		item.CreatedAt = time.Unix(0, created).UTC()
		item.UpdatedAt = time.Unix(0, updated).UTC()
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from password_entries where id=? and user_id=?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return expectOneRow(res.RowsAffected())
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `delete from password_entries where user_id=?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
