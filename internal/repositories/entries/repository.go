// Package entries persists encrypted password entries. Every method is scoped
// by user id; rows belonging to another user are invisible.
package entries

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/models"
)

type Repository interface {
	// Insert stores a new entry.
	Insert(ctx context.Context, e *models.StoredEntry) error

	// Update replaces the encrypted fields, strength and updated_at of an
	// entry owned by e.UserID. Returns common.ErrNotFound when no such row.
	Update(ctx context.Context, e *models.StoredEntry) error

	// List returns the user's entries ordered by creation time.
	List(ctx context.Context, userID string) ([]*models.StoredEntry, error)

	// Delete removes one entry. Returns common.ErrNotFound when the entry
	// does not exist or is not owned by userID.
	Delete(ctx context.Context, userID, id string) error

	// DeleteAll removes every entry of the user and reports how many rows went.
	DeleteAll(ctx context.Context, userID string) (int64, error)
}
