// Package settings persists the per-user vault settings row: password hash,
// two-factor state and recovery material.
package settings

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/models"
)

// Repository stores one VaultSettings row per user.
type Repository interface {
	// Get returns the settings for userID or common.ErrNotFound.
	Get(ctx context.Context, userID string) (*models.VaultSettings, error)

	// Upsert inserts the row or replaces every column of an existing one.
	Upsert(ctx context.Context, s *models.VaultSettings) error

	// Delete removes the row. Deleting a missing row is not an error.
	Delete(ctx context.Context, userID string) error
}
