package vault

import (
	"fmt"
	"runtime"

	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"golang.org/x/sync/errgroup"
)

// decryptAll opens every stored entry in parallel, bounded by the CPU count.
// It returns only after every entry was attempted; the first failure wins and
// no partial result is returned.
func decryptAll(c *cryptox.Cipher, password string, rows []*models.StoredEntry) ([]models.Entry, error) {
	out := make([]models.Entry, len(rows))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			e, err := openEntry(c, password, row)
			if err != nil {
				return err
			}
			out[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		clear(out)
		return nil, err
	}
	return out, nil
}

// encryptAll seals plain entries for userID in parallel, keeping ids and
// timestamps.
func encryptAll(c *cryptox.Cipher, password, userID string, plain []models.Entry) ([]*models.StoredEntry, error) {
	out := make([]*models.StoredEntry, len(plain))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, e := range plain {
		i, e := i, e
		g.Go(func() error {
			sealed, err := sealEntry(c, password, userID, e)
			if err != nil {
				return err
			}
			out[i] = sealed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func openEntry(c *cryptox.Cipher, password string, row *models.StoredEntry) (models.Entry, error) {
	fields := [3]string{row.Website, row.Username, row.Password}
	for i := range fields {
		v, err := c.DecryptField(fields[i], password)
		if err != nil {
			return models.Entry{}, fmt.Errorf("entry %s: %w", row.ID, err)
		}
		fields[i] = v
	}
	return models.Entry{
		ID:        row.ID,
		Website:   fields[0],
		Username:  fields[1],
		Password:  fields[2],
		Strength:  row.Strength,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// sealEntry encrypts the three fields independently, each with its own salt
// and nonce.
func sealEntry(c *cryptox.Cipher, password, userID string, e models.Entry) (*models.StoredEntry, error) {
	fields := [3]string{e.Website, e.Username, e.Password}
	for i := range fields {
		v, err := c.EncryptField(fields[i], password)
		if err != nil {
			return nil, fmt.Errorf("encrypt entry: %w", err)
		}
		fields[i] = v
	}
	return &models.StoredEntry{
		ID:        e.ID,
		UserID:    userID,
		Website:   fields[0],
		Username:  fields[1],
		Password:  fields[2],
		Strength:  e.Strength,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}, nil
}
