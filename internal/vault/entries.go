package vault

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/secretgen"
	"github.com/google/uuid"
)

// ImportRow is one plaintext credential to import.
type ImportRow struct {
	Website  string
	Username string
	Password string
}

// ImportResult counts the outcome of a bulk import. Errors holds one error
// per failed row, in input order.
type ImportResult struct {
	Imported int
	Failed   int
	Errors   []error
}

func validateEntry(website, username, password string) error {
	switch {
	case strings.TrimSpace(website) == "":
		return fmt.Errorf("%w: website is required", common.ErrValidation)
	case strings.TrimSpace(username) == "":
		return fmt.Errorf("%w: username is required", common.ErrValidation)
	case password == "":
		return fmt.Errorf("%w: password is required", common.ErrValidation)
	}
	return nil
}

// timestamp is truncated to microseconds so it survives a round trip through
// either store unchanged.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// unlocked resolves the user and returns its session. On success s.mu is held
// and the caller must call the returned unlock func.
func (s *Service) unlocked(ctx context.Context) (*Session, func(), error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	sess, err := s.activeSession(userID)
	if err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}
	return sess, s.mu.Unlock, nil
}

// addLocked seals and persists one entry. Callers hold s.mu.
func (s *Service) addLocked(ctx context.Context, sess *Session, website, username, password string) (models.Entry, error) {
	if err := validateEntry(website, username, password); err != nil {
		return models.Entry{}, err
	}

	now := s.timestamp()
	e := models.Entry{
		ID:        uuid.NewString(),
		Website:   strings.TrimSpace(website),
		Username:  strings.TrimSpace(username),
		Password:  password,
		Strength:  secretgen.Classify(password),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var sealed *models.StoredEntry
	err := sess.withPassword(func(pw string) (err error) {
		sealed, err = sealEntry(s.cipher, pw, sess.userID, e)
		return err
	})
	if err != nil {
		return models.Entry{}, err
	}
	if err := s.repos.Entries(s.db).Insert(ctx, sealed); err != nil {
		return models.Entry{}, fmt.Errorf("store entry: %w", err)
	}

	sess.put(e)
	return e, nil
}

// Add encrypts and stores a new entry and returns its plaintext view.
func (s *Service) Add(ctx context.Context, website, username, password string) (models.Entry, error) {
	sess, unlock, err := s.unlocked(ctx)
	if err != nil {
		return models.Entry{}, err
	}
	defer unlock()

	e, err := s.addLocked(ctx, sess, website, username, password)
	if err != nil {
		return models.Entry{}, err
	}
	s.log.Info(ctx, "entry added", "user_id", sess.userID, "entry_id", e.ID, "strength", e.Strength)
	return e, nil
}

// List returns the decrypted working set loaded at unlock, oldest first.
// A user without a vault gets an empty list.
func (s *Service) List(ctx context.Context) ([]models.Entry, error) {
	sess, unlock, err := s.unlocked(ctx)
	if errors.Is(err, common.ErrLocked) {
		userID, uerr := s.userID(ctx)
		if uerr != nil {
			return nil, uerr
		}
		if _, serr := s.loadSettings(ctx, userID); errors.Is(serr, common.ErrNoVault) {
			return []models.Entry{}, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	defer unlock()
	return sess.list(), nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Entry, error) {
	sess, unlock, err := s.unlocked(ctx)
	if err != nil {
		return models.Entry{}, err
	}
	defer unlock()

	e, ok := sess.entries[id]
	if !ok {
		return models.Entry{}, fmt.Errorf("entry %s: %w", id, common.ErrNotFound)
	}
	return e, nil
}

// Update replaces all three fields of an entry, re-encrypting each of them.
func (s *Service) Update(ctx context.Context, id, website, username, password string) (models.Entry, error) {
	if err := validateEntry(website, username, password); err != nil {
		return models.Entry{}, err
	}
	sess, unlock, err := s.unlocked(ctx)
	if err != nil {
		return models.Entry{}, err
	}
	defer unlock()

	e, ok := sess.entries[id]
	if !ok {
		return models.Entry{}, fmt.Errorf("entry %s: %w", id, common.ErrNotFound)
	}
	e.Website = strings.TrimSpace(website)
	e.Username = strings.TrimSpace(username)
	e.Password = password
	e.Strength = secretgen.Classify(password)
	e.UpdatedAt = s.timestamp()

	var sealed *models.StoredEntry
	err = sess.withPassword(func(pw string) (err error) {
		sealed, err = sealEntry(s.cipher, pw, sess.userID, e)
		return err
	})
	if err != nil {
		return models.Entry{}, err
	}
	if err := s.repos.Entries(s.db).Update(ctx, sealed); err != nil {
		return models.Entry{}, fmt.Errorf("update entry: %w", err)
	}

	sess.put(e)
	s.log.Info(ctx, "entry updated", "user_id", sess.userID, "entry_id", id)
	return e, nil
}

// Delete removes an entry owned by the current user.
func (s *Service) Delete(ctx context.Context, id string) error {
	sess, unlock, err := s.unlocked(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.repos.Entries(s.db).Delete(ctx, sess.userID, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("entry %s: %w", id, err)
		}
		return fmt.Errorf("delete entry: %w", err)
	}

	sess.remove(id)
	s.log.Info(ctx, "entry deleted", "user_id", sess.userID, "entry_id", id)
	return nil
}

// ImportBulk adds every row independently. A failing row is counted and the
// import carries on with the next one.
func (s *Service) ImportBulk(ctx context.Context, rows []ImportRow) (ImportResult, error) {
	sess, unlock, err := s.unlocked(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	defer unlock()

	var res ImportResult
	for i, r := range rows {
		if _, err := s.addLocked(ctx, sess, r.Website, r.Username, r.Password); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Errorf("row %d: %w", i+1, err))
			continue
		}
		res.Imported++
	}

	s.log.Info(ctx, "entries imported", "user_id", sess.userID, "imported", res.Imported, "failed", res.Failed)
	return res, nil
}

// ImportCSV reads website,username,password records from r and imports them
// with ImportBulk. A first line naming the columns is recognised and may put
// them in any order ("url" and "login" are accepted as aliases). Records with
// fewer columns than needed fail individually.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: read csv: %v", common.ErrValidation, err)
	}

	cols := [3]int{0, 1, 2}
	if len(records) > 0 {
		if hdr, ok := csvHeader(records[0]); ok {
			cols = hdr
			records = records[1:]
		}
	}

	rows := make([]ImportRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, ImportRow{
			Website:  field(rec, cols[0]),
			Username: field(rec, cols[1]),
			Password: field(rec, cols[2]),
		})
	}
	return s.ImportBulk(ctx, rows)
}

func csvHeader(rec []string) ([3]int, bool) {
	cols := [3]int{-1, -1, -1}
	for i, name := range rec {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "website", "url":
			cols[0] = i
		case "username", "login":
			cols[1] = i
		case "password":
			cols[2] = i
		}
	}
	for _, c := range cols {
		if c < 0 {
			return [3]int{}, false
		}
	}
	return cols, true
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return rec[i]
}
