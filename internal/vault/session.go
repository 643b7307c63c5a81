package vault

import (
	"fmt"
	"slices"
	"strings"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/models"
)

// Session is the state of one unlocked vault: the owner, the vault password
// sealed in a memguard enclave and the decrypted working set. A Session is
// owned by Service and guarded by its mutex.
type Session struct {
	userID   string
	password *memguard.Enclave
	entries  map[string]models.Entry
}

func newSession(userID, password string, entries []models.Entry) (*Session, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", common.ErrValidation)
	}

	s := &Session{
		userID: userID,
		// NewEnclave wipes its argument, so hand it a copy.
		password: memguard.NewEnclave([]byte(password)),
		entries:  make(map[string]models.Entry, len(entries)),
	}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return s, nil
}

// withPassword exposes the plaintext password to fn. The string is backed by
// locked memory that is wiped when fn returns, so fn must not retain it.
func (s *Session) withPassword(fn func(password string) error) error {
	buf, err := s.password.Open()
	if err != nil {
		return fmt.Errorf("open session key: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.String())
}

func (s *Session) list() []models.Entry {
	out := make([]models.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b models.Entry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (s *Session) put(e models.Entry) {
	s.entries[e.ID] = e
}

func (s *Session) remove(id string) {
	delete(s.entries, id)
}

// destroy drops the sealed password and every decrypted entry.
func (s *Session) destroy() {
	if s == nil {
		return
	}
	s.password = nil
	clear(s.entries)
	s.entries = nil
}
