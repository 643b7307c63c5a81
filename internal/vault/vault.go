// Package vault implements the password vault lifecycle: setup, unlock and
// lock, recovery, destructive reset and the encrypted entry manager.
//
// A Service holds at most one unlocked Session. Every store call carries the
// user id resolved from the identity provider; nothing relies on ambient
// trust in the store.
package vault

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/identity"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/mailer"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/repositories/entries"
	"github.com/dmitrijs2005/gophvault/internal/repositories/settings"
	"github.com/dmitrijs2005/gophvault/internal/secretgen"
	"github.com/dmitrijs2005/gophvault/internal/throttle"
	"github.com/dmitrijs2005/gophvault/internal/totp"
)

const (
	// ResetPhrase must be typed exactly to destroy a vault.
	ResetPhrase = "DELETE ALL PASSWORDS"

	MinPasswordLength = 8
	Issuer            = "gophvault"
)

// DB is the database handle the service runs queries and transactions on.
// *sql.DB satisfies it.
type DB interface {
	dbx.DBTX
	dbx.Beginner
}

// Repositories builds store repositories bound to a handle or transaction.
// repomanager.RepositoryManager satisfies it.
type Repositories interface {
	Settings(db dbx.DBTX) settings.Repository
	Entries(db dbx.DBTX) entries.Repository
}

type Service struct {
	db       DB
	repos    Repositories
	identity identity.Provider
	cipher   *cryptox.Cipher

	limiter  throttle.Limiter
	mailer   mailer.Mailer
	log      logging.Logger
	now      func() time.Time
	tokenTTL time.Duration

	mu      sync.Mutex
	session *Session
}

type Option func(*Service)

func WithLimiter(l throttle.Limiter) Option { return func(s *Service) { s.limiter = l } }
func WithMailer(m mailer.Mailer) Option     { return func(s *Service) { s.mailer = m } }
func WithLogger(l logging.Logger) Option    { return func(s *Service) { s.log = l } }

// WithClock replaces time.Now, used for TOTP windows, timestamps and token expiry.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithRecoveryTokenTTL sets how long an emailed recovery token stays valid.
func WithRecoveryTokenTTL(d time.Duration) Option { return func(s *Service) { s.tokenTTL = d } }

// NewService wires a vault service. Without options attempts are not
// throttled, email recovery is unavailable and nothing is logged.
func NewService(db DB, repos Repositories, id identity.Provider, cipher *cryptox.Cipher, opts ...Option) *Service {
	s := &Service{
		db:       db,
		repos:    repos,
		identity: id,
		cipher:   cipher,
		limiter:  throttle.Unlimited{},
		log:      logging.Nop(),
		now:      time.Now,
		tokenTTL: 15 * time.Minute,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) userID(ctx context.Context) (string, error) {
	id, err := s.identity.UserID(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve user: %w", err)
	}
	return id, nil
}

func (s *Service) loadSettings(ctx context.Context, userID string) (*models.VaultSettings, error) {
	st, err := s.repos.Settings(s.db).Get(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNoVault
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return st, nil
}

// activeSession returns the session for userID or ErrLocked. Callers hold s.mu.
func (s *Service) activeSession(userID string) (*Session, error) {
	if s.session == nil || s.session.userID != userID {
		return nil, common.ErrLocked
	}
	return s.session, nil
}

// dropSession destroys the current session. Callers hold s.mu.
func (s *Service) dropSession() {
	s.session.destroy()
	s.session = nil
}

// State reports where the current user's vault is in its lifecycle.
func (s *Service) State(ctx context.Context) (State, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return StateNoVault, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.activeSession(userID); err == nil {
		return StateUnlocked, nil
	}
	if _, err := s.loadSettings(ctx, userID); err != nil {
		if errors.Is(err, common.ErrNoVault) {
			return StateNoVault, nil
		}
		return StateNoVault, err
	}
	return StateLocked, nil
}

// TwoFactorRequired reports whether Unlock needs a TOTP code.
func (s *Service) TwoFactorRequired(ctx context.Context) (bool, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return false, err
	}
	st, err := s.loadSettings(ctx, userID)
	if err != nil {
		return false, err
	}
	return st.TwoFactorEnabled, nil
}

// TwoFactorEnrollment is a freshly generated 2FA secret and the otpauth URI
// an authenticator app scans to enroll it.
type TwoFactorEnrollment struct {
	Secret string
	URI    string
}

// BeginSetup generates a 2FA secret for the caller to enroll before calling
// Setup or EnableTwoFactor with a code from the authenticator.
func (s *Service) BeginSetup(ctx context.Context) (TwoFactorEnrollment, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return TwoFactorEnrollment{}, err
	}
	secret, err := secretgen.Generate2FASecret()
	if err != nil {
		return TwoFactorEnrollment{}, err
	}
	return TwoFactorEnrollment{Secret: secret, URI: totp.ProvisioningURI(secret, userID, Issuer)}, nil
}

type SetupRequest struct {
	Password        string
	ConfirmPassword string

	Question1, Answer1 string
	Question2, Answer2 string

	// RecoveryEmail is optional and enables email recovery.
	RecoveryEmail string

	// EnableTwoFactor requires TwoFactorSecret (from BeginSetup) and a
	// current TwoFactorCode for it.
	EnableTwoFactor bool
	TwoFactorSecret string
	TwoFactorCode   string
}

// SetupResult carries the recovery key. It is shown exactly once and cannot
// be retrieved again.
type SetupResult struct {
	RecoveryKey string
}

func validateNewPassword(password, confirm string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, MinPasswordLength)
	}
	if password != confirm {
		return fmt.Errorf("%w: passwords do not match", common.ErrValidation)
	}
	return nil
}

func (s *Service) validateSetup(req SetupRequest) error {
	if err := validateNewPassword(req.Password, req.ConfirmPassword); err != nil {
		return err
	}
	for _, f := range []string{req.Question1, req.Answer1, req.Question2, req.Answer2} {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("%w: both security questions and answers are required", common.ErrValidation)
		}
	}
	if req.RecoveryEmail != "" {
		if _, err := mail.ParseAddress(req.RecoveryEmail); err != nil {
			return fmt.Errorf("%w: invalid recovery email", common.ErrValidation)
		}
	}
	if req.EnableTwoFactor {
		if req.TwoFactorSecret == "" {
			return fmt.Errorf("%w: missing two-factor secret", common.ErrValidation)
		}
		if !totp.Verify(req.TwoFactorSecret, req.TwoFactorCode, s.now()) {
			return fmt.Errorf("%w: two-factor code did not verify", common.ErrValidation)
		}
	}
	return nil
}

// Setup creates the vault, replacing any existing one for the user together
// with its entries. All input is validated before anything is hashed or
// stored. The vault ends up Locked.
func (s *Service) Setup(ctx context.Context, req SetupRequest) (SetupResult, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return SetupResult{}, err
	}
	if err := s.validateSetup(req); err != nil {
		return SetupResult{}, err
	}

	key, err := secretgen.GenerateRecoveryKey()
	if err != nil {
		return SetupResult{}, err
	}

	now := s.now().UTC()
	st := &models.VaultSettings{
		UserID:       userID,
		PasswordHash: cryptox.Hash(req.Password),
		Recovery: models.RecoveryData{
			Question1:   strings.TrimSpace(req.Question1),
			Answer1Hash: cryptox.HashAnswer(req.Answer1),
			Question2:   strings.TrimSpace(req.Question2),
			Answer2Hash: cryptox.HashAnswer(req.Answer2),
			KeyHash:     cryptox.Hash(secretgen.NormalizeRecoveryKey(key)),
		},
		RecoveryEmail: strings.TrimSpace(req.RecoveryEmail),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.EnableTwoFactor {
		st.TwoFactorEnabled = true
		st.TwoFactorSecret = strings.ToUpper(strings.TrimSpace(req.TwoFactorSecret))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repos.Entries(tx).DeleteAll(ctx, userID)
		if err != nil {
			return err
		}
		purged = n
		if err := s.repos.Settings(tx).Delete(ctx, userID); err != nil {
			return err
		}
		return s.repos.Settings(tx).Upsert(ctx, st)
	})
	if err != nil {
		s.log.Error(ctx, "vault setup failed", "user_id", userID, "error", err)
		return SetupResult{}, fmt.Errorf("setup vault: %w", err)
	}

	if s.session != nil && s.session.userID == userID {
		s.dropSession()
	}

	s.log.Info(ctx, "vault created", "user_id", userID, "two_factor", st.TwoFactorEnabled, "purged_entries", purged)
	return SetupResult{RecoveryKey: key}, nil
}

// Unlock verifies the password (and the TOTP code when 2FA is on), then
// loads and decrypts every entry. Any entry failing to decrypt aborts the
// unlock and leaves the vault Locked.
func (s *Service) Unlock(ctx context.Context, password, totpCode string) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	if err := s.limiter.Allow(ctx, "unlock:"+userID); err != nil {
		s.log.Warn(ctx, "unlock throttled", "user_id", userID)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// a failed attempt never leaves an older session behind
	s.dropSession()

	st, err := s.loadSettings(ctx, userID)
	if err != nil {
		return err
	}

	if !cryptox.HashMatches(st.PasswordHash, password) {
		s.log.Warn(ctx, "unlock rejected", "user_id", userID, "reason", "password")
		return fmt.Errorf("%w: wrong vault password", common.ErrAuth)
	}
	if st.TwoFactorEnabled && !totp.Verify(st.TwoFactorSecret, totpCode, s.now()) {
		s.log.Warn(ctx, "unlock rejected", "user_id", userID, "reason", "two_factor")
		return fmt.Errorf("%w: invalid two-factor code", common.ErrAuth)
	}

	rows, err := s.repos.Entries(s.db).List(ctx, userID)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}

	plain, err := decryptAll(s.cipher, password, rows)
	if err != nil {
		s.log.Error(ctx, "unlock aborted, entry failed to decrypt", "user_id", userID, "entries", len(rows))
		return err
	}

	sess, err := newSession(userID, password, plain)
	if err != nil {
		return err
	}
	s.session = sess
	_ = s.limiter.Reset(ctx, "unlock:"+userID)

	s.log.Info(ctx, "vault unlocked", "user_id", userID, "entries", len(plain))
	return nil
}

// Lock discards the session password and every decrypted entry. It always
// succeeds and may be called any number of times.
func (s *Service) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropSession()
}

// Reset irreversibly deletes the vault and all its entries. phrase must equal
// ResetPhrase exactly.
func (s *Service) Reset(ctx context.Context, phrase string) error {
	if phrase != ResetPhrase {
		return fmt.Errorf("%w: confirmation phrase does not match", common.ErrValidation)
	}
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repos.Entries(tx).DeleteAll(ctx, userID)
		if err != nil {
			return err
		}
		purged = n
		return s.repos.Settings(tx).Delete(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("reset vault: %w", err)
	}

	if s.session != nil && s.session.userID == userID {
		s.dropSession()
	}
	s.log.Warn(ctx, "vault reset", "user_id", userID, "deleted_entries", purged)
	return nil
}

// ChangePassword re-encrypts every stored entry under newPassword and
// replaces the password hash in one transaction. Requires Unlocked.
func (s *Service) ChangePassword(ctx context.Context, current, newPassword, confirm string) error {
	if err := validateNewPassword(newPassword, confirm); err != nil {
		return err
	}
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.activeSession(userID)
	if err != nil {
		return err
	}
	st, err := s.loadSettings(ctx, userID)
	if err != nil {
		return err
	}
	if !cryptox.HashMatches(st.PasswordHash, current) {
		return fmt.Errorf("%w: wrong vault password", common.ErrAuth)
	}

	var plain []models.Entry
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rows, err := s.repos.Entries(tx).List(ctx, userID)
		if err != nil {
			return err
		}
		plain, err = decryptAll(s.cipher, current, rows)
		if err != nil {
			return err
		}
		sealed, err := encryptAll(s.cipher, newPassword, userID, plain)
		if err != nil {
			return err
		}
		for _, e := range sealed {
			if err := s.repos.Entries(tx).Update(ctx, e); err != nil {
				return fmt.Errorf("re-encrypt entry %s: %w", e.ID, err)
			}
		}

		st.PasswordHash = cryptox.Hash(newPassword)
		st.UpdatedAt = s.now().UTC()
		return s.repos.Settings(tx).Upsert(ctx, st)
	})
	if err != nil {
		s.log.Error(ctx, "password change failed", "user_id", userID, "error", err)
		return fmt.Errorf("change password: %w", err)
	}

	next, err := newSession(userID, newPassword, plain)
	if err != nil {
		return err
	}
	sess.destroy()
	s.session = next

	s.log.Info(ctx, "vault password changed", "user_id", userID, "entries", len(plain))
	return nil
}

// EnableTwoFactor turns on 2FA with secret once code verifies against it.
// Requires Unlocked.
func (s *Service) EnableTwoFactor(ctx context.Context, secret, code string) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.activeSession(userID); err != nil {
		return err
	}
	if strings.TrimSpace(secret) == "" || !totp.Verify(secret, code, s.now()) {
		return fmt.Errorf("%w: two-factor code did not verify", common.ErrValidation)
	}

	st, err := s.loadSettings(ctx, userID)
	if err != nil {
		return err
	}
	st.TwoFactorEnabled = true
	st.TwoFactorSecret = strings.ToUpper(strings.TrimSpace(secret))
	st.UpdatedAt = s.now().UTC()
	if err := s.repos.Settings(s.db).Upsert(ctx, st); err != nil {
		return fmt.Errorf("enable two-factor: %w", err)
	}

	s.log.Info(ctx, "two-factor enabled", "user_id", userID)
	return nil
}

// DisableTwoFactor turns 2FA off after checking a current code. Requires
// Unlocked.
func (s *Service) DisableTwoFactor(ctx context.Context, code string) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.activeSession(userID); err != nil {
		return err
	}
	st, err := s.loadSettings(ctx, userID)
	if err != nil {
		return err
	}
	if !st.TwoFactorEnabled {
		return fmt.Errorf("%w: two-factor is not enabled", common.ErrValidation)
	}
	if !totp.Verify(st.TwoFactorSecret, code, s.now()) {
		return fmt.Errorf("%w: invalid two-factor code", common.ErrAuth)
	}

	st.TwoFactorEnabled = false
	st.TwoFactorSecret = ""
	st.UpdatedAt = s.now().UTC()
	if err := s.repos.Settings(s.db).Upsert(ctx, st); err != nil {
		return fmt.Errorf("disable two-factor: %w", err)
	}

	s.log.Info(ctx, "two-factor disabled", "user_id", userID)
	return nil
}
