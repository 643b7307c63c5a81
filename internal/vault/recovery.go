package vault

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/secretgen"
)

// RecoveryProof is one way of proving ownership when the vault password is
// lost: QuestionsProof, RecoveryKeyProof or EmailTokenProof.
type RecoveryProof interface {
	method() string
	validate() error
	matches(st *models.VaultSettings, now time.Time) bool
}

// QuestionsProof answers both security questions. Both must match.
type QuestionsProof struct {
	Answer1 string
	Answer2 string
}

func (QuestionsProof) method() string { return "questions" }

func (p QuestionsProof) validate() error {
	if strings.TrimSpace(p.Answer1) == "" || strings.TrimSpace(p.Answer2) == "" {
		return fmt.Errorf("%w: both answers are required", common.ErrValidation)
	}
	return nil
}

func (p QuestionsProof) matches(st *models.VaultSettings, _ time.Time) bool {
	// evaluate both so timing does not reveal which answer was wrong
	ok1 := cryptox.EqualDigests(st.Recovery.Answer1Hash, cryptox.HashAnswer(p.Answer1))
	ok2 := cryptox.EqualDigests(st.Recovery.Answer2Hash, cryptox.HashAnswer(p.Answer2))
	return ok1 && ok2
}

// RecoveryKeyProof presents the key shown once at setup.
type RecoveryKeyProof struct {
	Key string
}

func (RecoveryKeyProof) method() string { return "recovery_key" }

func (p RecoveryKeyProof) validate() error {
	if strings.TrimSpace(p.Key) == "" {
		return fmt.Errorf("%w: recovery key is required", common.ErrValidation)
	}
	return nil
}

func (p RecoveryKeyProof) matches(st *models.VaultSettings, _ time.Time) bool {
	return cryptox.EqualDigests(st.Recovery.KeyHash, cryptox.Hash(secretgen.NormalizeRecoveryKey(p.Key)))
}

// EmailTokenProof presents a token delivered by RequestEmailRecovery.
type EmailTokenProof struct {
	Token string
}

func (EmailTokenProof) method() string { return "email" }

func (p EmailTokenProof) validate() error {
	if strings.TrimSpace(p.Token) == "" {
		return fmt.Errorf("%w: recovery token is required", common.ErrValidation)
	}
	return nil
}

func (p EmailTokenProof) matches(st *models.VaultSettings, now time.Time) bool {
	if st.EmailTokenHash == "" || !now.Before(st.EmailTokenExpires) {
		return false
	}
	return cryptox.EqualDigests(st.EmailTokenHash, cryptox.Hash(normalizeToken(p.Token)))
}

// normalizeToken accepts the hex token in either case.
func normalizeToken(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// RecoverResult reports how many entries were purged. Entries are sealed
// under the forgotten password and can never be opened again, so recovery
// deletes them together with the password change.
type RecoverResult struct {
	PurgedEntries int64
}

// RecoveryPrompt is what a recovery screen shows before asking for a proof.
type RecoveryPrompt struct {
	Question1      string
	Question2      string
	EmailAvailable bool
}

// RecoveryQuestions returns the two security questions of the vault and
// whether email recovery can be used.
func (s *Service) RecoveryQuestions(ctx context.Context) (RecoveryPrompt, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return RecoveryPrompt{}, err
	}
	st, err := s.loadSettings(ctx, userID)
	if err != nil {
		return RecoveryPrompt{}, err
	}
	return RecoveryPrompt{
		Question1:      st.Recovery.Question1,
		Question2:      st.Recovery.Question2,
		EmailAvailable: st.RecoveryEmail != "" && s.mailer != nil,
	}, nil
}

// Recover replaces the vault password after proof of ownership. The new
// password is validated before the proof is checked. Every existing entry is
// deleted in the same transaction as the password change and the vault is
// left Locked.
func (s *Service) Recover(ctx context.Context, proof RecoveryProof, newPassword, confirm string) (RecoverResult, error) {
	if err := validateNewPassword(newPassword, confirm); err != nil {
		return RecoverResult{}, err
	}
	if proof == nil {
		return RecoverResult{}, fmt.Errorf("%w: recovery method is required", common.ErrValidation)
	}
	if err := proof.validate(); err != nil {
		return RecoverResult{}, err
	}

	userID, err := s.userID(ctx)
	if err != nil {
		return RecoverResult{}, err
	}
	if err := s.limiter.Allow(ctx, "recover:"+userID); err != nil {
		s.log.Warn(ctx, "recovery throttled", "user_id", userID)
		return RecoverResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadSettings(ctx, userID)
	if err != nil {
		return RecoverResult{}, err
	}
	if !proof.matches(st, s.now()) {
		s.log.Warn(ctx, "recovery rejected", "user_id", userID, "method", proof.method())
		return RecoverResult{}, fmt.Errorf("%w: recovery proof did not match", common.ErrAuth)
	}

	var purged int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repos.Entries(tx).DeleteAll(ctx, userID)
		if err != nil {
			return err
		}
		purged = n

		st.PasswordHash = cryptox.Hash(newPassword)
		st.EmailTokenHash = ""
		st.EmailTokenExpires = time.Time{}
		st.UpdatedAt = s.now().UTC()
		return s.repos.Settings(tx).Upsert(ctx, st)
	})
	if err != nil {
		s.log.Error(ctx, "recovery failed", "user_id", userID, "error", err)
		return RecoverResult{}, fmt.Errorf("recover vault: %w", err)
	}

	if s.session != nil && s.session.userID == userID {
		s.dropSession()
	}
	_ = s.limiter.Reset(ctx, "recover:"+userID)
	_ = s.limiter.Reset(ctx, "unlock:"+userID)

	s.log.Warn(ctx, "vault password recovered", "user_id", userID, "method", proof.method(), "purged_entries", purged)
	return RecoverResult{PurgedEntries: purged}, nil
}

// RequestEmailRecovery mails a one-time token to the recovery address. Only
// the token's hash is stored; a new request replaces any pending token.
func (s *Service) RequestEmailRecovery(ctx context.Context) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	if s.mailer == nil {
		return fmt.Errorf("%w: email recovery is not configured", common.ErrValidation)
	}
	if err := s.limiter.Allow(ctx, "recover-email:"+userID); err != nil {
		s.log.Warn(ctx, "recovery email throttled", "user_id", userID)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadSettings(ctx, userID)
	if err != nil {
		return err
	}
	if st.RecoveryEmail == "" {
		return fmt.Errorf("%w: no recovery email on file", common.ErrValidation)
	}

	token, err := common.MakeRandHexString(16)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	now := s.now().UTC()
	st.EmailTokenHash = cryptox.Hash(token)
	st.EmailTokenExpires = now.Add(s.tokenTTL)
	st.UpdatedAt = now
	if err := s.repos.Settings(s.db).Upsert(ctx, st); err != nil {
		return fmt.Errorf("store recovery token: %w", err)
	}

	body := fmt.Sprintf("Your gophvault recovery token is:\n\n    %s\n\nIt expires at %s. Recovering the vault deletes every stored password.\n",
		token, st.EmailTokenExpires.Format(time.RFC1123))
	if err := s.mailer.Send(ctx, st.RecoveryEmail, "gophvault recovery token", body); err != nil {
		s.log.Error(ctx, "recovery email failed", "user_id", userID, "error", err)
		return fmt.Errorf("send recovery email: %w", err)
	}

	s.log.Info(ctx, "recovery email sent", "user_id", userID)
	return nil
}
