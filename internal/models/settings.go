// Package models defines the vault data model shared by the store and the
// lifecycle service.
package models

import "time"

// RecoveryData holds the two plaintext security questions with the hashes of
// their normalized answers, plus the hash of the one-time recovery key.
type RecoveryData struct {
	Question1   string
	Answer1Hash string
	Question2   string
	Answer2Hash string
	KeyHash     string
}

// Complete reports whether every part of the recovery setup is present.
func (r RecoveryData) Complete() bool {
	return r.Question1 != "" && r.Answer1Hash != "" &&
		r.Question2 != "" && r.Answer2Hash != "" &&
		r.KeyHash != ""
}

// VaultSettings is the single per-user row describing how the vault unlocks.
type VaultSettings struct {
	UserID       string
	PasswordHash string

	// TwoFactorSecret is set iff TwoFactorEnabled.
	TwoFactorSecret  string
	TwoFactorEnabled bool

	Recovery      RecoveryData
	RecoveryEmail string

	// EmailTokenHash is the hash of a pending emailed reset token, valid until
	// EmailTokenExpires. Both are zero when no token is outstanding.
	EmailTokenHash    string
	EmailTokenExpires time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
