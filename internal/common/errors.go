// Package common defines shared sentinel errors and small helpers used across
// gophvault packages. Callers should use errors.Is to match the error kinds.
package common

import "errors"

var (
	// ErrValidation reports malformed or missing input. The caller can fix the
	// input and retry; no state was changed.
	ErrValidation = errors.New("validation error")

	// ErrAuth reports a wrong vault password, a failed 2FA code or a failed
	// recovery proof.
	ErrAuth = errors.New("authentication failed")

	// ErrDecryption reports an AEAD tag mismatch or a malformed blob. It is
	// fatal to the current unlock or read attempt.
	ErrDecryption = errors.New("decryption failed")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrCapacity is surfaced when a collaborator (store, limiter) refuses
	// work because of a limit.
	ErrCapacity = errors.New("capacity exceeded")

	// Vault state errors.
	ErrLocked  = errors.New("vault is locked")
	ErrNoVault = errors.New("vault does not exist")
)
