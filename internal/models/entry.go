package models

import "time"

// Strength is a coarse quality label computed from a plaintext password. It is
// stored unencrypted.
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// StoredEntry is the persisted form of a password entry. Website, Username
// and Password are independent cipher blobs.
type StoredEntry struct {
	ID        string
	UserID    string
	Website   string
	Username  string
	Password  string
	Strength  Strength
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry is the decrypted view held in an unlocked session.
type Entry struct {
	ID        string
	Website   string
	Username  string
	Password  string
	Strength  Strength
	CreatedAt time.Time
	UpdatedAt time.Time
}
