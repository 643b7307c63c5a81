package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Hash returns the hex encoded SHA-256 digest of input. It backs the
// verification gates (vault password, recovery answers, recovery key) and
// must never be used to derive encryption keys; see KDF for that.
func Hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// NormalizeAnswer lower-cases and trims a security answer so trivial
// formatting differences do not fail verification.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// HashAnswer hashes a normalized security answer.
func HashAnswer(answer string) string {
	return Hash(NormalizeAnswer(answer))
}

// HashMatches reports whether the digest of input equals hash, comparing in
// constant time.
func HashMatches(hash, input string) bool {
	return EqualDigests(hash, Hash(input))
}

// EqualDigests compares two hex digests in constant time. Empty digests never
// match.
func EqualDigests(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
