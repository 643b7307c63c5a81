// Package secretgen produces random passwords, recovery keys and 2FA secrets,
// and classifies password strength.
package secretgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

const (
	UpperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	LowerChars  = "abcdefghijklmnopqrstuvwxyz"
	NumberChars = "0123456789"
	SymbolChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	// Base32Chars is the RFC 4648 base32 alphabet used for 2FA secrets.
	Base32Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

	recoveryKeyChars  = UpperChars + NumberChars
	recoveryKeyGroups = 4
	recoveryGroupLen  = 4

	TwoFactorSecretLength = 32
	MaxPasswordLength     = 256
)

// Options selects the length and character classes of a generated password.
type Options struct {
	Length  int
	Upper   bool
	Lower   bool
	Numbers bool
	Symbols bool
}

// DefaultOptions matches the generator defaults of the password manager UI.
func DefaultOptions() Options {
	return Options{Length: 16, Upper: true, Lower: true, Numbers: true, Symbols: true}
}

func (o Options) alphabet() string {
	var b strings.Builder
	if o.Upper {
		b.WriteString(UpperChars)
	}
	if o.Lower {
		b.WriteString(LowerChars)
	}
	if o.Numbers {
		b.WriteString(NumberChars)
	}
	if o.Symbols {
		b.WriteString(SymbolChars)
	}
	return b.String()
}

// GeneratePassword draws o.Length characters uniformly from the union of the
// enabled classes.
func GeneratePassword(o Options) (string, error) {
	if o.Length < 1 || o.Length > MaxPasswordLength {
		return "", fmt.Errorf("%w: length must be between 1 and %d", common.ErrValidation, MaxPasswordLength)
	}
	alphabet := o.alphabet()
	if alphabet == "" {
		return "", fmt.Errorf("%w: select at least one character class", common.ErrValidation)
	}
	return randomString(alphabet, o.Length)
}

// GenerateRecoveryKey returns four dash separated groups of four characters
// from [A-Z0-9], e.g. "K3F9-QX2M-7TRA-0BZL".
func GenerateRecoveryKey() (string, error) {
	groups := make([]string, recoveryKeyGroups)
	for i := range groups {
		g, err := randomString(recoveryKeyChars, recoveryGroupLen)
		if err != nil {
			return "", err
		}
		groups[i] = g
	}
	return strings.Join(groups, "-"), nil
}

// NormalizeRecoveryKey upper-cases and trims a typed recovery key so it
// hashes the same way as the generated one.
func NormalizeRecoveryKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Generate2FASecret returns a 32 character base32 secret.
func Generate2FASecret() (string, error) {
	return randomString(Base32Chars, TwoFactorSecretLength)
}

func randomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("random source: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
