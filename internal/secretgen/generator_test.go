package secretgen

import (
	"regexp"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePassword_RespectsClasses(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		allowed string
	}{
		{"upper only", Options{Length: 40, Upper: true}, UpperChars},
		{"lower only", Options{Length: 40, Lower: true}, LowerChars},
		{"numbers only", Options{Length: 40, Numbers: true}, NumberChars},
		{"symbols only", Options{Length: 40, Symbols: true}, SymbolChars},
		{"upper and numbers", Options{Length: 40, Upper: true, Numbers: true}, UpperChars + NumberChars},
		{"all", DefaultOptions(), UpperChars + LowerChars + NumberChars + SymbolChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pw, err := GeneratePassword(tt.opts)
			require.NoError(t, err)
			assert.Len(t, pw, tt.opts.Length)
			for _, r := range pw {
				assert.True(t, strings.ContainsRune(tt.allowed, r), "unexpected char %q", r)
			}
		})
	}
}

func TestGeneratePassword_NoClassesFails(t *testing.T) {
	_, err := GeneratePassword(Options{Length: 12})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestGeneratePassword_BadLength(t *testing.T) {
	for _, n := range []int{0, -1, MaxPasswordLength + 1} {
		_, err := GeneratePassword(Options{Length: n, Lower: true})
		require.ErrorIs(t, err, common.ErrValidation, "length %d", n)
	}
}

func TestGeneratePassword_Distinct(t *testing.T) {
	a, err := GeneratePassword(DefaultOptions())
	require.NoError(t, err)
	b, err := GeneratePassword(DefaultOptions())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGenerateRecoveryKey_Format(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		k, err := GenerateRecoveryKey()
		require.NoError(t, err)
		assert.Regexp(t, re, k)
		seen[k] = true
	}
	assert.Len(t, seen, 20)
}

func TestNormalizeRecoveryKey(t *testing.T) {
	assert.Equal(t, "AB12-CD34-EF56-GH78", NormalizeRecoveryKey("  ab12-cd34-ef56-gh78\n"))
}

func TestGenerate2FASecret_Format(t *testing.T) {
	s, err := Generate2FASecret()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z2-7]{32}$`), s)
}

func TestClassify(t *testing.T) {
	tests := map[string]models.Strength{
		"":                     models.StrengthWeak,
		"abc1":                 models.StrengthWeak,
		"abcdefghijkl":         models.StrengthWeak,
		"123456789012":         models.StrengthWeak,
		"hunter2":              models.StrengthMedium,
		"Password1":            models.StrengthMedium,
		"abcdefghijk1":         models.StrengthMedium,
		"Sup3rSecret!":         models.StrengthStrong,
		"correct-Horse-staple": models.StrengthStrong,
	}
	for pw, want := range tests {
		assert.Equal(t, want, Classify(pw), "password %q", pw)
	}
}
