package secretgen

import (
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophvault/internal/models"
)

// Classify rates a plaintext password:
//
//	weak    shorter than 6 characters, or a single character class
//	strong  at least 12 characters and at least 3 classes
//	medium  everything else
func Classify(password string) models.Strength {
	length := utf8.RuneCountInString(password)
	classes := characterClasses(password)

	switch {
	case length < 6 || classes <= 1:
		return models.StrengthWeak
	case length >= 12 && classes >= 3:
		return models.StrengthStrong
	default:
		return models.StrengthMedium
	}
}

func characterClasses(s string) int {
	var upper, lower, digit, other bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}

	n := 0
	for _, present := range []bool{upper, lower, digit, other} {
		if present {
			n++
		}
	}
	return n
}
