// Package totp implements RFC 6238 time-based one-time passwords as used by
// standard authenticator apps: HMAC-SHA1, 30 second period, 6 digits.
package totp

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	Period = 30
	Digits = 6
	// Skew is the number of periods accepted on either side of the current one.
	Skew = 1
)

var opts = totp.ValidateOpts{
	Period:    Period,
	Skew:      Skew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// CurrentCode returns the code for the period containing t.
func CurrentCode(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(normalize(secret), t, opts)
}

// Verify reports whether code is valid for the period containing t or the
// periods immediately before and after it. Malformed codes or secrets are
// simply invalid.
func Verify(secret, code string, t time.Time) bool {
	code = strings.TrimSpace(code)
	if len(code) != Digits {
		return false
	}
	ok, err := totp.ValidateCustom(code, normalize(secret), t, opts)
	if err != nil {
		return false
	}
	return ok
}

// ProvisioningURI builds the otpauth:// URI authenticator apps scan to
// enroll secret for account under issuer.
func ProvisioningURI(secret, account, issuer string) string {
	v := url.Values{}
	v.Set("secret", normalize(secret))
	v.Set("algorithm", "SHA1")
	v.Set("digits", strconv.Itoa(Digits))
	v.Set("period", strconv.Itoa(Period))
	if issuer != "" {
		v.Set("issuer", issuer)
	}

	label := account
	if issuer != "" {
		label = issuer + ":" + account
	}

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + label,
		RawQuery: v.Encode(),
	}
	return u.String()
}

func normalize(secret string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
}
