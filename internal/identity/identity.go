// Package identity resolves the user id the vault is scoped to.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Provider yields the current user's id.
type Provider interface {
	UserID(ctx context.Context) (string, error)
}

// StaticProvider always returns the configured id. Used for a local,
// single-user vault file.
type StaticProvider struct {
	id string
}

func NewStaticProvider(userID string) *StaticProvider {
	return &StaticProvider{id: strings.TrimSpace(userID)}
}

func (p *StaticProvider) UserID(context.Context) (string, error) {
	if p.id == "" {
		return "", fmt.Errorf("%w: no user id configured", common.ErrAuth)
	}
	return p.id, nil
}

// Claims are the registered JWT claims plus the vault user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// TokenProvider takes the user id from an HS256 session token. The token is
// validated on every call so an expired session stops resolving.
type TokenProvider struct {
	token  string
	secret []byte
	now    func() time.Time
}

func NewTokenProvider(token string, secret []byte) *TokenProvider {
	return &TokenProvider{token: strings.TrimSpace(token), secret: secret, now: time.Now}
}

func (p *TokenProvider) UserID(context.Context) (string, error) {
	return ParseToken(p.token, p.secret, p.now())
}

// GenerateToken issues a session token for userID valid for ttl.
func GenerateToken(userID string, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	})

	s, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// ParseToken validates tokenString at time now and returns its user id.
// Every validation failure is reported as common.ErrAuth.
func ParseToken(tokenString string, secret []byte, now time.Time) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: session expired", common.ErrAuth)
		}
		return "", fmt.Errorf("%w: invalid session token: %v", common.ErrAuth, err)
	}
	if !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("%w: invalid session token", common.ErrAuth)
	}
	return claims.UserID, nil
}
