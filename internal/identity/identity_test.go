package identity

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	id, err := NewStaticProvider(" alice ").UserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	_, err = NewStaticProvider("").UserID(context.Background())
	require.ErrorIs(t, err, common.ErrAuth)
}

func TestGenerateAndParse_Success(t *testing.T) {
	secret := []byte("super-secret")
	now := time.Now()

	tok, err := GenerateToken("user-123", secret, time.Hour, now)
	require.NoError(t, err)

	got, err := ParseToken(tok, secret, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "user-123", got)
}

func TestParseToken_Expired(t *testing.T) {
	secret := []byte("secret")
	now := time.Now()

	tok, err := GenerateToken("u1", secret, time.Minute, now)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret, now.Add(2*time.Minute))
	require.ErrorIs(t, err, common.ErrAuth)
	assert.Contains(t, err.Error(), "session expired")
}

func TestParseToken_WrongSecret(t *testing.T) {
	now := time.Now()
	tok, err := GenerateToken("u2", []byte("right-secret"), time.Hour, now)
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte("wrong-secret"), now)
	require.ErrorIs(t, err, common.ErrAuth)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
		UserID:           "u3",
	})
	secret := []byte("secret")
	s, err := token.SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(s, secret, now)
	require.ErrorIs(t, err, common.ErrAuth)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not.a.token", []byte("s"), time.Now())
	require.ErrorIs(t, err, common.ErrAuth)
}

func TestTokenProvider(t *testing.T) {
	secret := []byte("secret")
	now := time.Now()
	tok, err := GenerateToken("bob", secret, time.Hour, now)
	require.NoError(t, err)

	p := NewTokenProvider(tok, secret)
	p.now = func() time.Time { return now }
	id, err := p.UserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bob", id)

	p.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = p.UserID(context.Background())
	require.ErrorIs(t, err, common.ErrAuth)
}
