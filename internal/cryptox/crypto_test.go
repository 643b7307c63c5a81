package cryptox

import (
	"encoding/base64"
	"encoding/hex"
	"math/bits"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheapKDF keeps the tests fast; production uses DefaultKDF.
var cheapKDF = KDF{Algorithm: AlgorithmPBKDF2, Iterations: 1000}

func TestHash_DeterministicHexSHA256(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Hash("abc"))
	assert.Equal(t, Hash("password1"), Hash("password1"))
}

func TestHash_Avalanche(t *testing.T) {
	a, err := hex.DecodeString(Hash("password1"))
	require.NoError(t, err)
	b, err := hex.DecodeString(Hash("password2"))
	require.NoError(t, err)

	diff := 0
	for i := range a {
		diff += bits.OnesCount8(a[i] ^ b[i])
	}
	// roughly half of 256 bits should flip
	assert.Greater(t, diff, 64)
	assert.Less(t, diff, 192)
}

func TestHashAnswer_Normalizes(t *testing.T) {
	assert.Equal(t, HashAnswer("fluffy"), HashAnswer("  FLUFFY \n"))
	assert.NotEqual(t, HashAnswer("fluffy"), HashAnswer("fluff y"))
}

func TestHashMatches(t *testing.T) {
	h := Hash("Sup3rSecret!")
	assert.True(t, HashMatches(h, "Sup3rSecret!"))
	assert.False(t, HashMatches(h, "sup3rsecret!"))
	assert.False(t, HashMatches("", ""))
}

func TestDeriveKey_DeterministicPerSalt(t *testing.T) {
	for _, kdf := range []KDF{cheapKDF, {Algorithm: AlgorithmArgon2id, Iterations: 1, MemoryKiB: 1024, Threads: 1}} {
		salt1 := []byte(strings.Repeat("a", SaltSize))
		salt2 := []byte(strings.Repeat("b", SaltSize))

		k1, err := kdf.DeriveKey("secret-password", salt1)
		require.NoError(t, err)
		k2, err := kdf.DeriveKey("secret-password", salt1)
		require.NoError(t, err)
		k3, err := kdf.DeriveKey("secret-password", salt2)
		require.NoError(t, err)

		assert.Len(t, k1, KeySize)
		assert.Equal(t, k1, k2, "same inputs must give the same key (%s)", kdf.Algorithm)
		assert.NotEqual(t, k1, k3, "different salts must give different keys (%s)", kdf.Algorithm)
	}
}

func TestDeriveKey_RejectsBadSalt(t *testing.T) {
	_, err := cheapKDF.DeriveKey("pw", []byte("short"))
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestNewKDF(t *testing.T) {
	k, err := NewKDF("", 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultKDF(), k)

	k, err = NewKDF(AlgorithmArgon2id, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, KDF{Algorithm: AlgorithmArgon2id, Iterations: DefaultArgon2Time, MemoryKiB: DefaultArgon2MemoryKiB, Threads: DefaultArgon2Threads}, k)

	_, err = NewKDF("md5", 0, 0, 0)
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestDefaultKDF_MeetsIterationFloor(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultKDF().Iterations, uint32(100_000))
}

func TestCipher_RoundTrip(t *testing.T) {
	c := NewCipher(cheapKDF)
	inputs := []string{"", "hunter2", "example.com", "пароль ✓", strings.Repeat("x", 4096)}
	passwords := []string{"p", "Sup3rSecret!", "correct horse battery staple"}

	for _, p := range passwords {
		for _, s := range inputs {
			blob, err := c.EncryptField(s, p)
			require.NoError(t, err)

			got, err := c.DecryptField(blob, p)
			require.NoError(t, err)
			assert.Equal(t, s, got)
		}
	}
}

func TestCipher_RoundTripDefaultKDF(t *testing.T) {
	c := NewCipher(DefaultKDF())
	blob, err := c.EncryptField("me@x.com", "Sup3rSecret!")
	require.NoError(t, err)
	got, err := c.DecryptField(blob, "Sup3rSecret!")
	require.NoError(t, err)
	assert.Equal(t, "me@x.com", got)
}

func TestCipher_WrongPasswordRejected(t *testing.T) {
	c := NewCipher(cheapKDF)
	for _, s := range []string{"", "hunter2", "a longer secret value"} {
		blob, err := c.EncryptField(s, "password-one")
		require.NoError(t, err)

		_, err = c.DecryptField(blob, "password-two")
		require.ErrorIs(t, err, common.ErrDecryption)
	}
}

func TestCipher_SaltAndNonceAreFresh(t *testing.T) {
	c := NewCipher(cheapKDF)
	a, err := c.EncryptField("same", "pw")
	require.NoError(t, err)
	b, err := c.EncryptField("same", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	ra, _ := base64.StdEncoding.DecodeString(a)
	rb, _ := base64.StdEncoding.DecodeString(b)
	assert.NotEqual(t, ra[:SaltSize], rb[:SaltSize], "salt reused")
	assert.NotEqual(t, ra[SaltSize:SaltSize+NonceSize], rb[SaltSize:SaltSize+NonceSize], "nonce reused")
}

func TestCipher_BlobLayout(t *testing.T) {
	c := NewCipher(cheapKDF)
	blob, err := c.EncryptField("hunter2", "pw")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)
	assert.Len(t, raw, SaltSize+NonceSize+len("hunter2")+16)
}

func TestCipher_TamperedOrMalformed(t *testing.T) {
	c := NewCipher(cheapKDF)
	blob, err := c.EncryptField("hunter2", "pw")
	require.NoError(t, err)

	raw, _ := base64.StdEncoding.DecodeString(blob)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	short := base64.StdEncoding.EncodeToString(make([]byte, SaltSize+NonceSize))

	for name, in := range map[string]string{
		"tampered tag": tampered,
		"not base64":   "%%%not-base64%%%",
		"too short":    short,
		"empty":        "",
	} {
		_, err := c.DecryptField(in, "pw")
		assert.ErrorIs(t, err, common.ErrDecryption, name)
	}
}
