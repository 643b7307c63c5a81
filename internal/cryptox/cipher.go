// Package cryptox holds the vault's cryptographic primitives: verification
// hashing, password based key derivation and per-field AES-GCM encryption.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

// Cipher encrypts individual record fields under the vault password.
//
// Every call to EncryptField draws a fresh salt and nonce and re-runs the KDF,
// so the three fields of one entry never share key material. The blob layout is
//
//	base64( salt[16] || nonce[12] || ciphertext+tag )
type Cipher struct {
	kdf KDF
}

func NewCipher(kdf KDF) *Cipher {
	return &Cipher{kdf: kdf}
}

// KDF returns the key derivation parameters used by c.
func (c *Cipher) KDF() KDF {
	return c.kdf
}

// EncryptField seals plaintext and returns the encoded blob.
func (c *Cipher) EncryptField(plaintext, password string) (string, error) {
	salt := common.GenerateRandByteArray(SaltSize)
	nonce := common.GenerateRandByteArray(NonceSize)

	key, err := c.kdf.DeriveKey(password, salt)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, SaltSize+NonceSize+len(plaintext)+aesgcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aesgcm.Seal(out, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptField opens a blob produced by EncryptField. Any malformed input or
// authentication failure is reported as common.ErrDecryption.
func (c *Cipher) DecryptField(blob, password string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", common.ErrDecryption)
	}

	// 16 bytes is the GCM tag, present even for an empty plaintext.
	if len(raw) < SaltSize+NonceSize+16 {
		return "", fmt.Errorf("%w: blob too short", common.ErrDecryption)
	}

	salt := raw[:SaltSize]
	nonce := raw[SaltSize : SaltSize+NonceSize]
	sealed := raw[SaltSize+NonceSize:]

	key, err := c.kdf.DeriveKey(password, salt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}

	plaintext, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", common.ErrDecryption)
	}

	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
