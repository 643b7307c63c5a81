package cryptox

import (
	"crypto/sha256"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// Algorithm names a password based key derivation function.
type Algorithm string

const (
	AlgorithmPBKDF2   Algorithm = "pbkdf2-sha256"
	AlgorithmArgon2id Algorithm = "argon2id"
)

const (
	SaltSize  = 16
	NonceSize = 12
	KeySize   = 32

	DefaultPBKDF2Iterations = 100_000
	DefaultArgon2Time       = 1
	DefaultArgon2MemoryKiB  = 64 * 1024
	DefaultArgon2Threads    = 4
)

// KDF stretches the vault password into a 256-bit key. A KDF value is
// immutable and safe for concurrent use.
type KDF struct {
	Algorithm Algorithm
	// Iterations is the PBKDF2 round count, or the Argon2 time parameter.
	Iterations uint32
	// MemoryKiB and Threads only apply to Argon2id.
	MemoryKiB uint32
	Threads   uint8
}

// DefaultKDF is PBKDF2-HMAC-SHA256 with 100,000 iterations.
func DefaultKDF() KDF {
	return KDF{Algorithm: AlgorithmPBKDF2, Iterations: DefaultPBKDF2Iterations}
}

// NewKDF validates the parameters and fills zero values with defaults.
func NewKDF(alg Algorithm, iterations, memoryKiB uint32, threads uint8) (KDF, error) {
	switch alg {
	case "", AlgorithmPBKDF2:
		if iterations == 0 {
			iterations = DefaultPBKDF2Iterations
		}
		return KDF{Algorithm: AlgorithmPBKDF2, Iterations: iterations}, nil
	case AlgorithmArgon2id:
		if iterations == 0 {
			iterations = DefaultArgon2Time
		}
		if memoryKiB == 0 {
			memoryKiB = DefaultArgon2MemoryKiB
		}
		if threads == 0 {
			threads = DefaultArgon2Threads
		}
		return KDF{Algorithm: AlgorithmArgon2id, Iterations: iterations, MemoryKiB: memoryKiB, Threads: threads}, nil
	default:
		return KDF{}, fmt.Errorf("%w: unknown kdf algorithm %q", common.ErrValidation, alg)
	}
}

// DeriveKey derives a KeySize key from password and a SaltSize salt.
// The key is not cached; callers wipe it when done.
func (k KDF) DeriveKey(password string, salt []byte) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: salt must be %d bytes, got %d", common.ErrValidation, SaltSize, len(salt))
	}

	switch k.Algorithm {
	case AlgorithmPBKDF2:
		return pbkdf2.Key([]byte(password), salt, int(k.Iterations), KeySize, sha256.New), nil
	case AlgorithmArgon2id:
		return argon2.IDKey([]byte(password), salt, k.Iterations, k.MemoryKiB, k.Threads, KeySize), nil
	default:
		return nil, fmt.Errorf("%w: unknown kdf algorithm %q", common.ErrValidation, k.Algorithm)
	}
}
