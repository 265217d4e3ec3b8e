// Package cryptox holds password hashing for the credential store.
package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/rechub/internal/common"
	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of a freshly generated per-user salt.
const SaltSize = 32

// argon2id parameters. Changing them invalidates every stored hash.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// NewSalt returns SaltSize random bytes.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// HashPassword derives the stored password hash from salt and password.
// The password is domain-separated with a ":" prefix before key derivation.
func HashPassword(salt []byte, password string) []byte {
	material := make([]byte, 0, len(password)+1)
	material = append(material, ':')
	material = append(material, password...)
	defer common.WipeByteArray(material)

	return argon2.IDKey(material, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifyPassword recomputes the hash and compares it with want in
// constant time.
func VerifyPassword(salt []byte, password string, want []byte) bool {
	got := HashPassword(salt, password)
	return subtle.ConstantTimeCompare(got, want) == 1
}
