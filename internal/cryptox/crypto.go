// Package cryptox holds the key derivation used for password verifiers and
// the short session fingerprints used to compare tokens without keeping them.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// FingerprintSize is the number of hex characters in a fingerprint.
const FingerprintSize = 16

// DeriveKey stretches password with salt using Argon2id.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier returns the value stored in place of a password: sha256 of the
// derived key.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// CheckVerifier compares a stored verifier with a candidate in constant time.
func CheckVerifier(stored, candidate []byte) bool {
	return len(stored) > 0 && subtle.ConstantTimeCompare(stored, candidate) == 1
}

// Fingerprint returns a short stable digest of token. Equal tokens give equal
// fingerprints; the token cannot be recovered from it.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:FingerprintSize]
}
