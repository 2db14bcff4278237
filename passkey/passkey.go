// Package passkey hashes and verifies the secret that guards an ownership
// record. Only the digest is ever stored.
package passkey

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// DigestLen is the length of a hex digest returned by Hash.
const DigestLen = sha256.Size * 2

// Hash returns the lowercase hex SHA-256 of secret.
func Hash(secret string) string {
	s := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(s[:])
}

// Verify reports whether secret hashes to stored. A malformed stored digest
// never verifies.
func Verify(secret, stored string) bool {
	if !WellFormed(stored) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Hash(secret)), []byte(stored)) == 1
}

// Matches reports whether a passkey and its confirmation are identical.
func Matches(secret, confirm string) bool {
	return subtle.ConstantTimeCompare([]byte(secret), []byte(confirm)) == 1
}

// WellFormed reports whether digest looks like a value returned by Hash.
func WellFormed(digest string) bool {
	if len(digest) != DigestLen {
		return false
	}
	for i := 0; i < len(digest); i++ {
		c := digest[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
