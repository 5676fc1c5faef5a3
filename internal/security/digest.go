// Package security holds the hashing primitives shared by the token and OTP
// components.
package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Fingerprint returns the SHA-256 hex digest of an opaque secret. Only the
// fingerprint is ever persisted; possession of the raw secret is proven by
// recomputing and comparing.
func Fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// FingerprintEqual compares two fingerprints in constant time.
func FingerprintEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
