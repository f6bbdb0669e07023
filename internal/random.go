package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const resetTokenRawSize = 32

// NewResetToken returns a hex-encoded opaque token with resetTokenRawSize
// bytes of entropy. The plaintext is mailed to the account holder; only
// its digest is ever stored.
func NewResetToken() (string, error) {
	var raw [resetTokenRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}

// HashToken returns the lowercase hex SHA-256 digest of token. Both signed
// refresh tokens and opaque reset tokens are keyed in their stores by this
// digest.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenHashEqual compares two digests in constant time.
func TokenHashEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
