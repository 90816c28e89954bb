// Package otp issues six-digit one-time passwords for password reset.
// Only the SHA-256 digest of a code is ever stored.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"strconv"
	"time"
)

const DefaultTTL = 24 * time.Hour

var span = big.NewInt(900000)

// Generate returns a uniformly random code in [100000, 999999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Matches compares a submitted code with a stored digest in constant time.
func Matches(code, digest string) bool {
	if digest == "" {
		return false
	}
	got := Hash(code)
	return subtle.ConstantTimeCompare([]byte(got), []byte(digest)) == 1
}

// Expired reports whether the deadline is missing or already passed.
func Expired(deadline *time.Time, now time.Time) bool {
	return deadline == nil || !now.Before(*deadline)
}
