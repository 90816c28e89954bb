package hash

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const DefaultCost = 12

func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}

	return string(hashbytes), nil
}

// CheckPassword never matches an empty hash.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyHashes holds one throwaway hash per cost, built on first use.
var dummyHashes sync.Map

func dummyHash(cost int) []byte {
	if cost == 0 {
		cost = DefaultCost
	}
	if h, ok := dummyHashes.Load(cost); ok {
		return h.([]byte)
	}
	h, err := bcrypt.GenerateFromPassword([]byte("school-backend-dummy"), cost)
	if err != nil {
		h, _ = bcrypt.GenerateFromPassword([]byte("school-backend-dummy"), DefaultCost)
	}
	actual, _ := dummyHashes.LoadOrStore(cost, h)
	return actual.([]byte)
}

// CompareDummy burns a comparison for unknown e-mails at the same cost real hashes use.
func CompareDummy(password string, cost int) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(cost), []byte(password))
}

const tempAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789!@#$%"

var ErrTooShort = errors.New("hash: temporary password needs at least 8 characters")

// GenerateTemporaryPassword returns a random password for accounts created by an administrator.
func GenerateTemporaryPassword(n int) (string, error) {
	if n < 8 {
		return "", ErrTooShort
	}
	out := make([]byte, n)
	max := big.NewInt(int64(len(tempAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tempAlphabet[idx.Int64()]
	}
	return string(out), nil
}
