package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned when a password does not match its stored hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// IsLegacyDigest reports whether stored is an unsalted hex SHA-256 digest.
func IsLegacyDigest(stored string) bool {
	if len(stored) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(stored)
	return err == nil
}

// VerifyPassword checks plain against either a bcrypt hash or a legacy digest.
// needsUpgrade is set when the stored value should be rehashed with bcrypt.
func VerifyPassword(stored, plain string) (needsUpgrade bool, err error) {
	if IsLegacyDigest(stored) {
		sum := sha256.Sum256([]byte(plain))
		digest := hex.EncodeToString(sum[:])
		if subtle.ConstantTimeCompare([]byte(digest), []byte(stored)) != 1 {
			return false, ErrPasswordMismatch
		}
		return true, nil
	}
	if err := ComparePassword(stored, plain); err != nil {
		return false, ErrPasswordMismatch
	}
	return false, nil
}
