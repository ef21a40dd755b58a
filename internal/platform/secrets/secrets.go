package secrets

import (
	"golang.org/x/crypto/bcrypt"
)

// HashAPIKey returns a bcrypt hash suitable for storing in configuration.
// Used by the ops tooling that provisions admin keys.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAPIKey reports whether the presented key matches the stored hash.
// bcrypt comparison is constant-time with respect to the key material.
func VerifyAPIKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
