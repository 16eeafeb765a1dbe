package security

import (
	"fmt"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt work factor for self-service signups.
	DefaultCost = 10
	// PrivilegedCost is the bcrypt work factor for administrator accounts.
	PrivilegedCost = 12
)

// HashPassword generates a salted bcrypt hash at the given work factor.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext matches the stored hash.
func VerifyPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordScore returns the zxcvbn strength score (0 weakest, 4 strongest).
func PasswordScore(password string) int {
	return zxcvbn.PasswordStrength(password, nil).Score
}
