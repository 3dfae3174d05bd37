package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the cost the blog has always used; existing
// hashes verify regardless because bcrypt embeds the cost in the encoding.
const DefaultBcryptCost = 10

// HashPassword produces a salted bcrypt hash. Two calls with the same input
// yield different encodings; VerifyPassword accepts any of them.
func HashPassword(password string, cost int) (string, error) {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// VerifyPassword reports whether password matches the stored hash. A
// malformed hash is treated as a mismatch, never as a fault: login must
// answer "invalid credentials", not 500, when a stored hash is garbage.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
