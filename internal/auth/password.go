package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const (
	// PasswordCost is the bcrypt work factor for stored hashes.
	PasswordCost = 12
	// MinPasswordLength applies to newly chosen passwords.
	MinPasswordLength = 8
)

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// HashPassword hashes plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares plaintext password with stored hash. Any failure,
// including a malformed hash, reports false.
func VerifyPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateNewPassword checks the rules a replacement password must satisfy.
func ValidateNewPassword(password string) error {
	if len(password) < MinPasswordLength {
		return invalid("New password must be at least 8 characters")
	}
	return nil
}

// burnPasswordCheck spends the same bcrypt work as a real comparison so an
// unknown email takes as long to reject as a wrong password.
func burnPasswordCheck(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("unused-placeholder"), PasswordCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
