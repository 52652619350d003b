package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/library/internal/apperr"
)

const (
	// MinPasswordLength is the minimum required password length (NIST recommendation).
	MinPasswordLength = 12
	// MaxPasswordLength is the bcrypt input limit in bytes.
	MaxPasswordLength = 72
)

var (
	ErrInvalidPassword  = apperr.New(apperr.ErrUnauthorized, "Invalid password")
	ErrPasswordTooShort = apperr.New(apperr.ErrValidation, "Password must be at least 12 characters")
	ErrPasswordTooLong  = apperr.New(apperr.ErrValidation, "Password exceeds maximum length of 72 bytes")
)

// ValidatePassword checks the length policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword creates a bcrypt hash of the password.
func HashPassword(password string, cost int) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a password with its hash.
func CheckPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return err
	}
	return nil
}
