package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/library/internal/apperr"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		cost     int
		wantErr  error
	}{
		{
			name:     "valid password",
			password: "validpassword123",
			cost:     bcrypt.MinCost,
			wantErr:  nil,
		},
		{
			name:     "password too short",
			password: "short",
			cost:     bcrypt.MinCost,
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "password at minimum length",
			password: "123456789012", // 12 characters (new minimum)
			cost:     bcrypt.MinCost,
			wantErr:  nil,
		},
		{
			name:     "password too long",
			password: strings.Repeat("a", 73),
			cost:     bcrypt.MinCost,
			wantErr:  ErrPasswordTooLong,
		},
		{
			name:     "password at maximum length",
			password: strings.Repeat("a", 72),
			cost:     bcrypt.MinCost,
			wantErr:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, tt.cost)
			if err != tt.wantErr {
				t.Errorf("HashPassword() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr == nil && hash == "" {
				t.Error("HashPassword() returned empty hash for valid password")
			}
		})
	}
}

func TestCheckPassword(t *testing.T) {
	password := "testpassword123"
	hash, err := HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "correct password",
			password: password,
			wantErr:  nil,
		},
		{
			name:     "incorrect password",
			password: "wrongpassword",
			wantErr:  ErrInvalidPassword,
		},
		{
			name:     "empty password",
			password: "",
			wantErr:  ErrInvalidPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPassword(tt.password, hash)
			if err != tt.wantErr {
				t.Errorf("CheckPassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPasswordErrorsAreTyped(t *testing.T) {
	if !errors.Is(ValidatePassword("short"), apperr.ErrValidation) {
		t.Error("short password should be a validation error")
	}
	if !errors.Is(ErrInvalidPassword, apperr.ErrUnauthorized) {
		t.Error("wrong password should be an unauthorized error")
	}
	if apperr.Message(ErrInvalidPassword, "") != "Invalid password" {
		t.Errorf("unexpected message %q", apperr.Message(ErrInvalidPassword, ""))
	}
}
