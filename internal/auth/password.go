package auth

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength applies to passwords set through the admin screens.
const MinPasswordLength = 8

var ErrWeakPassword = errors.New("password too short")

// HashPassword hashes a plaintext password with bcrypt at DefaultCost.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
}

// CheckStrength rejects passwords shorter than MinPasswordLength runes.
func CheckStrength(pw string) error {
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
