package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordMismatch = errors.New("password mismatch")

func HashPassword(raw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword returns ErrPasswordMismatch for a wrong password and any
// other error for a hash that is not valid bcrypt.
func CheckPassword(hash, raw string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
