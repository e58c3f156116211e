package model

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when a blank password is set
var ErrEmptyPassword = errors.New("password must not be empty")

// Credentials is embedded by every table that authenticates a caller.
// The hash is write-only: it is set through SetPassword and never serialized.
type Credentials struct {
	PasswordHash string `json:"-" gorm:"column:password;size:128;not null"`
}

// SetPassword hashes plaintext and stores the hash
func (c *Credentials) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether plaintext matches the stored hash
func (c *Credentials) CheckPassword(plaintext string) bool {
	if c.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(plaintext)) == nil
}
