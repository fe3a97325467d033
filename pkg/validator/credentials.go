package validator

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidUsername = errors.New("username must be 3-50 characters of letters, digits or underscore")
	ErrInvalidPassword = errors.New("password must be 6-100 characters")
	ErrInvalidEmail    = errors.New("email must be a valid address of at most 100 characters")
	ErrInvalidName     = errors.New("name must be 2-100 characters")
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidateUsername checks the account login name
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidatePassword checks password length in characters, not bytes
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < 6 || n > 100 {
		return ErrInvalidPassword
	}
	return nil
}

// ValidateEmail checks an email address
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 100 || !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateName checks a display name
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < 2 || n > 100 {
		return ErrInvalidName
	}
	return nil
}
