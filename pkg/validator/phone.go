package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLength indicates phone number length is not 10 or 11 digits
	ErrInvalidLength = errors.New("phone number must be 10 or 11 digits")

	// ErrInvalidPrefix indicates phone number doesn't start with a Korean mobile prefix
	ErrInvalidPrefix = errors.New("phone number must start with 010, 011, 016, 017, 018, or 019")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")
)

var validPrefixes = []string{"010", "011", "016", "017", "018", "019"}

var digitsOnly = regexp.MustCompile(`^\d+$`)

// PhoneValidator handles Korean mobile number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate validates a Korean mobile number.
// Accepts 01012345678, 010-1234-5678, 010 1234 5678 or +82 10-1234-5678 and
// returns the digits-only form.
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	if !digitsOnly.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) != 10 && len(sanitized) != 11 {
		return "", ErrInvalidLength
	}

	if !v.IsValidPrefix(sanitized) {
		return "", ErrInvalidPrefix
	}

	// 010 numbers were all migrated to the 11-digit plan
	if strings.HasPrefix(sanitized, "010") && len(sanitized) != 11 {
		return "", ErrInvalidLength
	}

	return sanitized, nil
}

// Sanitize removes separators and folds the +82 country code into a leading 0
func (v *PhoneValidator) Sanitize(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "", ".", "")
	phone = replacer.Replace(phone)

	if strings.HasPrefix(phone, "82") && (len(phone) == 11 || len(phone) == 12) {
		phone = "0" + phone[2:]
	}

	return phone
}

// IsValidPrefix checks if phone number has a Korean mobile prefix
func (v *PhoneValidator) IsValidPrefix(phone string) bool {
	if len(phone) < 3 {
		return false
	}

	prefix := phone[:3]
	for _, validPrefix := range validPrefixes {
		if prefix == validPrefix {
			return true
		}
	}

	return false
}

// Format formats a phone number for display: 010-1234-5678 or 011-123-4567
func (v *PhoneValidator) Format(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}

	middle := len(sanitized) - 4
	return fmt.Sprintf("%s-%s-%s", sanitized[:3], sanitized[3:middle], sanitized[middle:]), nil
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
