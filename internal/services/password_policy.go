package services

import (
	"unicode"

	"github.com/you/mediahub/domain"
)

const minPasswordLength = 8

// ValidatePassword enforces the password policy. Messages are keyed by field.
func ValidatePassword(field, password string) error {
	verr := &domain.ValidationError{}
	if len([]rune(password)) < minPasswordLength {
		verr.Add(field, "This password is too short. It must contain at least 8 characters.")
	}

	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		verr.Add(field, "The password must contain at least one letter and one digit.")
	}
	return verr.OrNil()
}
