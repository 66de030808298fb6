package user

import (
	"fmt"
	"net/mail"
	"unicode"
)

const (
	MaxEmailLen    = 254
	MinPasswordLen = 8
	// bcrypt ignores everything past 72 bytes
	MaxPasswordLen = 72
)

// Validator - interface for validating user input
type Validator interface {
	ValidateSignUp(email, password string) error
	ValidateEmail(email string) error
	ValidatePassword(password string) error
}

type PasswordValidator struct {
	requireDigit bool
	requireUpper bool
	requireLower bool
}

// NewPasswordValidator creates a validator requiring mixed case and a digit
func NewPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		requireDigit: true,
		requireUpper: true,
		requireLower: true,
	}
}

func (v *PasswordValidator) ValidateSignUp(email, password string) error {
	if err := v.ValidateEmail(email); err != nil {
		return fmt.Errorf("email validation failed: %w", err)
	}

	if err := v.ValidatePassword(password); err != nil {
		return fmt.Errorf("password validation failed: %w", err)
	}

	return nil
}

func (v *PasswordValidator) ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email must not be empty")
	}

	if len(email) > MaxEmailLen {
		return fmt.Errorf("email must be at most %d characters", MaxEmailLen)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("email %q is not a valid address", email)
	}

	return nil
}

func (v *PasswordValidator) ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	}

	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must be at most %d bytes", MaxPasswordLen)
	}

	var hasLower, hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if v.requireLower && !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}

	if v.requireUpper && !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}

	if v.requireDigit && !hasDigit {
		return fmt.Errorf("password must contain at least one digit")
	}

	return nil
}
