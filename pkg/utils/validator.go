package utils

import (
	"errors"
	"regexp"
)

var (
	ErrEmptySymbol   = errors.New("symbol must not be empty")
	ErrInvalidSymbol = errors.New("symbol contains invalid characters")
	ErrNonPositive   = errors.New("value must be positive")
	ErrInvalidEmail  = errors.New("invalid email format")
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateSymbol checks the symbol format (e.g. "EURUSD") expected by the
// platform adapter and account info cache.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return ErrEmptySymbol
	}
	if !symbolPattern.MatchString(symbol) {
		return ErrInvalidSymbol
	}
	return nil
}

// ValidateAmount checks that a trade amount/refund/payout value is
// strictly positive.
func ValidateAmount(amount float64) error {
	if amount <= 0 {
		return ErrNonPositive
	}
	return nil
}

// ValidateEmail checks the email format used as half of a session
// record's identity (see domain.SessionRecord).
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}
