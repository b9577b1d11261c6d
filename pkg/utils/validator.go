package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxAmountCents is the largest amount a single voucher may carry
	MaxAmountCents int64 = 100_000_000_00
	maxTextLength        = 500
)

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// ValidateAmountCents validates a voucher amount in cents
func ValidateAmountCents(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %d", amount)
	}
	if amount > MaxAmountCents {
		return fmt.Errorf("amount exceeds maximum limit: %d", amount)
	}
	return nil
}

// ValidateRequiredText checks that a free-text field is present and bounded
func ValidateRequiredText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(value) > maxTextLength {
		return fmt.Errorf("%s exceeds %d characters", field, maxTextLength)
	}
	return nil
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
