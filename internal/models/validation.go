package models

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Email validation regex pattern
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// SanitizeString removes extra whitespace and trims the string
func SanitizeString(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return NewInvalidInputError(fieldName, nil, "is required")
	}
	return nil
}

// ValidateStringLength validates string length constraints
func ValidateStringLength(value, fieldName string, minLength, maxLength int) error {
	length := len(strings.TrimSpace(value))

	if minLength > 0 && length < minLength {
		return NewInvalidInputError(fieldName, nil, fmt.Sprintf("must be at least %d characters", minLength))
	}

	if maxLength > 0 && length > maxLength {
		return NewInvalidInputError(fieldName, nil, fmt.Sprintf("cannot exceed %d characters", maxLength))
	}

	return nil
}

// ValidateEmail validates email format
func ValidateEmail(email, fieldName string) error {
	if err := ValidateRequired(email, fieldName); err != nil {
		return err
	}
	if !isValidEmail(email) {
		return NewInvalidInputError(fieldName, email, "is not a valid email address")
	}
	return nil
}

// ValidateAmount checks that a monetary field is finite and non-negative
func ValidateAmount(value float64, fieldName string) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewInvalidInputError(fieldName, value, "must be a finite number")
	}
	if value < 0 {
		return NewInvalidInputError(fieldName, value, "cannot be negative")
	}
	return nil
}

// ValidateOptionalAmount is ValidateAmount for fields that may be absent
func ValidateOptionalAmount(value *float64, fieldName string) error {
	if value == nil {
		return nil
	}
	return ValidateAmount(*value, fieldName)
}

// ValidatePositiveAmount checks that a monetary field is finite and greater than zero
func ValidatePositiveAmount(value float64, fieldName string) error {
	if err := ValidateAmount(value, fieldName); err != nil {
		return err
	}
	if value == 0 {
		return NewInvalidInputError(fieldName, value, "must be greater than 0")
	}
	return nil
}

// ValidateFinite checks that a signed monetary field is a finite number
func ValidateFinite(value float64, fieldName string) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewInvalidInputError(fieldName, value, "must be a finite number")
	}
	return nil
}

// ValidateEnum validates that a value is in the allowed enum values
func ValidateEnum(value string, allowedValues []string, fieldName string) error {
	for _, allowed := range allowedValues {
		if value == allowed {
			return nil
		}
	}

	return NewInvalidInputError(fieldName, value, "must be one of: "+strings.Join(allowedValues, ", "))
}
