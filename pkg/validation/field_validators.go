// Package validation provides common validation helpers used across request
// DTOs in the HTTP Control Plane (top-up amounts, ticket categories, charger
// IDs) and the OCPP inbound payload decoders.
package validation

import (
	"regexp"
	"strings"

	"csms/internal/pkg/errors"
)

// RequiredString validates that a string field is not empty
func RequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.ValidationRequired(fieldName)
	}
	return nil
}

// RequiredSlice validates that a slice is not empty
func RequiredSlice[T any](slice []T, fieldName string) error {
	if len(slice) == 0 {
		return errors.Validation(fieldName, "at least one item required")
	}
	return nil
}

// ValidateStringLength validates that a string is within min/max length bounds
func ValidateStringLength(value, fieldName string, min, max int) error {
	length := len(value)
	if length < min {
		return errors.Validation(fieldName, "too short")
	}
	if max > 0 && length > max {
		return errors.Validation(fieldName, "too long")
	}
	return nil
}

// ValidateEmail validates an email address format
func ValidateEmail(email string) error {
	emailRegex := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	matched, _ := regexp.MatchString(emailRegex, email)

	if !matched {
		return errors.Validation("email", "invalid email format")
	}
	return nil
}

// ValidateRange validates that a numeric value is within a range
func ValidateRange[T int | int64 | float64](value T, fieldName string, min, max T) error {
	if value < min {
		return errors.ValidationRange(fieldName, min, max)
	}
	if max > 0 && value > max {
		return errors.ValidationRange(fieldName, min, max)
	}
	return nil
}

// ValidateEnum validates that a value is one of the allowed values
func ValidateEnum[T comparable](value T, fieldName string, allowed []T) error {
	for _, v := range allowed {
		if v == value {
			return nil
		}
	}
	return errors.ValidationInvalid(fieldName, value)
}

// ValidateSliceItems validates each item in a slice
func ValidateSliceItems[T any](slice []T, fieldName string, validator func(T, int) error) error {
	for i, item := range slice {
		if err := validator(item, i); err != nil {
			return err
		}
	}
	return nil
}

// ValidateConditional validates a field only if a condition is met
func ValidateConditional(condition bool, validator func() error) error {
	if condition {
		return validator()
	}
	return nil
}
