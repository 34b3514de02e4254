package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the two failure kinds of the calculation engine
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnknownRateKey = errors.New("unknown rate key")
)

// InvalidInputError reports a payload field that failed validation.
// It is always raised before any arithmetic runs.
type InvalidInputError struct {
	Field  string      `json:"field"`
	Value  interface{} `json:"value,omitempty"`
	Reason string      `json:"reason"`
}

// Error implements the error interface
func (e *InvalidInputError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("invalid input: %s %s (got %v)", e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

// Is lets errors.Is match ErrInvalidInput
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInvalidInputError creates an InvalidInputError
func NewInvalidInputError(field string, value interface{}, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Value: value, Reason: reason}
}

// UnknownRateKeyError reports a rate table lookup miss. This is a
// configuration defect, not a user error.
type UnknownRateKeyError struct {
	Table string
	Key   string
}

// Error implements the error interface
func (e *UnknownRateKeyError) Error() string {
	return fmt.Sprintf("unknown rate key %q in %s table", e.Key, e.Table)
}

// Is lets errors.Is match ErrUnknownRateKey
func (e *UnknownRateKeyError) Is(target error) bool {
	return target == ErrUnknownRateKey
}

// IsInvalidInput checks if an error is an input validation failure
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnknownRateKey checks if an error is a rate table lookup miss
func IsUnknownRateKey(err error) bool {
	return errors.Is(err, ErrUnknownRateKey)
}
