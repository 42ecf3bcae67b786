package config

import (
	"errors"
	"fmt"
)

// ErrInvalidValue indicates an environment variable held a value that
// could not be parsed or was not one of the recognized enum members
// (spec §6.3 "unknown keys are ignored" — this is the complementary
// case, a recognized key with an unrecognized value).
//
// Mirrors pkg/config/errors.go's sentinel-plus-wrapper idiom: a
// package-level sentinel for errors.Is, and a ValidationError wrapper
// that attaches the field name for errors.As callers that want it.
var ErrInvalidValue = errors.New("config: invalid field value")

// ValidationError wraps one environment-variable load failure with the
// field (env var name) that caused it, mirroring pkg/config/errors.go's
// ValidationError{Component, ID, Field, Err} shape, simplified since this
// package has a single "component" (the environment).
type ValidationError struct {
	Field string // environment variable name
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps err as an ErrInvalidValue ValidationError for
// the named field.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: fmt.Errorf("%w: %v", ErrInvalidValue, err)}
}
