package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidParameter marks an authoring error in an action or workflow.
// It is reported at construction or load time and never coerced.
var ErrInvalidParameter = errors.New("invalid parameter")

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects field errors. It unwraps to ErrInvalidParameter.
type ValidationErrors struct {
	Errors []FieldError
}

// AddMessage records an error for field.
func (v *ValidationErrors) AddMessage(field, message string) {
	v.Errors = append(v.Errors, FieldError{Field: field, Message: message})
}

// Addf records a formatted error for field.
func (v *ValidationErrors) Addf(field, format string, args ...any) {
	v.AddMessage(field, fmt.Sprintf(format, args...))
}

// Merge copies errors from other, prefixing their field names.
func (v *ValidationErrors) Merge(prefix string, other error) {
	if other == nil {
		return
	}
	var ve *ValidationErrors
	if !errors.As(other, &ve) {
		v.AddMessage(prefix, other.Error())
		return
	}
	for _, fe := range ve.Errors {
		field := fe.Field
		if prefix != "" {
			if field == "" {
				field = prefix
			} else {
				field = prefix + "." + field
			}
		}
		v.AddMessage(field, fe.Message)
	}
}

// Err returns nil when no errors were recorded.
func (v *ValidationErrors) Err() error {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	parts := make([]string, 0, len(v.Errors))
	for _, fe := range v.Errors {
		parts = append(parts, fe.Error())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidParameter, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrInvalidParameter.
func (v *ValidationErrors) Unwrap() error {
	return ErrInvalidParameter
}
