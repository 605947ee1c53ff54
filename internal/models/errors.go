package models

import "fmt"

// FieldError is a validation failure scoped to a single input field.
// Handlers surface it as a 400 envelope with the field name in details.
type FieldError struct {
	Field   string
	Message string
}

func NewFieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Details renders the error in the envelope's details shape.
func (e *FieldError) Details() map[string]string {
	return map[string]string{e.Field: e.Message}
}
