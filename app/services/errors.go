package services

import "errors"

// ValidationError is a user-facing input error. Operations abort before any
// write when one is raised; HTTP handlers surface it as a 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

// IsValidationError reports whether err is a validation error
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
