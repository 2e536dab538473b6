package tracker

import "errors"

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("assignment not found")
	ErrForbidden  = errors.New("only custom assignments can be deleted")
)

// ValidationError reports a missing or invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
