package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means a sensed input (greenness, rainfall, ET0) is absent,
	// e.g. cloud cover or a coverage gap at the remote service.
	ErrNoData = errors.New("no data")

	// ErrInvalidRange means an input lies outside its declared domain.
	ErrInvalidRange = errors.New("invalid range")
)

// InputError names the input that failed validation.
// It wraps ErrNoData or ErrInvalidRange.
type InputError struct {
	Field string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

func noData(field string) error {
	return &InputError{Field: field, Err: ErrNoData}
}

func outOfRange(field, format string, args ...any) error {
	return &InputError{Field: field, Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalidRange}, args...)...)}
}
