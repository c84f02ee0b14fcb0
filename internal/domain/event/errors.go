package event

import (
	"errors"
	"fmt"
)

// Sentinel kinds for event decoding errors.
var (
	ErrEmptyPayload = errors.New("empty event payload")
	ErrUnknownType  = errors.New("unknown event type")
)

// ValidationError reports the first field that failed validation during
// construction or decoding. Records carrying one are dropped and logged,
// never treated as fatal.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
