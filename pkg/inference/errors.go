package inference

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned by engines whose models have not been loaded.
// Readiness is a construction-time property surfaced through a query rather
// than a panic from every call.
var ErrNotReady = errors.New("inference: model not ready")

// ErrInvalidInput marks caller-side input errors: inconsistent tensor
// dimensions, frames of the wrong size, and the like. Wrap with detail via
// fmt.Errorf("...: %w", ErrInvalidInput).
var ErrInvalidInput = errors.New("inference: invalid input")

// ModelError reports a failed or malformed external model execution. A
// wrong-shaped output tensor is a ModelError too: it is fatal for the current
// segment and must never be papered over with zeros.
type ModelError struct {
	// Model names the failing collaborator ("encoder", "predictor", "joint", "vad").
	Model string

	// Err is the underlying cause.
	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("inference: %s model: %v", e.Model, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// Errorf constructs a *ModelError with a formatted cause.
func Errorf(model, format string, args ...any) *ModelError {
	return &ModelError{Model: model, Err: fmt.Errorf(format, args...)}
}
