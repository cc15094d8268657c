package types

import "fmt"

// ValidationError reports an invalid declaration: a missing required field,
// an out-of-range value, or two declarations colliding on the same identity
// with conflicting attributes. It is returned at declaration time, never
// deferred to sync.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ValidationErrorf builds a *ValidationError from a format string.
func ValidationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// APIError reports a failed call against the provider API. A fetch APIError
// aborts the whole sync before any mutation is attempted.
type APIError struct {
	Method string
	Err    error
}

func (e *APIError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("uptime robot api: %v", e.Err)
	}
	return fmt.Sprintf("uptime robot %s: %v", e.Method, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }
