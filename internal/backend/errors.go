package backend

import (
	"errors"
	"fmt"
)

// ErrUnknownBackend is returned when a source names a backend that is not
// registered with the provider.
var ErrUnknownBackend = errors.New("unknown fetch backend")

// NavigationError reports a timeout or network failure while loading a
// URL. It is raised only after the permissive second navigation attempt
// also fails.
type NavigationError struct {
	URL string
	Err error
}

// Error returns the error message.
func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed for %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *NavigationError) Unwrap() error {
	return e.Err
}

// ExtractionError reports a selector evaluation failure. Callers treat it
// as an empty-field result, never as fatal.
type ExtractionError struct {
	Expression string
	Err        error
}

// Error returns the error message.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %q: %v", e.Expression, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// UnavailableError reports that a backend could not be initialized at
// all, e.g. no Chrome binary for the browser backend. Fatal for the run
// that hit it, never for the process.
type UnavailableError struct {
	Backend string
	Err     error
}

// Error returns the error message.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s backend unavailable: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *UnavailableError) Unwrap() error {
	return e.Err
}
