package crawl

import (
	"errors"
	"strings"
)

// Errors surfaced by the crawl engine.
var (
	// ErrSourceNotFound is returned when the requested source does not
	// exist or is inactive.
	ErrSourceNotFound = errors.New("source not found or inactive")

	// ErrNoListSelector is returned when a source has no list selector
	// to discover candidates with.
	ErrNoListSelector = errors.New("source has no list selector")
)

// ValidationError reports every violated option bound at once. The run
// never starts and the fetch backend is never invoked.
type ValidationError struct {
	Violations []string
}

// Error returns the joined violation list.
func (e *ValidationError) Error() string {
	return "invalid crawl options: " + strings.Join(e.Violations, "; ")
}
