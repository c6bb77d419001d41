// Package crawl implements the depth-limited crawl orchestration engine.
package crawl

import "fmt"

// Option bounds. Violating any of them fails validation with every
// violation listed; the fetch backend is never touched for an invalid
// run.
const (
	MinLimit = 1
	MaxLimit = 100

	MinDepth = 0
	MaxDepth = 5

	MinTimeoutMillis = 30000
	MaxTimeoutMillis = 900000

	MinWaitMillis = 1000
	MaxWaitMillis = 30000
)

// Default option values applied by Defaults.
const (
	DefaultLimit         = 20
	DefaultDepth         = 0
	DefaultTimeoutMillis = 60000
	DefaultWaitMillis    = 2000
)

// Options bounds one crawl run.
type Options struct {
	// Limit caps how many list candidates are processed, in document
	// order.
	Limit int `json:"limit"`
	// Depth is the maximum hop count followed from the seed page.
	Depth int `json:"crawl_depth"`
	// FullContent extracts article bodies, not just titles and links.
	FullContent bool `json:"full_content"`
	// FollowLinks enables recursive internal-link follow-up.
	FollowLinks bool `json:"follow_links"`
	// TimeoutMillis bounds a permissive full page load.
	TimeoutMillis int `json:"timeout"`
	// WaitMillis bounds the fast content-ready wait and settle delays.
	WaitMillis int `json:"wait_time"`
}

// Defaults returns crawl options with every field at its default.
func Defaults() Options {
	return Options{
		Limit:         DefaultLimit,
		Depth:         DefaultDepth,
		TimeoutMillis: DefaultTimeoutMillis,
		WaitMillis:    DefaultWaitMillis,
	}
}

// Validate checks every bound and collects all violations before
// failing, so callers see the complete list at once.
func (o Options) Validate() error {
	var violations []string

	if o.Limit < MinLimit || o.Limit > MaxLimit {
		violations = append(violations,
			fmt.Sprintf("limit must be between %d and %d, got %d", MinLimit, MaxLimit, o.Limit))
	}
	if o.Depth < MinDepth || o.Depth > MaxDepth {
		violations = append(violations,
			fmt.Sprintf("crawl depth must be between %d and %d, got %d", MinDepth, MaxDepth, o.Depth))
	}
	if o.TimeoutMillis < MinTimeoutMillis || o.TimeoutMillis > MaxTimeoutMillis {
		violations = append(violations,
			fmt.Sprintf("timeout must be between %dms and %dms, got %dms",
				MinTimeoutMillis, MaxTimeoutMillis, o.TimeoutMillis))
	}
	if o.WaitMillis < MinWaitMillis || o.WaitMillis > MaxWaitMillis {
		violations = append(violations,
			fmt.Sprintf("wait time must be between %dms and %dms, got %dms",
				MinWaitMillis, MaxWaitMillis, o.WaitMillis))
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
