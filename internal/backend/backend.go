// Package backend provides the fetch backends used by the crawl engine.
// A backend loads a page, evaluates CSS selector expressions against it,
// and releases it. The rest of the engine is backend-agnostic: the
// browser variant renders JavaScript in a headless Chrome tab, the static
// variant fetches raw HTML over HTTP, and both share one extraction path.
package backend

import (
	"context"

	"github.com/jonesrussell/harvester/internal/domain"
)

// Page is a handle to a loaded document. Handles are owned by the backend
// that opened them and must be returned via Close.
type Page interface {
	// URL returns the final URL of the loaded document.
	URL() string
}

// SelectorSet holds the selector expressions for one extraction pass,
// per role, in priority order. The first matching non-empty expression
// per role wins.
type SelectorSet struct {
	List    []string
	Title   []string
	Content []string
	Link    []string
	Image   []string
	Date    []string
	Author  []string
}

// Fields is the structured result of evaluating a SelectorSet against a
// loaded page. Roles with no match are empty, never an error.
type Fields struct {
	Title   string
	Content string
	Image   string
	Date    string
	Author  string
	// ListLinks are the href targets matched by the list selectors,
	// resolved to absolute URLs in document order.
	ListLinks []string
	// PageLinks are all anchor targets on the page, resolved to absolute
	// URLs. The engine filters and samples these for link following.
	PageLinks []string
}

// Backend is the capability-polymorphic fetch interface.
type Backend interface {
	// Name identifies the backend variant.
	Name() string

	// Open loads a URL and returns a page handle. It applies two-stage
	// navigation: a fast content-ready wait first, retried once with a
	// more permissive fully-loaded wait before failing with a
	// NavigationError.
	Open(ctx context.Context, rawURL string) (Page, error)

	// Extract evaluates the selector set against the loaded page.
	Extract(ctx context.Context, page Page, selectors SelectorSet) (Fields, error)

	// Close releases the page. The backing session may be reused.
	Close(page Page)

	// TestSelector loads a URL outside of any crawl run and reports how
	// many nodes the expression matches, with a few sample texts. It
	// never consumes crawl concurrency budget.
	TestSelector(ctx context.Context, rawURL, expression string) (domain.SelectorTest, error)
}

// Options carries the per-run fetch tuning supplied by crawl options.
type Options struct {
	// Timeout bounds a full permissive page load.
	TimeoutMillis int
	// WaitMillis bounds the fast content-ready navigation attempt and
	// settle delays for dynamic content.
	WaitMillis int
	// UserAgent is sent on every request.
	UserAgent string
}

// BuildSelectorSet converts a source's active selectors, already ordered
// by priority, into a SelectorSet.
func BuildSelectorSet(src *domain.Source) SelectorSet {
	byRole := src.SelectorsByRole()
	return SelectorSet{
		List:    byRole[domain.RoleList],
		Title:   byRole[domain.RoleTitle],
		Content: byRole[domain.RoleContent],
		Link:    byRole[domain.RoleLink],
		Image:   byRole[domain.RoleImage],
		Date:    byRole[domain.RoleDate],
		Author:  byRole[domain.RoleAuthor],
	}
}
