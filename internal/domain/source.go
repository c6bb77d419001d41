// Package domain provides domain models used across the application.
package domain

import "time"

// Backend identifies the fetch strategy used for a source.
type Backend string

const (
	// BackendBrowser renders pages in a headless browser before extraction.
	BackendBrowser Backend = "browser"
	// BackendStatic fetches raw HTML over HTTP and parses it without execution.
	BackendStatic Backend = "static"
)

// SelectorRole names the field a selector extracts.
type SelectorRole string

const (
	RoleList    SelectorRole = "list"
	RoleTitle   SelectorRole = "title"
	RoleContent SelectorRole = "content"
	RoleLink    SelectorRole = "link"
	RoleImage   SelectorRole = "image"
	RoleDate    SelectorRole = "date"
	RoleAuthor  SelectorRole = "author"
)

// Source represents a configured website to crawl.
type Source struct {
	ID        string    `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	BaseURL   string    `db:"base_url"   json:"base_url"`
	Backend   Backend   `db:"backend"    json:"backend"`
	Active    bool      `db:"active"     json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Selectors holds the source's active selectors ordered by priority.
	// Populated by the storage layer, not a database column.
	Selectors []Selector `db:"-" json:"selectors,omitempty"`
}

// Selector is a named extraction rule belonging to a source.
type Selector struct {
	ID         string       `db:"id"         json:"id"`
	SourceID   string       `db:"source_id"  json:"source_id"`
	Role       SelectorRole `db:"role"       json:"role"`
	Expression string       `db:"expression" json:"expression"`
	Priority   int          `db:"priority"   json:"priority"`
	Active     bool         `db:"active"     json:"active"`
}

// SelectorsByRole groups selectors by role, preserving priority order.
func (s *Source) SelectorsByRole() map[SelectorRole][]string {
	out := make(map[SelectorRole][]string)
	for _, sel := range s.Selectors {
		if !sel.Active {
			continue
		}
		out[sel.Role] = append(out[sel.Role], sel.Expression)
	}
	return out
}
