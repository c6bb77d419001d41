package domain

import "time"

// Article represents a persisted article discovered by a crawl.
// Articles are created by the crawl engine at most once per
// fingerprint-or-link collision and never mutated by it afterwards;
// the read flag is owned by the API layer.
type Article struct {
	ID          string    `db:"id"          json:"id"`
	SourceID    string    `db:"source_id"   json:"source_id"`
	Title       string    `db:"title"       json:"title"`
	Link        string    `db:"link"        json:"link"`
	Content     string    `db:"content"     json:"content"`
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`
	Depth       int       `db:"depth"       json:"depth"`
	Read        bool      `db:"read"        json:"read"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
}
