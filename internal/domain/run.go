package domain

import "time"

// Run status values recorded in crawl history.
const (
	RunStatusCompleted = "completed"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)

// CrawlRun is the append-only history record written once per run.
type CrawlRun struct {
	ID        string        `db:"id"         json:"id"`
	SourceID  string        `db:"source_id"  json:"source_id"`
	StartedAt time.Time     `db:"started_at" json:"started_at"`
	Found     int           `db:"found"      json:"found"`
	Processed int           `db:"processed"  json:"processed"`
	New       int           `db:"new"        json:"new"`
	Errors    int           `db:"errors"     json:"errors"`
	Depth     int           `db:"depth"      json:"depth"`
	Duration  time.Duration `db:"duration"   json:"duration"`
	Status    string        `db:"status"     json:"status"`
}

// CrawlResult is returned to callers of the crawl engine.
type CrawlResult struct {
	SourceID  string        `json:"source_id"`
	Found     int           `json:"found"`
	Processed int           `json:"processed"`
	New       int           `json:"new"`
	Errors    int           `json:"errors"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"`
}

// SelectorTest is the diagnostic result of evaluating a single selector
// expression against a live page.
type SelectorTest struct {
	Count   int      `json:"count"`
	Samples []string `json:"samples"`
}
