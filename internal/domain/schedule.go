package domain

import "time"

// Schedule drives recurring crawls for a source.
type Schedule struct {
	ID          string     `db:"id"           json:"id"`
	SourceID    string     `db:"source_id"    json:"source_id"`
	CronExpr    string     `db:"cron_expr"    json:"cron_expr"`
	Active      bool       `db:"active"       json:"active"`
	CrawlDepth  int        `db:"crawl_depth"  json:"crawl_depth"`
	FullContent bool       `db:"full_content" json:"full_content"`
	Limit       int        `db:"article_limit" json:"article_limit"`
	Timeout     int        `db:"timeout_ms"   json:"timeout_ms"`
	FollowLinks bool       `db:"follow_links" json:"follow_links"`
	LastRun     *time.Time `db:"last_run"     json:"last_run,omitempty"`
}
