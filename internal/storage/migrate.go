package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the idempotent DDL applied at startup. The unique
// constraints on articles.link and articles.fingerprint back the
// engine's deduplication contract.
const schema = `
CREATE TABLE IF NOT EXISTS sources (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	base_url   TEXT NOT NULL,
	backend    TEXT NOT NULL DEFAULT 'static',
	active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS selectors (
	id         TEXT PRIMARY KEY,
	source_id  TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	expression TEXT NOT NULL,
	priority   INTEGER NOT NULL DEFAULT 0,
	active     BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_selectors_source ON selectors(source_id, role, priority);

CREATE TABLE IF NOT EXISTS articles (
	id          TEXT PRIMARY KEY,
	source_id   TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	link        TEXT NOT NULL UNIQUE,
	content     TEXT NOT NULL DEFAULT '',
	fingerprint TEXT NOT NULL UNIQUE,
	depth       INTEGER NOT NULL DEFAULT 0,
	read        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source_id, created_at DESC);

CREATE TABLE IF NOT EXISTS crawl_runs (
	id          TEXT PRIMARY KEY,
	source_id   TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	started_at  TIMESTAMPTZ NOT NULL,
	found       INTEGER NOT NULL DEFAULT 0,
	processed   INTEGER NOT NULL DEFAULT 0,
	new         INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0,
	depth       INTEGER NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	status      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_crawl_runs_source ON crawl_runs(source_id, started_at DESC);

CREATE TABLE IF NOT EXISTS schedules (
	id            TEXT PRIMARY KEY,
	source_id     TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	cron_expr     TEXT NOT NULL,
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	crawl_depth   INTEGER NOT NULL DEFAULT 0,
	full_content  BOOLEAN NOT NULL DEFAULT FALSE,
	article_limit INTEGER NOT NULL DEFAULT 20,
	timeout_ms    INTEGER NOT NULL DEFAULT 60000,
	follow_links  BOOLEAN NOT NULL DEFAULT FALSE,
	last_run      TIMESTAMPTZ
);
`

// Migrate applies the schema. Safe to run on every startup.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
