package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/harvester/internal/domain"
)

// RunRepository handles the append-only crawl history.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new crawl run repository.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// RecordRun writes one history row. Called exactly once per started run.
func (r *RunRepository) RecordRun(ctx context.Context, run *domain.CrawlRun) error {
	query := `
		INSERT INTO crawl_runs (id, source_id, started_at, found, processed, new, errors, depth, duration_ms, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		run.ID,
		run.SourceID,
		run.StartedAt,
		run.Found,
		run.Processed,
		run.New,
		run.Errors,
		run.Depth,
		run.Duration.Milliseconds(),
		run.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to record crawl run: %w", err)
	}

	return nil
}

// runRow mirrors the crawl_runs table with the duration in milliseconds.
type runRow struct {
	ID         string    `db:"id"`
	SourceID   string    `db:"source_id"`
	StartedAt  time.Time `db:"started_at"`
	Found      int       `db:"found"`
	Processed  int       `db:"processed"`
	New        int       `db:"new"`
	Errors     int       `db:"errors"`
	Depth      int       `db:"depth"`
	DurationMS int64     `db:"duration_ms"`
	Status     string    `db:"status"`
}

// ListRecent returns the newest runs for a source.
func (r *RunRepository) ListRecent(ctx context.Context, sourceID string, limit int) ([]*domain.CrawlRun, error) {
	var rows []runRow
	query := `
		SELECT id, source_id, started_at, found, processed, new, errors, depth, duration_ms, status
		FROM crawl_runs
		WHERE source_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &rows, query, sourceID, limit); err != nil {
		return nil, fmt.Errorf("failed to list crawl runs: %w", err)
	}

	runs := make([]*domain.CrawlRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, &domain.CrawlRun{
			ID:        row.ID,
			SourceID:  row.SourceID,
			StartedAt: row.StartedAt,
			Found:     row.Found,
			Processed: row.Processed,
			New:       row.New,
			Errors:    row.Errors,
			Depth:     row.Depth,
			Duration:  time.Duration(row.DurationMS) * time.Millisecond,
			Status:    row.Status,
		})
	}

	return runs, nil
}
