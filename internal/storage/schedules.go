package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/harvester/internal/domain"
)

// ScheduleRepository handles database operations for crawl schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// GetByID returns a schedule, or nil when it does not exist. The
// scheduler re-reads through this on every fire so edits take effect on
// the next trigger without a restart.
func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	var schedule domain.Schedule
	query := `
		SELECT id, source_id, cron_expr, active, crawl_depth, full_content,
		       article_limit, timeout_ms, follow_links, last_run
		FROM schedules
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &schedule, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	return &schedule, nil
}

// ListActive returns all active schedules.
func (r *ScheduleRepository) ListActive(ctx context.Context) ([]*domain.Schedule, error) {
	var schedules []*domain.Schedule
	query := `
		SELECT id, source_id, cron_expr, active, crawl_depth, full_content,
		       article_limit, timeout_ms, follow_links, last_run
		FROM schedules
		WHERE active = TRUE
	`

	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	if schedules == nil {
		schedules = []*domain.Schedule{}
	}
	return schedules, nil
}

// UpdateLastRun stamps the schedule after a triggered crawl completes,
// success or failure.
func (r *ScheduleRepository) UpdateLastRun(ctx context.Context, id string) error {
	query := `UPDATE schedules SET last_run = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to update schedule last run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("schedule not found: %s", id)
	}

	return nil
}
