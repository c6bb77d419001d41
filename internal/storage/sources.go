package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/harvester/internal/domain"
)

// SourceRepository handles database operations for sources and their
// selectors.
type SourceRepository struct {
	db *sqlx.DB
}

// NewSourceRepository creates a new source repository.
func NewSourceRepository(db *sqlx.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// GetActiveSource returns an active source with its active selectors
// ordered by priority, or nil when the source is missing or inactive.
// Each call reads fresh rows, so the crawl's start-of-run snapshot sees
// current selector edits.
func (r *SourceRepository) GetActiveSource(ctx context.Context, id string) (*domain.Source, error) {
	var source domain.Source
	query := `
		SELECT id, name, base_url, backend, active, created_at
		FROM sources
		WHERE id = $1 AND active = TRUE
	`

	err := r.db.GetContext(ctx, &source, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	selectors, err := r.activeSelectors(ctx, id)
	if err != nil {
		return nil, err
	}
	source.Selectors = selectors

	return &source, nil
}

// List returns all sources, active and inactive, for administrative
// display.
func (r *SourceRepository) List(ctx context.Context) ([]*domain.Source, error) {
	var sources []*domain.Source
	query := `
		SELECT id, name, base_url, backend, active, created_at
		FROM sources
		ORDER BY name
	`

	if err := r.db.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	if sources == nil {
		sources = []*domain.Source{}
	}
	return sources, nil
}

// activeSelectors loads a source's active selectors ordered by priority.
func (r *SourceRepository) activeSelectors(ctx context.Context, sourceID string) ([]domain.Selector, error) {
	var selectors []domain.Selector
	query := `
		SELECT id, source_id, role, expression, priority, active
		FROM selectors
		WHERE source_id = $1 AND active = TRUE
		ORDER BY role, priority
	`

	if err := r.db.SelectContext(ctx, &selectors, query, sourceID); err != nil {
		return nil, fmt.Errorf("failed to load selectors: %w", err)
	}

	return selectors, nil
}
