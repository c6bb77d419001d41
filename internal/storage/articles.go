package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/harvester/internal/domain"
)

// ArticleRepository handles database operations for articles.
type ArticleRepository struct {
	db *sqlx.DB
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// FindByFingerprintOrLink returns the article matching either key, or
// nil when none exists.
func (r *ArticleRepository) FindByFingerprintOrLink(
	ctx context.Context,
	fingerprint, link string,
) (*domain.Article, error) {
	var article domain.Article
	query := `
		SELECT id, source_id, title, link, content, fingerprint, depth, read, created_at
		FROM articles
		WHERE fingerprint = $1 OR link = $2
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &article, query, fingerprint, link)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find article: %w", err)
	}

	return &article, nil
}

// Insert persists a new article. A unique-constraint violation on link
// or fingerprint is classified as "not new", never surfaced as a fatal
// error; the engine does not hold a lock across check-then-insert, so
// concurrent identical inserts are expected.
func (r *ArticleRepository) Insert(ctx context.Context, article *domain.Article) (bool, error) {
	query := `
		INSERT INTO articles (id, source_id, title, link, content, fingerprint, depth, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		article.ID,
		article.SourceID,
		article.Title,
		article.Link,
		article.Content,
		article.Fingerprint,
		article.Depth,
		article.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert article: %w", err)
	}

	return true, nil
}

// ListBySource returns the newest articles for a source.
func (r *ArticleRepository) ListBySource(
	ctx context.Context,
	sourceID string,
	limit int,
) ([]*domain.Article, error) {
	var articles []*domain.Article
	query := `
		SELECT id, source_id, title, link, content, fingerprint, depth, read, created_at
		FROM articles
		WHERE source_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &articles, query, sourceID, limit); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	if articles == nil {
		articles = []*domain.Article{}
	}
	return articles, nil
}
