package crawl

import (
	"context"

	"github.com/jonesrussell/harvester/internal/backend"
	"github.com/jonesrussell/harvester/internal/domain"
)

// SourceStore supplies active sources with their active selectors
// ordered by priority.
type SourceStore interface {
	GetActiveSource(ctx context.Context, id string) (*domain.Source, error)
}

// ArticleStore persists discovered articles. Insert must classify a
// unique-constraint violation on link or fingerprint as "not new" rather
// than failing, since the engine holds no lock across check-then-insert.
type ArticleStore interface {
	FindByFingerprintOrLink(ctx context.Context, fingerprint, link string) (*domain.Article, error)
	Insert(ctx context.Context, article *domain.Article) (isNew bool, err error)
}

// RunStore records crawl history.
type RunStore interface {
	RecordRun(ctx context.Context, run *domain.CrawlRun) error
}

// BackendProvider dispatches fetch backends by source configuration.
type BackendProvider interface {
	Backend(kind domain.Backend, opts backend.Options) (backend.Backend, error)
}

// Indexer receives newly persisted articles for search indexing.
// Indexing failures are logged and never fatal to a run.
type Indexer interface {
	Index(ctx context.Context, article *domain.Article) error
}
