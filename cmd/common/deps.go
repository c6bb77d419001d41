// Package common wires the shared dependencies used by every command:
// configuration, logging, storage and the crawl engine.
package common

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/harvester/internal/backend"
	"github.com/jonesrussell/harvester/internal/config"
	"github.com/jonesrussell/harvester/internal/crawl"
	"github.com/jonesrussell/harvester/internal/logger"
	"github.com/jonesrussell/harvester/internal/search"
	"github.com/jonesrussell/harvester/internal/storage"
)

// Deps holds the dependencies shared by all commands.
type Deps struct {
	Config *config.Config
	Logger logger.Interface
}

// NewCommandDeps loads configuration and builds the logger.
func NewCommandDeps(cfgFile string) (*Deps, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &Deps{Config: cfg, Logger: log}, nil
}

// OpenDatabase connects to PostgreSQL and applies pending migrations.
func OpenDatabase(ctx context.Context, deps *Deps) (*sqlx.DB, error) {
	db, err := storage.Connect(deps.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if migrateErr := storage.Migrate(ctx, db); migrateErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", migrateErr)
	}

	return db, nil
}

// Engine bundles the crawl engine with the resources it owns.
type Engine struct {
	Crawl    *crawl.Engine
	Backends *backend.Provider
	Searcher *search.Client
}

// BuildEngine assembles the crawl engine over an open database
// connection. The returned engine owns the browser provider; callers
// must invoke Shutdown when done.
func BuildEngine(deps *Deps, db *sqlx.DB) (*Engine, error) {
	crawlerCfg := deps.Config.Crawler

	defaults := backend.Options{
		TimeoutMillis: crawlerCfg.DefaultTimeoutMillis,
		WaitMillis:    crawlerCfg.DefaultWaitMillis,
		UserAgent:     crawlerCfg.UserAgent,
	}
	provider := backend.NewProvider(defaults, crawlerCfg.SessionPoolCap, crawlerCfg.Headless, deps.Logger)

	var searcher *search.Client
	var indexer crawl.Indexer
	if deps.Config.Elasticsearch.Enabled {
		client, err := search.New(deps.Config.Elasticsearch, deps.Logger)
		if err != nil {
			provider.Shutdown()
			return nil, fmt.Errorf("failed to create search client: %w", err)
		}
		searcher = client
		indexer = client
	}

	engine := crawl.NewEngine(
		storage.NewSourceRepository(db),
		storage.NewArticleRepository(db),
		storage.NewRunRepository(db),
		provider,
		indexer,
		deps.Logger,
	)

	return &Engine{Crawl: engine, Backends: provider, Searcher: searcher}, nil
}

// Shutdown releases the engine's browser resources.
func (e *Engine) Shutdown() {
	e.Backends.Shutdown()
}
