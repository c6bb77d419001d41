package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/harvester/internal/backend"
	"github.com/jonesrussell/harvester/internal/domain"
	"github.com/jonesrussell/harvester/internal/identity"
	"github.com/jonesrussell/harvester/internal/logger"
)

const (
	// LinkSampleCap is how many internal links are collected from one
	// page for follow-up consideration.
	LinkSampleCap = 3

	// FanoutPerPage is how many of a page's collected links are actually
	// followed at the next depth level.
	FanoutPerPage = 2
)

// Engine coordinates fetch backends, deduplication, bounded concurrency
// and crawl history for one process.
type Engine struct {
	sources  SourceStore
	articles ArticleStore
	runs     RunStore
	backends BackendProvider
	indexer  Indexer
	logger   logger.Interface

	batchSize int
}

// NewEngine creates a crawl engine. The indexer may be nil.
func NewEngine(
	sources SourceStore,
	articles ArticleStore,
	runs RunStore,
	backends BackendProvider,
	indexer Indexer,
	log logger.Interface,
) *Engine {
	return &Engine{
		sources:   sources,
		articles:  articles,
		runs:      runs,
		backends:  backends,
		indexer:   indexer,
		logger:    log,
		batchSize: DefaultBatchSize,
	}
}

// RunCrawl executes one crawl run for a source. Option validation
// happens before any backend work; per-item failures are counted and
// never abort the run; a CrawlRun record is written for every started
// run, successful or not.
func (e *Engine) RunCrawl(ctx context.Context, sourceID string, opts Options) (domain.CrawlResult, error) {
	if err := opts.Validate(); err != nil {
		return domain.CrawlResult{}, err
	}

	source, err := e.sources.GetActiveSource(ctx, sourceID)
	if err != nil {
		return domain.CrawlResult{}, fmt.Errorf("failed to load source %s: %w", sourceID, err)
	}
	if source == nil {
		return domain.CrawlResult{}, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceID)
	}

	bk, err := e.backends.Backend(source.Backend, backend.Options{
		TimeoutMillis: opts.TimeoutMillis,
		WaitMillis:    opts.WaitMillis,
	})
	if err != nil {
		return domain.CrawlResult{}, err
	}

	log := e.logger.With("source", source.Name, "backend", bk.Name())
	log.Info("Starting crawl", "depth", opts.Depth, "limit", opts.Limit, "follow_links", opts.FollowLinks)

	started := time.Now()
	state, fatal := e.execute(ctx, log, source, bk, opts)

	result := domain.CrawlResult{
		SourceID:  source.ID,
		Found:     state.found,
		Processed: state.processed,
		New:       state.newCount,
		Errors:    state.errCount,
		Duration:  time.Since(started),
		Status:    runStatus(state, fatal),
	}

	e.recordRun(ctx, log, source.ID, started, opts.Depth, result)

	if fatal != nil {
		log.Error("Crawl failed", "error", fatal)
		return result, fatal
	}

	log.Info("Crawl finished",
		"found", result.Found,
		"processed", result.Processed,
		"new", result.New,
		"errors", result.Errors,
		"duration", result.Duration)
	return result, nil
}

// DiagnosticResult is returned by selector testing. On failure it
// carries a human-readable category and remediation suggestion instead
// of a raw error chain.
type DiagnosticResult struct {
	Count      int      `json:"count"`
	Samples    []string `json:"samples,omitempty"`
	Error      string   `json:"error,omitempty"`
	Category   string   `json:"category,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// TestSelector evaluates one selector expression against a live page for
// configuration diagnostics. It runs outside any crawl and consumes no
// crawl concurrency budget.
func (e *Engine) TestSelector(ctx context.Context, kind domain.Backend, rawURL, expression string) (*DiagnosticResult, error) {
	bk, err := e.backends.Backend(kind, backend.Options{})
	if err != nil {
		return nil, err
	}

	test, err := bk.TestSelector(ctx, rawURL, expression)
	if err != nil {
		return diagnoseError(err), nil
	}

	return &DiagnosticResult{Count: test.Count, Samples: test.Samples}, nil
}

// diagnoseError maps backend failures to a category and a remediation
// suggestion.
func diagnoseError(err error) *DiagnosticResult {
	result := &DiagnosticResult{Error: err.Error()}

	var navErr *backend.NavigationError
	var unavailErr *backend.UnavailableError
	switch {
	case errors.As(err, &navErr):
		result.Category = "navigation"
		result.Suggestion = "check that the URL is reachable and consider a longer timeout"
	case errors.As(err, &unavailErr):
		result.Category = "backend"
		result.Suggestion = "ensure a Chromium binary is installed, or switch the source to the static backend"
	default:
		result.Category = "internal"
		result.Suggestion = "check the selector expression syntax"
	}
	return result
}

// runState accumulates per-run counters. It is only touched between
// batches, never from concurrent tasks.
type runState struct {
	found     int
	processed int
	newCount  int
	errCount  int
}

// execute drives the run: list discovery, per-item extraction in document
// order, then level-by-level follow-up bounded by depth and fan-out.
func (e *Engine) execute(
	ctx context.Context,
	log logger.Interface,
	source *domain.Source,
	bk backend.Backend,
	opts Options,
) (*runState, error) {
	state := &runState{}

	// Selectors are snapshot at run start; mid-run edits do not affect
	// this run.
	selectors := backend.BuildSelectorSet(source)
	if len(selectors.List) == 0 {
		return state, ErrNoListSelector
	}

	base, err := url.Parse(source.BaseURL)
	if err != nil {
		return state, fmt.Errorf("invalid base url %q: %w", source.BaseURL, err)
	}

	candidates, err := e.discover(ctx, bk, source.BaseURL, selectors)
	if err != nil {
		return state, err
	}

	state.found = len(candidates)
	if len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	visited := make(map[string]struct{}, len(candidates))
	var worklist []itemTask
	for _, link := range candidates {
		if _, seen := visited[link]; seen {
			continue
		}
		visited[link] = struct{}{}
		worklist = append(worklist, itemTask{url: link, depth: 0})
	}

	for level := 0; level <= opts.Depth && len(worklist) > 0; level++ {
		var results []itemResult
		if level == 0 {
			// Seed items are processed sequentially in document order.
			for _, task := range worklist {
				results = append(results, e.processItem(ctx, log, source, bk, selectors, base, opts, task))
			}
		} else {
			results = runBatches(ctx, worklist, e.batchSize, func(ctx context.Context, task itemTask) itemResult {
				return e.processItem(ctx, log, source, bk, selectors, base, opts, task)
			})
		}

		worklist = e.settleLevel(log, state, results, opts, visited)
	}

	return state, nil
}

// discover opens the seed page and extracts the list selector matches as
// candidate links.
func (e *Engine) discover(
	ctx context.Context,
	bk backend.Backend,
	baseURL string,
	selectors backend.SelectorSet,
) ([]string, error) {
	seed, err := bk.Open(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	defer bk.Close(seed)

	fields, err := bk.Extract(ctx, seed, selectors)
	if err != nil {
		return nil, err
	}
	return fields.ListLinks, nil
}

// settleLevel aggregates one level's settled results and builds the next
// level's worklist, capping fan-out per page.
func (e *Engine) settleLevel(
	log logger.Interface,
	state *runState,
	results []itemResult,
	opts Options,
	visited map[string]struct{},
) []itemTask {
	var next []itemTask

	for _, r := range results {
		switch {
		case r.err != nil:
			state.errCount++
			log.Warn("Item failed, skipping", "url", r.task.url, "depth", r.task.depth, "error", r.err)
			continue
		case !r.processed:
			log.Debug("Item skipped", "url", r.task.url, "depth", r.task.depth)
			continue
		}

		state.processed++
		if r.isNew {
			state.newCount++
		}

		if !opts.FollowLinks || r.task.depth >= opts.Depth {
			continue
		}

		followed := 0
		for _, link := range r.nextLinks {
			if followed >= FanoutPerPage {
				break
			}
			if _, seen := visited[link]; seen {
				continue
			}
			visited[link] = struct{}{}
			next = append(next, itemTask{url: link, depth: r.task.depth + 1})
			followed++
		}
	}

	return next
}

// processItem extracts a single page, dedupes it and persists it at the
// task's depth. All failures are contained in the returned result.
func (e *Engine) processItem(
	ctx context.Context,
	log logger.Interface,
	source *domain.Source,
	bk backend.Backend,
	selectors backend.SelectorSet,
	base *url.URL,
	opts Options,
	task itemTask,
) itemResult {
	result := itemResult{task: task}

	page, err := bk.Open(ctx, task.url)
	if err != nil {
		result.err = err
		return result
	}
	defer bk.Close(page)

	fields, err := bk.Extract(ctx, page, selectors)
	if err != nil {
		// Selector evaluation failures degrade to empty fields.
		var extractErr *backend.ExtractionError
		if !errors.As(err, &extractErr) {
			result.err = err
			return result
		}
		fields = backend.Fields{}
	}

	if fields.Title == "" {
		return result
	}
	result.processed = true

	content := fields.Content
	if !opts.FullContent {
		content = ""
	}

	fingerprint := identity.Fingerprint(fields.Title, task.url)
	existing, err := e.articles.FindByFingerprintOrLink(ctx, fingerprint, task.url)
	if err != nil {
		result.err = err
		result.processed = false
		return result
	}
	if existing != nil {
		return result
	}

	article := &domain.Article{
		ID:          uuid.NewString(),
		SourceID:    source.ID,
		Title:       fields.Title,
		Link:        task.url,
		Content:     content,
		Fingerprint: fingerprint,
		Depth:       task.depth,
		CreatedAt:   time.Now(),
	}

	isNew, err := e.articles.Insert(ctx, article)
	if err != nil {
		result.err = err
		result.processed = false
		return result
	}
	result.isNew = isNew

	if isNew && e.indexer != nil {
		if indexErr := e.indexer.Index(ctx, article); indexErr != nil {
			log.Warn("Failed to index article", "url", task.url, "error", indexErr)
		}
	}

	if isNew && opts.FollowLinks && task.depth < opts.Depth {
		result.nextLinks = sampleInternalLinks(base, task.url, fields.PageLinks)
	}

	return result
}

// sampleInternalLinks filters page links to same-origin targets,
// excluding the page itself, capped at LinkSampleCap.
func sampleInternalLinks(base *url.URL, pageURL string, links []string) []string {
	var sampled []string
	for _, link := range links {
		if len(sampled) >= LinkSampleCap {
			break
		}
		if link == pageURL {
			continue
		}
		parsed, err := url.Parse(link)
		if err != nil || parsed.Host != base.Host {
			continue
		}
		sampled = append(sampled, link)
	}
	return sampled
}

// recordRun writes the append-only history record. Failures to record
// are logged, never propagated.
func (e *Engine) recordRun(
	ctx context.Context,
	log logger.Interface,
	sourceID string,
	started time.Time,
	depth int,
	result domain.CrawlResult,
) {
	run := &domain.CrawlRun{
		ID:        uuid.NewString(),
		SourceID:  sourceID,
		StartedAt: started,
		Found:     result.Found,
		Processed: result.Processed,
		New:       result.New,
		Errors:    result.Errors,
		Depth:     depth,
		Duration:  result.Duration,
		Status:    result.Status,
	}
	if err := e.runs.RecordRun(ctx, run); err != nil {
		log.Error("Failed to record crawl run", "error", err)
	}
}

// runStatus derives the recorded status from counters and fatal errors.
func runStatus(state *runState, fatal error) string {
	switch {
	case fatal != nil:
		return domain.RunStatusFailed
	case state.errCount > 0:
		return domain.RunStatusPartial
	default:
		return domain.RunStatusCompleted
	}
}
