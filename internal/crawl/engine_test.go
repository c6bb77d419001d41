package crawl_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/harvester/internal/backend"
	"github.com/jonesrussell/harvester/internal/crawl"
	"github.com/jonesrussell/harvester/internal/domain"
	"github.com/jonesrussell/harvester/internal/logger"
)

const (
	testSourceID = "src-1"
	testBaseURL  = "https://news.example.com/"
)

// --- Mock implementations ---

type mockPage struct{ url string }

func (p mockPage) URL() string { return p.url }

// mockBackend serves canned fields per URL and records every open.
type mockBackend struct {
	mu        sync.Mutex
	opens     []string
	openErrs  map[string]error
	fieldsFor func(url string) backend.Fields
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) Open(_ context.Context, rawURL string) (backend.Page, error) {
	m.mu.Lock()
	m.opens = append(m.opens, rawURL)
	err := m.openErrs[rawURL]
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return mockPage{url: rawURL}, nil
}

func (m *mockBackend) Extract(_ context.Context, page backend.Page, _ backend.SelectorSet) (backend.Fields, error) {
	return m.fieldsFor(page.URL()), nil
}

func (m *mockBackend) Close(backend.Page) {}

func (m *mockBackend) TestSelector(context.Context, string, string) (domain.SelectorTest, error) {
	return domain.SelectorTest{}, nil
}

func (m *mockBackend) openCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.opens)
}

func (m *mockBackend) opensMatching(match func(string) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, u := range m.opens {
		if match(u) {
			count++
		}
	}
	return count
}

// mockProvider hands out a fixed backend.
type mockProvider struct{ backend backend.Backend }

func (p *mockProvider) Backend(domain.Backend, backend.Options) (backend.Backend, error) {
	return p.backend, nil
}

// mockSourceStore returns one canned source.
type mockSourceStore struct{ source *domain.Source }

func (s *mockSourceStore) GetActiveSource(_ context.Context, id string) (*domain.Source, error) {
	if s.source != nil && s.source.ID == id {
		return s.source, nil
	}
	return nil, nil
}

// memoryArticleStore is an in-memory ArticleStore honoring the unique
// link/fingerprint contract.
type memoryArticleStore struct {
	mu       sync.Mutex
	articles []*domain.Article
}

func (s *memoryArticleStore) FindByFingerprintOrLink(_ context.Context, fingerprint, link string) (*domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.articles {
		if a.Fingerprint == fingerprint || a.Link == link {
			return a, nil
		}
	}
	return nil, nil
}

func (s *memoryArticleStore) Insert(_ context.Context, article *domain.Article) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.articles {
		if a.Fingerprint == article.Fingerprint || a.Link == article.Link {
			return false, nil
		}
	}
	s.articles = append(s.articles, article)
	return true, nil
}

func (s *memoryArticleStore) all() []*domain.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Article(nil), s.articles...)
}

// mockRunStore records crawl history in memory.
type mockRunStore struct {
	mu   sync.Mutex
	runs []*domain.CrawlRun
}

func (s *mockRunStore) RecordRun(_ context.Context, run *domain.CrawlRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *mockRunStore) last() *domain.CrawlRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.runs) == 0 {
		return nil
	}
	return s.runs[len(s.runs)-1]
}

// --- Fixtures ---

func testSource() *domain.Source {
	return &domain.Source{
		ID:      testSourceID,
		Name:    "Example News",
		BaseURL: testBaseURL,
		Backend: domain.BackendStatic,
		Active:  true,
		Selectors: []domain.Selector{
			{Role: domain.RoleList, Expression: ".latest a", Active: true},
			{Role: domain.RoleTitle, Expression: "h1", Active: true},
			{Role: domain.RoleContent, Expression: ".story", Active: true},
		},
	}
}

func validOptions() crawl.Options {
	opts := crawl.Defaults()
	opts.FullContent = true
	return opts
}

// listFields builds seed-page fields offering the given candidates.
func listFields(candidates ...string) backend.Fields {
	return backend.Fields{ListLinks: candidates}
}

// articleFields builds item-page fields with internal links.
func articleFields(title string, links ...string) backend.Fields {
	return backend.Fields{Title: title, Content: "body of " + title, PageLinks: links}
}

type engineFixture struct {
	engine   *crawl.Engine
	backend  *mockBackend
	articles *memoryArticleStore
	runs     *mockRunStore
}

func newEngineFixture(b *mockBackend) *engineFixture {
	articles := &memoryArticleStore{}
	runs := &mockRunStore{}
	engine := crawl.NewEngine(
		&mockSourceStore{source: testSource()},
		articles,
		runs,
		&mockProvider{backend: b},
		nil,
		logger.NewNoOp(),
	)
	return &engineFixture{engine: engine, backend: b, articles: articles, runs: runs}
}

// --- Tests ---

func TestRunCrawlValidationCollectsAllViolations(t *testing.T) {
	b := &mockBackend{fieldsFor: func(string) backend.Fields { return backend.Fields{} }}
	fx := newEngineFixture(b)

	_, err := fx.engine.RunCrawl(context.Background(), testSourceID, crawl.Options{
		Limit:         0,
		Depth:         6,
		TimeoutMillis: 100,
		WaitMillis:    crawl.DefaultWaitMillis,
	})
	require.Error(t, err)

	var vErr *crawl.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Violations, 3)
	assert.Contains(t, vErr.Error(), "limit")
	assert.Contains(t, vErr.Error(), "depth")
	assert.Contains(t, vErr.Error(), "timeout")

	// The backend must never be touched for an invalid run.
	assert.Equal(t, 0, b.openCount())
	assert.Nil(t, fx.runs.last())
}

func TestRunCrawlPersistsArticles(t *testing.T) {
	b := &mockBackend{fieldsFor: func(u string) backend.Fields {
		if u == testBaseURL {
			return listFields(testBaseURL+"a1", testBaseURL+"a2")
		}
		return articleFields("Title of " + u)
	}}
	fx := newEngineFixture(b)

	result, err := fx.engine.RunCrawl(context.Background(), testSourceID, validOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.New)
	assert.Equal(t, 0, result.Errors)
	assert.Equal(t, domain.RunStatusCompleted, result.Status)

	articles := fx.articles.all()
	require.Len(t, articles, 2)
	for _, a := range articles {
		assert.Equal(t, testSourceID, a.SourceID)
		assert.Equal(t, 0, a.Depth)
		assert.NotEmpty(t, a.Fingerprint)
		assert.NotEmpty(t, a.Content)
	}
}

func TestRunCrawlSecondRunIsIdempotent(t *testing.T) {
	b := &mockBackend{fieldsFor: func(u string) backend.Fields {
		if u == testBaseURL {
			return listFields(testBaseURL + "a1")
		}
		return articleFields("Stable Title")
	}}
	fx := newEngineFixture(b)

	first, err := fx.engine.RunCrawl(context.Background(), testSourceID, validOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, first.New)

	second, err := fx.engine.RunCrawl(context.Background(), testSourceID, validOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, second.New)
	assert.Equal(t, 1, second.Processed)
	assert.Len(t, fx.articles.all(), 1)
}

func TestRunCrawlPartialFailureIsolation(t *testing.T) {
	candidates := []string{
		testBaseURL + "a1", testBaseURL + "a2", testBaseURL + "a3",
		testBaseURL + "a4", testBaseURL + "a5",
	}
	b := &mockBackend{
		openErrs: map[string]error{
			testBaseURL + "a3": &backend.NavigationError{URL: testBaseURL + "a3"},
		},
		fieldsFor: func(u string) backend.Fields {
			if u == testBaseURL {
				return listFields(candidates...)
			}
			return articleFields("Title of " + u)
		},
	}
	fx := newEngineFixture(b)

	result, err := fx.engine.RunCrawl(context.Background(), testSourceID, validOptions())
	require.NoError(t, err)

	assert.Equal(t, 5, result.Found)
	assert.Equal(t, 4, result.Processed)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, domain.RunStatusPartial, result.Status)

	run := fx.runs.last()
	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusPartial, run.Status)
	assert.Equal(t, 4, run.Processed)
	assert.Equal(t, 1, run.Errors)
}

func TestRunCrawlSkipsEmptyTitles(t *testing.T) {
	b := &mockBackend{fieldsFor: func(u string) backend.Fields {
		switch u {
		case testBaseURL:
			return listFields(testBaseURL+"a1", testBaseURL+"a2")
		case testBaseURL + "a1":
			return backend.Fields{Content: "no title here"}
		default:
			return articleFields("Real Title")
		}
	}}
	fx := newEngineFixture(b)

	result, err := fx.engine.RunCrawl(context.Background(), testSourceID, validOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.New)
	assert.Equal(t, 0, result.Errors)
	assert.Len(t, fx.articles.all(), 1)
}

func TestRunCrawlHonorsLimit(t *testing.T) {
	var candidates []string
	for i := 0; i < 10; i++ {
		candidates = append(candidates, testBaseURL+"a"+string(rune('0'+i)))
	}
	b := &mockBackend{fieldsFor: func(u string) backend.Fields {
		if u == testBaseURL {
			return listFields(candidates...)
		}
		return articleFields("Title of " + u)
	}}
	fx := newEngineFixture(b)

	opts := validOptions()
	opts.Limit = 3
	result, err := fx.engine.RunCrawl(context.Background(), testSourceID, opts)
	require.NoError(t, err)

	assert.Equal(t, 10, result.Found)
	assert.Equal(t, 3, result.Processed)
	assert.Len(t, fx.articles.all(), 3)
}

// subLinks fabricates n same-origin child links under a page URL.
func subLinks(pageURL string, n int) []string {
	links := make([]string, 0, n)
	for i := 0; i < n; i++ {
		links = append(links, pageURL+"/sub"+string(rune('a'+i)))
	}
	return links
}

func TestRunCrawlFanoutCap(t *testing.T) {
	item := testBaseURL + "a1"
	b := &mockBackend{fieldsFor: func(u string) backend.Fields {
		if u == testBaseURL {
			return listFields(item)
		}
		// Every page offers 10 internal links.
		return articleFields("Title of "+u, subLinks(u, 10)...)
	}}
	fx := newEngineFixture(b)

	opts := validOptions()
	opts.Depth = 2
	opts.FollowLinks = true
	result, err := fx.engine.RunCrawl(context.Background(), testSourceID, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Errors)

	depth1 := fx.backend.opensMatching(func(u string) bool {
		return strings.Count(u, "/sub") == 1
	})
	depth2 := fx.backend.opensMatching(func(u string) bool {
		return strings.Count(u, "/sub") == 2
	})

	assert.LessOrEqual(t, depth1, crawl.FanoutPerPage)
	assert.LessOrEqual(t, depth2, crawl.FanoutPerPage*crawl.FanoutPerPage)
	assert.Positive(t, depth1)
	assert.Positive(t, depth2)
}

func TestRunCrawlDepthInvariant(t *testing.T) {
	b := &mockBackend{fieldsFor: func(u string) backend.Fields {
		if u == testBaseURL {
			return listFields(testBaseURL + "a1")
		}
		return articleFields("Title of "+u, subLinks(u, 5)...)
	}}
	fx := newEngineFixture(b)

	opts := validOptions()
	opts.Depth = 2
	opts.FollowLinks = true
	_, err := fx.engine.RunCrawl(context.Background(), testSourceID, opts)
	require.NoError(t, err)

	for _, a := range fx.articles.all() {
		assert.LessOrEqual(t, a.Depth, opts.Depth)
	}
}

func TestRunCrawlNoFollowWithoutFlag(t *testing.T) {
	b := &mockBackend{fieldsFor: func(u string) backend.Fields {
		if u == testBaseURL {
			return listFields(testBaseURL + "a1")
		}
		return articleFields("Title of "+u, subLinks(u, 5)...)
	}}
	fx := newEngineFixture(b)

	opts := validOptions()
	opts.Depth = 2
	opts.FollowLinks = false
	_, err := fx.engine.RunCrawl(context.Background(), testSourceID, opts)
	require.NoError(t, err)

	// Seed page + one item, nothing deeper.
	assert.Equal(t, 2, fx.backend.openCount())
}

func TestRunCrawlSeedFailureRecordsFailedRun(t *testing.T) {
	b := &mockBackend{
		openErrs:  map[string]error{testBaseURL: &backend.NavigationError{URL: testBaseURL}},
		fieldsFor: func(string) backend.Fields { return backend.Fields{} },
	}
	fx := newEngineFixture(b)

	_, err := fx.engine.RunCrawl(context.Background(), testSourceID, validOptions())
	require.Error(t, err)

	run := fx.runs.last()
	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
}

func TestRunCrawlUnknownSource(t *testing.T) {
	b := &mockBackend{fieldsFor: func(string) backend.Fields { return backend.Fields{} }}
	fx := newEngineFixture(b)

	_, err := fx.engine.RunCrawl(context.Background(), "missing", validOptions())
	assert.ErrorIs(t, err, crawl.ErrSourceNotFound)
	assert.Equal(t, 0, b.openCount())
}
