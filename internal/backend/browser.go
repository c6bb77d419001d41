package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jonesrussell/harvester/internal/domain"
	"github.com/jonesrussell/harvester/internal/logger"
)

// BrowserName identifies the browser rendering backend.
const BrowserName = "browser"

// resetTimeout bounds the blank-page reset of a released tab.
const resetTimeout = 5 * time.Second

// blockedURLPatterns lists sub-resource patterns the browser backend
// refuses to load. Rendering only needs the DOM, not pixels.
var blockedURLPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.otf", "*.eot",
	"*.css",
}

// browserSession is a single headless Chrome tab.
type browserSession struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Reset navigates the tab back to a blank page so it can be reused.
func (s *browserSession) Reset(ctx context.Context) error {
	resetCtx, cancel := context.WithTimeout(s.ctx, resetTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return chromedp.Run(resetCtx, chromedp.Navigate("about:blank"))
}

// Destroy closes the tab.
func (s *browserSession) Destroy() {
	s.cancel()
}

// browserRuntime owns the shared Chrome process and the tab pool. It is
// created once and shared by every per-run BrowserBackend view.
type browserRuntime struct {
	headless  bool
	userAgent string
	logger    logger.Interface
	pool      *Pool

	once        sync.Once
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewSession opens a fresh tab, starting the browser process on first
// use. Implements SessionFactory.
func (r *browserRuntime) NewSession(ctx context.Context) (Session, error) {
	r.once.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", r.headless),
			chromedp.Flag("disable-gpu", true),
		)
		if r.userAgent != "" {
			opts = append(opts, chromedp.UserAgent(r.userAgent))
		}
		r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	})

	tabCtx, tabCancel := chromedp.NewContext(r.allocCtx)

	// The first Run starts Chrome; a missing binary surfaces here.
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetBlockedURLs(blockedURLPatterns),
	)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open browser tab: %w", err)
	}

	return &browserSession{ctx: tabCtx, cancel: tabCancel}, nil
}

// browserPage is the page handle produced by the browser backend. The
// rendered DOM is snapshotted into a goquery document so extraction is
// shared with the static backend.
type browserPage struct {
	url     string
	doc     *goquery.Document
	session Session
}

// URL returns the final URL of the loaded document.
func (p *browserPage) URL() string { return p.url }

// BrowserBackend renders pages in headless Chrome before extraction.
// Instances are cheap per-run views over a shared runtime; the Chrome
// process and its tab pool live as long as the runtime.
type BrowserBackend struct {
	opts    Options
	runtime *browserRuntime
}

// NewBrowserBackend creates the browser backend and its shared tab pool.
func NewBrowserBackend(opts Options, poolCap int, headless bool, log logger.Interface) *BrowserBackend {
	runtime := &browserRuntime{
		headless:  headless,
		userAgent: opts.UserAgent,
		logger:    log,
	}
	runtime.pool = NewPool(poolCap, runtime, log)
	return &BrowserBackend{opts: opts, runtime: runtime}
}

// WithOptions returns a view of the backend with per-run fetch tuning,
// sharing the underlying browser process and tab pool.
func (b *BrowserBackend) WithOptions(opts Options) *BrowserBackend {
	if opts.UserAgent == "" {
		opts.UserAgent = b.opts.UserAgent
	}
	return &BrowserBackend{opts: opts, runtime: b.runtime}
}

// Pool exposes the shared tab pool, primarily for shutdown.
func (b *BrowserBackend) Pool() *Pool { return b.runtime.pool }

// Shutdown destroys all idle tabs and terminates the browser process.
func (b *BrowserBackend) Shutdown() {
	b.runtime.pool.Close()
	if b.runtime.allocCancel != nil {
		b.runtime.allocCancel()
	}
}

// Name identifies the backend variant.
func (b *BrowserBackend) Name() string { return BrowserName }

// Open acquires a tab and navigates it. The first attempt waits for the
// document body to be ready within the short wait budget; on failure it
// retries once waiting for the full load event within the permissive
// timeout.
func (b *BrowserBackend) Open(ctx context.Context, rawURL string) (Page, error) {
	session, err := b.runtime.pool.Acquire(ctx)
	if err != nil {
		return nil, &UnavailableError{Backend: BrowserName, Err: err}
	}

	tab, ok := session.(*browserSession)
	if !ok {
		b.runtime.pool.Discard(session)
		return nil, &UnavailableError{Backend: BrowserName, Err: fmt.Errorf("unexpected session type %T", session)}
	}

	html, err := b.navigate(tab, rawURL)
	if err != nil {
		b.runtime.pool.Release(ctx, session)
		return nil, &NavigationError{URL: rawURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		b.runtime.pool.Release(ctx, session)
		return nil, &NavigationError{URL: rawURL, Err: fmt.Errorf("parse rendered html: %w", err)}
	}

	return &browserPage{url: rawURL, doc: doc, session: session}, nil
}

// navigate performs the two-stage page load and snapshots the DOM.
func (b *BrowserBackend) navigate(tab *browserSession, rawURL string) (string, error) {
	wait := time.Duration(b.opts.WaitMillis) * time.Millisecond
	timeout := time.Duration(b.opts.TimeoutMillis) * time.Millisecond

	var html string

	fastCtx, cancel := context.WithTimeout(tab.ctx, wait)
	err := chromedp.Run(fastCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	cancel()
	if err == nil {
		return html, nil
	}

	slowCtx, cancel := context.WithTimeout(tab.ctx, timeout)
	defer cancel()
	err = chromedp.Run(slowCtx,
		chromedp.Navigate(rawURL),
		chromedp.Sleep(wait),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}

// Extract evaluates the selector set against the rendered document.
func (b *BrowserBackend) Extract(_ context.Context, page Page, selectors SelectorSet) (Fields, error) {
	bp, ok := page.(*browserPage)
	if !ok {
		return Fields{}, &ExtractionError{Err: fmt.Errorf("page %T does not belong to the browser backend", page)}
	}
	return extractFields(bp.doc, bp.url, selectors), nil
}

// Close returns the page's tab to the pool.
func (b *BrowserBackend) Close(page Page) {
	bp, ok := page.(*browserPage)
	if !ok || bp.session == nil {
		return
	}
	b.runtime.pool.Release(context.Background(), bp.session)
	bp.session = nil
}

// TestSelector renders the URL in a dedicated tab outside the pool, so
// diagnostics never consume crawl concurrency budget.
func (b *BrowserBackend) TestSelector(ctx context.Context, rawURL, expression string) (domain.SelectorTest, error) {
	session, err := b.runtime.NewSession(ctx)
	if err != nil {
		return domain.SelectorTest{}, &UnavailableError{Backend: BrowserName, Err: err}
	}
	defer session.Destroy()

	tab := session.(*browserSession)
	html, err := b.navigate(tab, rawURL)
	if err != nil {
		return domain.SelectorTest{}, &NavigationError{URL: rawURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.SelectorTest{}, &NavigationError{URL: rawURL, Err: err}
	}

	return testSelector(doc, expression), nil
}
