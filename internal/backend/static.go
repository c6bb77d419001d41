package backend

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jonesrussell/harvester/internal/domain"
)

// StaticName identifies the static HTML backend.
const StaticName = "static"

// staticPage is the page handle produced by the static backend.
type staticPage struct {
	url string
	doc *goquery.Document
}

// URL returns the final URL of the loaded document.
func (p *staticPage) URL() string { return p.url }

// StaticBackend fetches raw HTML over HTTP and parses it without script
// execution. Materially faster than the browser backend; used when a
// source does not require rendering.
type StaticBackend struct {
	opts Options
}

// NewStaticBackend creates a static HTML backend.
func NewStaticBackend(opts Options) *StaticBackend {
	return &StaticBackend{opts: opts}
}

// Name identifies the backend variant.
func (b *StaticBackend) Name() string { return StaticName }

// Open fetches and parses a URL. The first attempt is bounded by the
// short content-ready wait; on failure it retries once with the full
// permissive timeout before surfacing a NavigationError.
func (b *StaticBackend) Open(ctx context.Context, rawURL string) (Page, error) {
	body, err := b.fetch(ctx, rawURL, time.Duration(b.opts.WaitMillis)*time.Millisecond)
	if err != nil {
		body, err = b.fetch(ctx, rawURL, time.Duration(b.opts.TimeoutMillis)*time.Millisecond)
	}
	if err != nil {
		return nil, &NavigationError{URL: rawURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &NavigationError{URL: rawURL, Err: fmt.Errorf("parse html: %w", err)}
	}

	return &staticPage{url: rawURL, doc: doc}, nil
}

// Extract evaluates the selector set against the parsed document.
func (b *StaticBackend) Extract(_ context.Context, page Page, selectors SelectorSet) (Fields, error) {
	sp, ok := page.(*staticPage)
	if !ok {
		return Fields{}, &ExtractionError{Err: fmt.Errorf("page %T does not belong to the static backend", page)}
	}
	return extractFields(sp.doc, sp.url, selectors), nil
}

// Close releases the page. Static pages hold no backing session.
func (b *StaticBackend) Close(Page) {}

// TestSelector fetches the URL once and evaluates the expression for
// diagnostics.
func (b *StaticBackend) TestSelector(ctx context.Context, rawURL, expression string) (domain.SelectorTest, error) {
	page, err := b.Open(ctx, rawURL)
	if err != nil {
		return domain.SelectorTest{}, err
	}
	defer b.Close(page)

	sp := page.(*staticPage)
	return testSelector(sp.doc, expression), nil
}

// fetch performs a single bounded GET through colly and returns the
// response body.
func (b *StaticBackend) fetch(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	collectorOpts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	}
	if b.opts.UserAgent != "" {
		collectorOpts = append(collectorOpts, colly.UserAgent(b.opts.UserAgent))
	}
	collector := colly.NewCollector(collectorOpts...)
	collector.SetRequestTimeout(timeout)

	var body []byte
	var fetchErr error

	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(rawURL); err != nil {
		return nil, err
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response from %s", rawURL)
	}
	return body, nil
}
