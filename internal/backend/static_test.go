package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/harvester/internal/backend"
)

const staticTestPage = `<html><body>
	<h1>Served Headline</h1>
	<div class="body">Served body.</div>
	<a href="/next">Next</a>
</body></html>`

func newStaticTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(staticTestPage))
	}))
	t.Cleanup(server.Close)
	return server
}

func staticTestOptions() backend.Options {
	return backend.Options{TimeoutMillis: 5000, WaitMillis: 1000, UserAgent: "harvester-test/1.0"}
}

func TestStaticBackendOpenAndExtract(t *testing.T) {
	server := newStaticTestServer(t)
	b := backend.NewStaticBackend(staticTestOptions())

	page, err := b.Open(context.Background(), server.URL)
	require.NoError(t, err)
	defer b.Close(page)

	fields, err := b.Extract(context.Background(), page, backend.SelectorSet{
		Title:   []string{"h1"},
		Content: []string{".body"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Served Headline", fields.Title)
	assert.Equal(t, "Served body.", fields.Content)
	assert.Equal(t, []string{server.URL + "/next"}, fields.PageLinks)
}

func TestStaticBackendRetriesSlowPageWithinTimeout(t *testing.T) {
	var requests atomic.Int32
	delay := 300 * time.Millisecond
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		time.Sleep(delay)
		_, _ = w.Write([]byte(staticTestPage))
	}))
	t.Cleanup(server.Close)

	// The page is slower than the fast content-ready wait but well within
	// the permissive timeout, so the second navigation stage succeeds.
	b := backend.NewStaticBackend(backend.Options{TimeoutMillis: 5000, WaitMillis: 100})

	page, err := b.Open(context.Background(), server.URL)
	require.NoError(t, err)
	defer b.Close(page)

	fields, err := b.Extract(context.Background(), page, backend.SelectorSet{Title: []string{"h1"}})
	require.NoError(t, err)
	assert.Equal(t, "Served Headline", fields.Title)
	assert.Equal(t, int32(2), requests.Load())
}

func TestStaticBackendNavigationError(t *testing.T) {
	b := backend.NewStaticBackend(backend.Options{TimeoutMillis: 200, WaitMillis: 100})

	_, err := b.Open(context.Background(), "http://127.0.0.1:1/unreachable")
	require.Error(t, err)

	var navErr *backend.NavigationError
	assert.True(t, errors.As(err, &navErr))
}

func TestStaticBackendTestSelector(t *testing.T) {
	server := newStaticTestServer(t)
	b := backend.NewStaticBackend(staticTestOptions())

	result, err := b.TestSelector(context.Background(), server.URL, "h1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Count)
	assert.Equal(t, []string{"Served Headline"}, result.Samples)
}

func TestStaticBackendExtractRejectsForeignPage(t *testing.T) {
	b := backend.NewStaticBackend(staticTestOptions())

	_, err := b.Extract(context.Background(), foreignPage{}, backend.SelectorSet{})
	assert.Error(t, err)
}

type foreignPage struct{}

func (foreignPage) URL() string { return "" }
