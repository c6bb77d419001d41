package backend

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureHTML = `<!DOCTYPE html>
<html>
<head><title>Fixture</title></head>
<body>
	<h1 class="headline">Main Headline</h1>
	<div class="story">Story body text.</div>
	<ul class="latest">
		<li><a href="/articles/one">One</a></li>
		<li><a href="/articles/two">Two</a></li>
		<li><a href="#top">Skip</a></li>
		<li><a href="javascript:void(0)">Skip too</a></li>
	</ul>
	<a href="https://other.example.org/external">External</a>
	<img class="lead" src="/img/lead.png">
</body>
</html>`

func fixtureDoc(t *testing.T) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fixtureHTML))
	require.NoError(t, err)
	return doc
}

func TestExtractFieldsBySelector(t *testing.T) {
	fields := extractFields(fixtureDoc(t), "https://news.example.com/", SelectorSet{
		Title:   []string{".headline"},
		Content: []string{".story"},
		Image:   []string{"img.lead"},
		List:    []string{".latest a"},
	})

	assert.Equal(t, "Main Headline", fields.Title)
	assert.Equal(t, "Story body text.", fields.Content)
	assert.Equal(t, "/img/lead.png", fields.Image)
	assert.Equal(t, []string{
		"https://news.example.com/articles/one",
		"https://news.example.com/articles/two",
	}, fields.ListLinks)
}

func TestExtractFieldsTitleFallback(t *testing.T) {
	// Primary selector matches nothing; generic heading tags are tried.
	fields := extractFields(fixtureDoc(t), "https://news.example.com/", SelectorSet{
		Title: []string{".no-such-title"},
	})
	assert.Equal(t, "Main Headline", fields.Title)
}

func TestExtractFieldsPriorityOrder(t *testing.T) {
	fields := extractFields(fixtureDoc(t), "https://news.example.com/", SelectorSet{
		Title: []string{".missing", ".headline", "h1"},
	})
	assert.Equal(t, "Main Headline", fields.Title)
}

func TestExtractFieldsEmptyOnNoMatch(t *testing.T) {
	fields := extractFields(fixtureDoc(t), "https://news.example.com/", SelectorSet{
		Content: []string{".absent"},
		List:    []string{".also-absent a"},
	})
	assert.Empty(t, fields.Content)
	assert.Empty(t, fields.ListLinks)
}

func TestExtractFieldsPageLinksFiltered(t *testing.T) {
	fields := extractFields(fixtureDoc(t), "https://news.example.com/", SelectorSet{})

	assert.Contains(t, fields.PageLinks, "https://news.example.com/articles/one")
	assert.Contains(t, fields.PageLinks, "https://other.example.org/external")
	for _, link := range fields.PageLinks {
		assert.NotContains(t, link, "javascript:")
		assert.NotContains(t, link, "#")
	}
}

// Both backends must return identical extraction results for the same
// document, so the rest of the engine can stay backend-agnostic.
func TestBackendExtractEquivalence(t *testing.T) {
	selectors := SelectorSet{
		Title:   []string{".headline"},
		Content: []string{".story"},
		List:    []string{".latest a"},
	}
	pageURL := "https://news.example.com/"

	static := &staticPage{url: pageURL, doc: fixtureDoc(t)}
	rendered := &browserPage{url: pageURL, doc: fixtureDoc(t)}

	staticFields, err := NewStaticBackend(Options{}).Extract(t.Context(), static, selectors)
	require.NoError(t, err)

	browser := &BrowserBackend{runtime: &browserRuntime{}}
	renderedFields, err := browser.Extract(t.Context(), rendered, selectors)
	require.NoError(t, err)

	assert.Equal(t, staticFields, renderedFields)
}

func TestTestSelectorSamples(t *testing.T) {
	result := testSelector(fixtureDoc(t), ".latest a")

	assert.Equal(t, 4, result.Count)
	assert.Contains(t, result.Samples, "One")
	assert.Contains(t, result.Samples, "Two")
	assert.LessOrEqual(t, len(result.Samples), maxSelectorSamples)
}

func TestTestSelectorNoMatches(t *testing.T) {
	result := testSelector(fixtureDoc(t), ".nothing-here")

	assert.Equal(t, 0, result.Count)
	assert.Empty(t, result.Samples)
}
