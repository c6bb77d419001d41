package backend

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/harvester/internal/domain"
)

// titleFallbacks are tried, in order, when no title selector matches.
var titleFallbacks = []string{"h1", "h2", ".title", ".headline"}

// maxSelectorSamples bounds the sample texts returned by selector tests.
const maxSelectorSamples = 5

// extractFields evaluates a SelectorSet against a parsed document. Both
// backends funnel through this so their extraction semantics, including
// the title fallback list, are identical.
func extractFields(doc *goquery.Document, pageURL string, selectors SelectorSet) Fields {
	base, _ := url.Parse(pageURL)

	fields := Fields{
		Title:   firstText(doc, selectors.Title),
		Content: firstText(doc, selectors.Content),
		Image:   firstAttr(doc, selectors.Image, "src"),
		Date:    firstText(doc, selectors.Date),
		Author:  firstText(doc, selectors.Author),
	}

	if fields.Title == "" {
		fields.Title = firstText(doc, titleFallbacks)
	}

	fields.ListLinks = selectorLinks(doc, base, selectors.List)
	fields.PageLinks = anchorLinks(doc, base)

	return fields
}

// firstText returns the trimmed text of the first non-empty match across
// the given expressions, in priority order.
func firstText(doc *goquery.Document, expressions []string) string {
	for _, expr := range expressions {
		if expr == "" {
			continue
		}
		if text := strings.TrimSpace(doc.Find(expr).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstAttr returns the named attribute of the first match across the
// given expressions.
func firstAttr(doc *goquery.Document, expressions []string, attr string) string {
	for _, expr := range expressions {
		if expr == "" {
			continue
		}
		if val, ok := doc.Find(expr).First().Attr(attr); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// selectorLinks collects href targets matched by the first expression
// that yields any links, resolved against base, in document order.
func selectorLinks(doc *goquery.Document, base *url.URL, expressions []string) []string {
	for _, expr := range expressions {
		if expr == "" {
			continue
		}
		var links []string
		doc.Find(expr).Each(func(_ int, sel *goquery.Selection) {
			href := linkTarget(sel)
			if abs := resolveURL(base, href); abs != "" {
				links = append(links, abs)
			}
		})
		if len(links) > 0 {
			return links
		}
	}
	return nil
}

// anchorLinks collects every anchor target on the page resolved against
// base.
func anchorLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if abs := resolveURL(base, href); abs != "" {
			links = append(links, abs)
		}
	})
	return links
}

// linkTarget returns the href of the selection itself or of the first
// anchor inside it, so list selectors may target either cards or links.
func linkTarget(sel *goquery.Selection) string {
	if href, ok := sel.Attr("href"); ok {
		return href
	}
	href, _ := sel.Find("a[href]").First().Attr("href")
	return href
}

// resolveURL resolves href against base and filters out fragment-only,
// javascript: and mailto: targets.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	ref.Fragment = ""
	return ref.String()
}

// testSelector evaluates one expression against a parsed document for
// diagnostics.
func testSelector(doc *goquery.Document, expression string) domain.SelectorTest {
	matches := doc.Find(expression)
	result := domain.SelectorTest{Count: matches.Length()}
	matches.EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= maxSelectorSamples {
			return false
		}
		sample := strings.TrimSpace(sel.Text())
		if sample == "" {
			sample, _ = sel.Attr("href")
		}
		result.Samples = append(result.Samples, sample)
		return true
	})
	return result
}
