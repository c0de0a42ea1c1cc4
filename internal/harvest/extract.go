// Package harvest drives paginated SERP runs and accumulates the
// deduplicated set of profile identifiers they surface.
package harvest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/steelproxy/licscraper/internal/profile"
	"github.com/steelproxy/licscraper/internal/serp"
	"github.com/steelproxy/licscraper/pkg/orderedset"
)

// ExtractPage returns the canonical profile identifiers found on one result
// page, in first-seen order with duplicates removed. Entries without a URL
// and URLs that don't normalize contribute nothing; a malformed entry never
// fails the page. Parsed organic results are the primary path; when the
// provider hands back raw HTML instead, anchor hrefs are scanned as a
// fallback.
func ExtractPage(page serp.Page) []profile.ID {
	seen := orderedset.New[profile.ID]()

	if content, ok := page.Structured(); ok {
		for _, entry := range content.Results.Organic {
			if entry.URL == "" {
				continue
			}
			if id, ok := profile.Normalize(entry.URL); ok {
				seen.Add(id)
			}
		}
		return seen.Values()
	}

	if html, ok := page.HTML(); ok {
		for _, href := range extractHrefs(html) {
			if id, ok := profile.Normalize(href); ok {
				seen.Add(id)
			}
		}
	}

	return seen.Values()
}

func extractHrefs(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var hrefs []string
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		if href, exists := s.Attr("href"); exists && href != "" {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}
