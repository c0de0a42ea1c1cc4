// Package serp abstracts the search-engine-results API that supplies the raw
// URLs profiles are harvested from.
package serp

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrBadStatus is wrapped by providers when the API answers with a
	// non-success status. A response like this aborts the whole harvest.
	ErrBadStatus = errors.New("serp: non-success response")

	// ErrMalformedResponse is wrapped when a success response carries no
	// results array at all. It aborts the harvest the same way a bad status
	// does; an array that is present but empty is a valid zero-result page.
	ErrMalformedResponse = errors.New("serp: response missing results")
)

// Request is one paginated search request. StartPage and Pages drive the
// provider's own pagination; result-shaping options are fixed by the provider.
type Request struct {
	Text      string
	StartPage int
	Pages     int
}

// Organic is a single organic search result entry. Only the URL matters to
// the harvester; entries without one are skipped upstream.
type Organic struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Pos   int    `json:"pos,omitempty"`
}

// PageResults groups the result sections of one parsed page.
type PageResults struct {
	Organic []Organic `json:"organic"`
}

// PageContent is the structured form of one page's content.
type PageContent struct {
	Results PageResults `json:"results"`
}

// Page is one page-like entry of a provider response. Content is either the
// structured form (when the provider parsed the page) or a raw HTML string.
type Page struct {
	Content    json.RawMessage `json:"content"`
	StatusCode int             `json:"status_code,omitempty"`
}

// Structured decodes the content as a parsed result tree. It returns false
// when the content is absent or is not the structured form.
func (p Page) Structured() (*PageContent, bool) {
	if len(p.Content) == 0 {
		return nil, false
	}
	var c PageContent
	if err := json.Unmarshal(p.Content, &c); err != nil {
		return nil, false
	}
	return &c, true
}

// HTML decodes the content as a raw HTML string. It returns false when the
// content is absent or is the structured form.
func (p Page) HTML() (string, bool) {
	if len(p.Content) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(p.Content, &s); err != nil {
		return "", false
	}
	return s, true
}

// Response is a full provider response: one Page per requested page.
type Response struct {
	Results []Page `json:"results"`
}

// Provider runs one paginated search request against a SERP backend.
// Implementations must treat transport failures and non-success statuses as
// errors; a malformed individual result entry is not theirs to reject.
type Provider interface {
	Search(ctx context.Context, req Request) (*Response, error)
}
