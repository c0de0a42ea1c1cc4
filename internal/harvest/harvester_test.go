package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/steelproxy/licscraper/internal/profile"
	"github.com/steelproxy/licscraper/internal/serp"
)

// fakeProvider replays one canned response (or error) per run and records
// the requests it saw.
type fakeProvider struct {
	responses []*serp.Response
	errs      []error
	requests  []serp.Request
}

func (f *fakeProvider) Search(ctx context.Context, req serp.Request) (*serp.Response, error) {
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return &serp.Response{}, nil
}

func responseWithURLs(t *testing.T, urls ...string) *serp.Response {
	t.Helper()
	organic := make([]serp.Organic, len(urls))
	for i, u := range urls {
		organic[i] = serp.Organic{URL: u}
	}
	content, err := json.Marshal(serp.PageContent{Results: serp.PageResults{Organic: organic}})
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	return &serp.Response{Results: []serp.Page{{Content: content}}}
}

func TestHarvester_AdvancesCursorAcrossRuns(t *testing.T) {
	fp := &fakeProvider{
		responses: []*serp.Response{
			responseWithURLs(t, "https://www.linkedin.com/in/jane-doe-123", "https://linkedin.com/in/jane-doe-123/"),
			responseWithURLs(t, "https://linkedin.com/in/john-q-public"),
		},
	}

	h := NewHarvester(fp, nil)
	got, err := h.Run(context.Background(), SearchQuery{
		Text:        "site:example.com mayor",
		StartPage:   1,
		PagesPerRun: 1,
		RunCount:    2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fp.requests) != 2 {
		t.Fatalf("expected exactly 2 requests, got %d", len(fp.requests))
	}
	if fp.requests[0].StartPage != 1 || fp.requests[1].StartPage != 2 {
		t.Errorf("expected page cursors 1 then 2, got %d then %d",
			fp.requests[0].StartPage, fp.requests[1].StartPage)
	}
	for i, req := range fp.requests {
		if req.Text != "site:example.com mayor" {
			t.Errorf("request %d: unexpected query %q", i, req.Text)
		}
		if req.Pages != 1 {
			t.Errorf("request %d: expected 1 page, got %d", i, req.Pages)
		}
	}

	want := []profile.ID{"jane-doe-123", "john-q-public"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestHarvester_UnionAcrossRuns(t *testing.T) {
	fp := &fakeProvider{
		responses: []*serp.Response{
			responseWithURLs(t, "https://linkedin.com/in/a", "https://linkedin.com/in/b"),
			responseWithURLs(t, "https://linkedin.com/in/b", "https://linkedin.com/in/c"),
		},
	}

	h := NewHarvester(fp, nil)
	got, err := h.Run(context.Background(), SearchQuery{Text: "q", StartPage: 1, PagesPerRun: 1, RunCount: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []profile.ID{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestHarvester_CursorHonorsPagesPerRun(t *testing.T) {
	fp := &fakeProvider{}

	h := NewHarvester(fp, nil)
	_, err := h.Run(context.Background(), SearchQuery{Text: "q", StartPage: 3, PagesPerRun: 5, RunCount: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantPages := []int{3, 8, 13}
	for i, req := range fp.requests {
		if req.StartPage != wantPages[i] {
			t.Errorf("run %d: expected start page %d, got %d", i+1, wantPages[i], req.StartPage)
		}
	}
}

func TestHarvester_AbortsOnFailure(t *testing.T) {
	bad := errors.New("quota exceeded")
	fp := &fakeProvider{
		errs: []error{bad},
		responses: []*serp.Response{
			nil,
			responseWithURLs(t, "https://linkedin.com/in/never-reached"),
		},
	}

	h := NewHarvester(fp, nil)
	got, err := h.Run(context.Background(), SearchQuery{Text: "q", StartPage: 1, PagesPerRun: 1, RunCount: 2})

	if !errors.Is(err, bad) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no partial identifier set, got %v", got)
	}
	if len(fp.requests) != 1 {
		t.Errorf("expected harvest to stop after the failing run, issued %d requests", len(fp.requests))
	}
}

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name  string
		query SearchQuery
		want  error
	}{
		{"valid", SearchQuery{Text: "q", StartPage: 1, PagesPerRun: 1, RunCount: 1}, nil},
		{"empty text", SearchQuery{StartPage: 1, PagesPerRun: 1, RunCount: 1}, ErrEmptyQuery},
		{"zero start page", SearchQuery{Text: "q", PagesPerRun: 1, RunCount: 1}, ErrBadStartPage},
		{"zero pages", SearchQuery{Text: "q", StartPage: 1, RunCount: 1}, ErrBadPages},
		{"zero runs", SearchQuery{Text: "q", StartPage: 1, PagesPerRun: 1}, ErrBadRunCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.query.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
