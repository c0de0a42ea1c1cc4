package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/steelproxy/licscraper/internal/profile"
)

// fakeAPI maps identifiers to canned results.
type fakeAPI struct {
	records map[profile.ID]*profile.ContactRecord
	errs    map[profile.ID]error
	calls   []profile.ID
}

func (f *fakeAPI) ContactInfo(ctx context.Context, id profile.ID) (*profile.ContactRecord, error) {
	f.calls = append(f.calls, id)
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	return f.records[id], nil
}

func TestAggregator_SkipsFailedLookups(t *testing.T) {
	api := &fakeAPI{
		records: map[profile.ID]*profile.ContactRecord{
			"x": {Email: "x@example.com"},
			"z": {PhoneNumbers: []string{"555-0100"}},
		},
		errs: map[profile.ID]error{
			"y": errors.New("rate limited"),
		},
	}

	a := NewAggregator(api, nil, nil)
	got, err := a.Enrich(context.Background(), []profile.ID{"x", "y", "z"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Identifier != "x" || got[1].Identifier != "z" {
		t.Errorf("expected records for x and z, got %v and %v", got[0].Identifier, got[1].Identifier)
	}
	if len(api.calls) != 3 {
		t.Errorf("expected all 3 identifiers to be looked up, got %d calls", len(api.calls))
	}
}

func TestAggregator_SkipsEmptyPayloads(t *testing.T) {
	api := &fakeAPI{
		records: map[profile.ID]*profile.ContactRecord{
			"empty":   {},
			"missing": nil,
			"full":    {Email: "j@x.com"},
		},
	}

	a := NewAggregator(api, nil, nil)
	got, err := a.Enrich(context.Background(), []profile.ID{"empty", "missing", "full"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].Identifier != "full" || got[0].Email != "j@x.com" {
		t.Errorf("unexpected record %+v", got[0])
	}
}

func TestAggregator_StampsIdentifier(t *testing.T) {
	api := &fakeAPI{
		records: map[profile.ID]*profile.ContactRecord{
			"jane-doe-123": {Email: "j@x.com"},
		},
	}

	a := NewAggregator(api, nil, nil)
	got, err := a.Enrich(context.Background(), []profile.ID{"jane-doe-123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	rec := got[0]
	if rec.Identifier != "jane-doe-123" {
		t.Errorf("expected identifier stamped onto record, got %q", rec.Identifier)
	}
	if rec.Email != "j@x.com" || len(rec.Websites) != 0 || len(rec.SocialHandles) != 0 || len(rec.PhoneNumbers) != 0 {
		t.Errorf("expected only the email populated, got %+v", rec)
	}
}

func TestAggregator_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	api := &fakeAPI{}
	a := NewAggregator(api, nil, nil)

	_, err := a.Enrich(ctx, []profile.ID{"x", "y"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(api.calls) != 0 {
		t.Errorf("expected no lookups after cancellation, got %d", len(api.calls))
	}
}
