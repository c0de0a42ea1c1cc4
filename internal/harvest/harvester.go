package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/steelproxy/licscraper/internal/metrics"
	"github.com/steelproxy/licscraper/internal/profile"
	"github.com/steelproxy/licscraper/internal/serp"
	"github.com/steelproxy/licscraper/pkg/orderedset"
)

// Query validation errors.
var (
	ErrEmptyQuery   = errors.New("harvest: query text is required")
	ErrBadStartPage = errors.New("harvest: start page must be at least 1")
	ErrBadPages     = errors.New("harvest: pages per run must be at least 1")
	ErrBadRunCount  = errors.New("harvest: run count must be at least 1")
)

// SearchQuery fixes the shape of one harvest. It is not modified once the
// harvest begins; the advancing page cursor lives in the run loop.
type SearchQuery struct {
	Text        string
	StartPage   int
	PagesPerRun int
	RunCount    int
}

// Validate checks the query bounds before any request is issued.
func (q SearchQuery) Validate() error {
	if q.Text == "" {
		return ErrEmptyQuery
	}
	if q.StartPage < 1 {
		return ErrBadStartPage
	}
	if q.PagesPerRun < 1 {
		return ErrBadPages
	}
	if q.RunCount < 1 {
		return ErrBadRunCount
	}
	return nil
}

// Harvester runs sequential paginated searches against a Provider and
// accumulates every profile identifier they surface. All mutable run state
// lives inside Run, so one Harvester can serve consecutive harvests.
type Harvester struct {
	provider serp.Provider
	logger   *slog.Logger
}

// NewHarvester creates a Harvester bound to a SERP provider.
func NewHarvester(provider serp.Provider, logger *slog.Logger) *Harvester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Harvester{
		provider: provider,
		logger:   logger,
	}
}

// Run executes query.RunCount sequential runs, advancing the page cursor by
// query.PagesPerRun after each. The returned identifiers are deduplicated
// across all pages of all runs and kept in first-seen order. Any provider
// failure aborts the whole harvest; no partial set is returned.
func (h *Harvester) Run(ctx context.Context, query SearchQuery) ([]profile.ID, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	seen := orderedset.New[profile.ID]()
	page := query.StartPage
	start := time.Now()

	h.logger.Info("starting requests", "query", query.Text, "runs", query.RunCount)

	for run := 1; run <= query.RunCount; run++ {
		runStart := time.Now()
		h.logger.Info("running request",
			"query", query.Text, "start_page", page, "run", run)

		resp, err := h.provider.Search(ctx, serp.Request{
			Text:      query.Text,
			StartPage: page,
			Pages:     query.PagesPerRun,
		})
		if err != nil {
			metrics.RecordSearch("error", time.Since(runStart))
			return nil, fmt.Errorf("harvest: run %d: %w", run, err)
		}
		metrics.RecordSearch("ok", time.Since(runStart))

		discovered := 0
		for _, p := range resp.Results {
			for _, id := range ExtractPage(p) {
				if seen.Add(id) {
					discovered++
					metrics.ProfilesDiscovered.Inc()
					h.logger.Debug("profile discovered", "profile", id, "run", run)
				}
			}
		}

		h.logger.Info("run completed",
			"run", run,
			"elapsed", time.Since(runStart).Round(10*time.Millisecond),
			"new_profiles", discovered,
			"total_profiles", seen.Len())

		page += query.PagesPerRun
	}

	h.logger.Info("all runs completed",
		"elapsed", time.Since(start).Round(10*time.Millisecond),
		"profiles", seen.Len())

	return seen.Values(), nil
}
