// Package pipeline wires the two stages of a scrape: the paginated SERP
// harvest and the contact enrichment, with optional persistence of the
// outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/steelproxy/licscraper/internal/enrich"
	"github.com/steelproxy/licscraper/internal/harvest"
	"github.com/steelproxy/licscraper/internal/profile"
	"github.com/steelproxy/licscraper/internal/serp"
	"github.com/steelproxy/licscraper/internal/storage"
	"github.com/steelproxy/licscraper/pkg/ratelimit"
)

// Pipeline holds the collaborators of one harvest-and-enrich invocation.
// Provider and ProfileAPI are required; Backend and Limiter are optional.
type Pipeline struct {
	Provider   serp.Provider
	ProfileAPI enrich.ProfileAPI
	Backend    storage.Backend
	Limiter    *ratelimit.Limiter
	Logger     *slog.Logger
}

// Result carries everything one invocation produced.
type Result struct {
	HarvestID string
	Profiles  []profile.ID
	Contacts  []profile.ContactRecord
	Duration  time.Duration
}

// Run executes the harvest then the enrichment and, when a backend is
// configured, persists each resolved contact. Harvest failures are fatal;
// persistence failures are logged and skipped so a dead backend can't throw
// away a finished scrape.
func (p *Pipeline) Run(ctx context.Context, query harvest.SearchQuery) (*Result, error) {
	if p.Provider == nil {
		return nil, errors.New("pipeline: SERP provider is required")
	}
	if p.ProfileAPI == nil {
		return nil, errors.New("pipeline: profile API is required")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	harvestID := uuid.New().String()

	harvester := harvest.NewHarvester(p.Provider, logger)
	ids, err := harvester.Run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	aggregator := enrich.NewAggregator(p.ProfileAPI, p.Limiter, logger)
	records, err := aggregator.Enrich(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	if p.Backend != nil {
		for i := range records {
			contact := storage.NewContact(harvestID, query.Text, records[i])
			if err := p.Backend.Save(ctx, contact); err != nil {
				logger.Warn("failed to persist contact", "profile", contact.Profile, "err", err)
			}
		}
	}

	return &Result{
		HarvestID: harvestID,
		Profiles:  ids,
		Contacts:  records,
		Duration:  time.Since(start),
	}, nil
}
