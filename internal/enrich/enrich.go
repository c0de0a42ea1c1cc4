// Package enrich resolves harvested profile identifiers into contact records.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/steelproxy/licscraper/internal/metrics"
	"github.com/steelproxy/licscraper/internal/profile"
	"github.com/steelproxy/licscraper/pkg/ratelimit"
)

// ProfileAPI resolves one canonical identifier to contact info. A nil record
// with a nil error means the lookup succeeded but returned no data.
type ProfileAPI interface {
	ContactInfo(ctx context.Context, id profile.ID) (*profile.ContactRecord, error)
}

// Aggregator performs contact lookups one identifier at a time against a
// single shared session. Lookups are never parallelized: the underlying
// session is stateful and bound to one caller.
type Aggregator struct {
	api     ProfileAPI
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator. The limiter is optional; when set it
// paces lookups to stay under the session's tolerance.
func NewAggregator(api ProfileAPI, limiter *ratelimit.Limiter, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		api:     api,
		limiter: limiter,
		logger:  logger,
	}
}

// Enrich resolves each identifier in order. An identifier whose lookup fails
// or comes back empty is skipped without aborting the batch; only context
// cancellation stops the loop early. One record is emitted per identifier
// that yielded any contact data.
func (a *Aggregator) Enrich(ctx context.Context, ids []profile.ID) ([]profile.ContactRecord, error) {
	records := make([]profile.ContactRecord, 0, len(ids))
	start := time.Now()

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("enrich: %w", err)
		}
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("enrich: %w", err)
			}
		}

		rec, err := a.api.ContactInfo(ctx, id)
		if err != nil {
			metrics.RecordLookup(metrics.LookupFailed)
			a.logger.Warn("contact lookup failed", "profile", id, "err", err)
			continue
		}
		if rec == nil || rec.Empty() {
			metrics.RecordLookup(metrics.LookupEmpty)
			a.logger.Debug("no contact data", "profile", id)
			continue
		}

		rec.Identifier = id
		metrics.RecordLookup(metrics.LookupResolved)
		a.logger.Info("contact resolved", "profile", id, "email", rec.Email != "")
		records = append(records, *rec)
	}

	a.logger.Info("enrichment completed",
		"profiles", len(ids),
		"resolved", len(records),
		"elapsed", time.Since(start).Round(10*time.Millisecond))

	return records, nil
}
