package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "licscraper_serp_requests_total",
			Help: "Total number of SERP API requests issued",
		},
		[]string{"status"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "licscraper_serp_request_duration_seconds",
			Help:    "Duration of SERP API requests in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	ProfilesDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "licscraper_profiles_discovered_total",
			Help: "Unique profile identifiers discovered across all runs",
		},
	)

	ContactLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "licscraper_contact_lookups_total",
			Help: "Contact info lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// Lookup outcomes used as the label on ContactLookupsTotal.
const (
	LookupResolved = "resolved"
	LookupEmpty    = "empty"
	LookupFailed   = "failed"
)

// RecordSearch updates the SERP request metrics for one run.
func RecordSearch(status string, d time.Duration) {
	SearchRequestsTotal.WithLabelValues(status).Inc()
	SearchDuration.Observe(d.Seconds())
}

// RecordLookup counts one enrichment lookup outcome.
func RecordLookup(outcome string) {
	ContactLookupsTotal.WithLabelValues(outcome).Inc()
}

// Server exposes /metrics over HTTP for the duration of a harvest.
type Server struct {
	srv *http.Server
}

// NewServer builds a metrics server listening on the given port.
func NewServer(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}
}

// Serve listens until ctx is canceled, then shuts the server down. The error
// from an intentional shutdown is suppressed.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
