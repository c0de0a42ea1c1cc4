package serp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/steelproxy/licscraper/pkg/httpclient"
)

// DefaultEndpoint is the Oxylabs realtime queries endpoint.
const DefaultEndpoint = "https://realtime.oxylabs.io/v1/queries"

// maxBodyDiagnostic caps how much of an error body is carried in an error message.
const maxBodyDiagnostic = 2048

// ensure Oxylabs implements Provider
var _ Provider = (*Oxylabs)(nil)

// OxylabsConfig configures the realtime API client.
type OxylabsConfig struct {
	Username string
	Password string
	// Endpoint overrides DefaultEndpoint, mainly for tests.
	Endpoint string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Oxylabs is a Provider backed by the Oxylabs realtime SERP API.
type Oxylabs struct {
	cfg    OxylabsConfig
	client *httpclient.Client
	logger *slog.Logger
}

// NewOxylabs creates a realtime API client. Credentials are required;
// everything else has defaults.
func NewOxylabs(cfg OxylabsConfig) (*Oxylabs, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("serp: oxylabs credentials are required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		// Realtime queries block server-side until all pages are scraped.
		cfg.Timeout = 180 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("serp: %w", err)
	}

	return &Oxylabs{
		cfg:    cfg,
		client: client,
		logger: cfg.Logger,
	}, nil
}

type contextEntry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// queryPayload is the realtime API request body. The option set is fixed:
// English locale, safe-search filter, desktop user agent, structured parse
// mode, no query rewriting, at most 100 results per page.
type queryPayload struct {
	Source        string         `json:"source"`
	UserAgentType string         `json:"user_agent_type"`
	Parse         bool           `json:"parse"`
	Locale        string         `json:"locale"`
	Query         string         `json:"query"`
	StartPage     string         `json:"start_page"`
	Pages         string         `json:"pages"`
	Limit         int            `json:"limit"`
	Context       []contextEntry `json:"context"`
}

func newQueryPayload(req Request) queryPayload {
	return queryPayload{
		Source:        "google_search",
		UserAgentType: "desktop_chrome",
		Parse:         true,
		Locale:        "en-us",
		Query:         req.Text,
		StartPage:     strconv.Itoa(req.StartPage),
		Pages:         strconv.Itoa(req.Pages),
		Limit:         100,
		Context: []contextEntry{
			{Key: "filter", Value: 1},
			{Key: "results_language", Value: "en"},
			{Key: "nfpr", Value: true},
		},
	}
}

// Search issues one realtime query and decodes the paged response. A
// transport failure or a non-2xx status is returned as an error; the caller
// aborts the harvest on either.
func (o *Oxylabs) Search(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(newQueryPayload(req))
	if err != nil {
		return nil, fmt.Errorf("serp: marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("serp: build request: %w", err)
	}
	httpReq.SetBasicAuth(o.cfg.Username, o.cfg.Password)
	httpReq.Header.Set("Content-Type", "application/json")

	o.logger.Debug("issuing realtime query",
		"query", req.Text, "start_page", req.StartPage, "pages", req.Pages)

	resp, err := o.client.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("serp: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyDiagnostic))
		return nil, fmt.Errorf("%w: status %d: %s", ErrBadStatus, resp.StatusCode, bytes.TrimSpace(diag))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("serp: decode response: %w", err)
	}
	// A nil slice means the key was absent or null, not an empty array.
	if out.Results == nil {
		return nil, fmt.Errorf("%w for query %q", ErrMalformedResponse, req.Text)
	}
	return &out, nil
}
