// Package linkedin implements the authenticated session used for contact
// info lookups. One Client holds one credentialed session; it is not meant
// to be shared across concurrent callers.
package linkedin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/steelproxy/licscraper/internal/fingerprint"
	"github.com/steelproxy/licscraper/internal/profile"
	"github.com/steelproxy/licscraper/pkg/httpclient"
	"github.com/steelproxy/licscraper/pkg/proxy"
	"github.com/steelproxy/licscraper/pkg/useragent"
)

// DefaultBaseURL is the production LinkedIn host.
const DefaultBaseURL = "https://www.linkedin.com"

var (
	ErrAuthFailed  = errors.New("linkedin: authentication failed")
	ErrChallenged  = errors.New("linkedin: login challenge required")
	ErrNotLoggedIn = errors.New("linkedin: session not established")
	ErrNotFound    = errors.New("linkedin: profile not found")
	ErrRateLimited = errors.New("linkedin: rate limited")
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// Config configures the session client.
type Config struct {
	// BaseURL overrides DefaultBaseURL, mainly for tests.
	BaseURL     string
	Timeout     time.Duration
	Fingerprint fingerprint.Profile
	UAPool      *useragent.Pool
	ProxyPool   *proxy.Pool
	Logger      *slog.Logger
}

// Client is a cookie-jar-backed LinkedIn session. Call Login before any
// lookup; the CSRF token captured there authenticates every later request.
type Client struct {
	cfg      Config
	client   *httpclient.Client
	logger   *slog.Logger
	csrf     string
	loggedIn bool
}

// NewClient builds a session client. The transport carries the configured
// TLS fingerprint, and an optional proxy pool is consulted per request via
// the request context.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if string(cfg.Fingerprint) == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		return nil, nil
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("linkedin: setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 5,
		UseCookieJar: true,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("linkedin: create client: %w", err)
	}

	return &Client{
		cfg:    cfg,
		client: client,
		logger: cfg.Logger,
	}, nil
}

// do attaches a rotating user agent and, when a pool is configured, a proxy
// to the request, then executes it.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var activeProxy *url.URL
	if c.cfg.ProxyPool != nil {
		if activeProxy = c.cfg.ProxyPool.Next(); activeProxy != nil {
			ctx = context.WithValue(ctx, proxyKey, activeProxy)
		}
	}

	req.Header.Set("User-Agent", c.cfg.UAPool.GetSequential())
	if c.csrf != "" {
		req.Header.Set("Csrf-Token", c.csrf)
	}

	resp, err := c.client.Do(ctx, req)
	if activeProxy != nil {
		if err != nil {
			_ = c.cfg.ProxyPool.MarkFailure(activeProxy)
		} else {
			_ = c.cfg.ProxyPool.MarkSuccess(activeProxy)
		}
	}
	return resp, err
}

// authEndpoint is used both to seed the anonymous session cookie and to
// submit credentials.
func (c *Client) authEndpoint() string {
	return c.cfg.BaseURL + "/uas/authenticate"
}

// seedSession performs the anonymous GET that issues the JSESSIONID cookie
// whose value doubles as the CSRF token.
func (c *Client) seedSession(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.authEndpoint(), nil)
	if err != nil {
		return fmt.Errorf("linkedin: build seed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("linkedin: seed session: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("linkedin: parse base url: %w", err)
	}
	for _, cookie := range c.client.Jar.Cookies(base) {
		if cookie.Name == "JSESSIONID" {
			c.csrf = strings.Trim(cookie.Value, `"`)
			return nil
		}
	}
	return fmt.Errorf("%w: no session cookie issued", ErrAuthFailed)
}

type loginResponse struct {
	LoginResult string `json:"login_result"`
}

// Login establishes the credentialed session. A failure here is fatal for
// the whole pipeline: no harvesting should start without a working session.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if err := c.seedSession(ctx); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("session_key", username)
	form.Set("session_password", password)
	form.Set("JSESSIONID", c.csrf)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("linkedin: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("linkedin: login request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("linkedin: read login response: %w", err)
	}

	if detectChallenge(body) {
		return ErrChallenged
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrAuthFailed, resp.StatusCode)
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return fmt.Errorf("linkedin: decode login response: %w", err)
	}
	if lr.LoginResult != "PASS" {
		return fmt.Errorf("%w: login result %q", ErrAuthFailed, lr.LoginResult)
	}

	c.loggedIn = true
	c.logger.Info("linkedin session established", "user", username)
	return nil
}

// contactInfoPayload mirrors the voyager profileContactInfo response shape.
type contactInfoPayload struct {
	EmailAddress string `json:"emailAddress"`
	Websites     []struct {
		URL string `json:"url"`
	} `json:"websites"`
	TwitterHandles []struct {
		Name string `json:"name"`
	} `json:"twitterHandles"`
	PhoneNumbers []struct {
		Number string `json:"number"`
	} `json:"phoneNumbers"`
}

// ContactInfo fetches contact data for one profile. A profile that exists
// but exposes nothing returns (nil, nil); the caller treats that as "no
// data", not a failure.
func (c *Client) ContactInfo(ctx context.Context, id profile.ID) (*profile.ContactRecord, error) {
	if !c.loggedIn {
		return nil, ErrNotLoggedIn
	}

	endpoint := c.cfg.BaseURL + "/voyager/api/identity/profiles/" + url.PathEscape(string(id)) + "/profileContactInfo"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("linkedin: build contact request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("linkedin: contact request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		return nil, fmt.Errorf("linkedin: contact lookup status %d for %s", resp.StatusCode, id)
	}

	var payload contactInfoPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("linkedin: decode contact response: %w", err)
	}

	rec := &profile.ContactRecord{
		Identifier: id,
		Email:      payload.EmailAddress,
	}
	for _, w := range payload.Websites {
		if w.URL != "" {
			rec.Websites = append(rec.Websites, w.URL)
		}
	}
	var handles []string
	for _, h := range payload.TwitterHandles {
		if h.Name != "" {
			handles = append(handles, h.Name)
		}
	}
	if len(handles) > 0 {
		rec.SocialHandles = map[string]string{"twitter": strings.Join(handles, ", ")}
	}
	for _, p := range payload.PhoneNumbers {
		if p.Number != "" {
			rec.PhoneNumbers = append(rec.PhoneNumbers, p.Number)
		}
	}

	if rec.Empty() {
		return nil, nil
	}
	return rec, nil
}

// Logout ends the session. Best effort; the session dies with the process
// anyway.
func (c *Client) Logout(ctx context.Context) error {
	if !c.loggedIn {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/uas/logout", nil)
	if err != nil {
		return fmt.Errorf("linkedin: build logout request: %w", err)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("linkedin: logout: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.loggedIn = false
	return nil
}
