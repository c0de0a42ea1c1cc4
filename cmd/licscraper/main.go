// Command licscraper harvests LinkedIn profile URLs from Google search
// results and enriches each unique profile with contact information pulled
// over an authenticated LinkedIn session.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/steelproxy/licscraper/internal/creds"
	"github.com/steelproxy/licscraper/internal/harvest"
	"github.com/steelproxy/licscraper/internal/linkedin"
	"github.com/steelproxy/licscraper/internal/metrics"
	"github.com/steelproxy/licscraper/internal/pipeline"
	"github.com/steelproxy/licscraper/internal/report"
	"github.com/steelproxy/licscraper/internal/serp"
	"github.com/steelproxy/licscraper/internal/storage"
	"github.com/steelproxy/licscraper/internal/storage/csvbackend"
	"github.com/steelproxy/licscraper/internal/storage/jsonbackend"
	"github.com/steelproxy/licscraper/internal/storage/postgres"
	"github.com/steelproxy/licscraper/internal/storage/sqlite"
	"github.com/steelproxy/licscraper/pkg/proxy"
	"github.com/steelproxy/licscraper/pkg/ratelimit"
)

type options struct {
	query       string
	runs        int
	pages       int
	startPage   int
	storeDSN    string
	metricsPort int
	rate        float64
	proxyFile   string
	format      string
	credsFile   string
	saveCreds   bool
	verbose     bool

	creds creds.Credentials
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("licscraper", flag.ContinueOnError)
	opts := &options{}

	fs.StringVar(&opts.query, "query", "", "Google search query to harvest")
	fs.IntVar(&opts.runs, "runs", 1, "number of sequential harvest runs")
	fs.IntVar(&opts.pages, "pages", 1, "result pages fetched per run")
	fs.IntVar(&opts.startPage, "start-page", 1, "result page the first run starts on")
	fs.StringVar(&opts.storeDSN, "store", "", "storage DSN (sqlite:file, postgres://..., json:file, csv:file)")
	fs.IntVar(&opts.metricsPort, "metrics-port", 0, "expose Prometheus metrics on this port (0 disables)")
	fs.Float64Var(&opts.rate, "rate", 0.5, "max contact lookups per second (0 disables pacing)")
	fs.StringVar(&opts.proxyFile, "proxies", "", "file of proxy URLs, one per line")
	fs.StringVar(&opts.format, "report", "text", "report format: text, json or csv")
	fs.StringVar(&opts.credsFile, "credentials-file", "", "credential file path (default ~/"+creds.DefaultFileName+")")
	fs.BoolVar(&opts.saveCreds, "save-credentials", false, "write resolved credentials back to the credential file")
	fs.BoolVar(&opts.verbose, "v", false, "enable debug logging")

	fs.StringVar(&opts.creds.OxylabsUsername, "oxylabs-user", "", "Oxylabs API username")
	fs.StringVar(&opts.creds.OxylabsPassword, "oxylabs-password", "", "Oxylabs API password")
	fs.StringVar(&opts.creds.LinkedInUsername, "linkedin-user", "", "LinkedIn account email")
	fs.StringVar(&opts.creds.LinkedInPassword, "linkedin-password", "", "LinkedIn account password")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch opts.format {
	case "text", "json", "csv":
	default:
		return nil, fmt.Errorf("unknown report format %q", opts.format)
	}
	return opts, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openBackend maps the DSN prefix onto a storage backend. An empty DSN means
// no persistence.
func openBackend(ctx context.Context, dsn string) (storage.Backend, error) {
	if dsn == "" {
		return nil, nil
	}
	kind, rest, err := storage.SplitDSN(dsn)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "sqlite":
		return sqlite.New(rest)
	case "postgres":
		return postgres.New(ctx, rest)
	case "json":
		return jsonbackend.New(rest)
	case "csv":
		return csvbackend.New(rest)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}

func resolveCredentials(opts *options) (creds.Credentials, error) {
	path := opts.credsFile
	if path == "" {
		var err error
		if path, err = creds.DefaultPath(); err != nil {
			return creds.Credentials{}, err
		}
	}
	file := creds.File{Path: path}

	resolved, err := creds.Resolve(opts.creds, file, creds.NewPrompt())
	if err != nil {
		return creds.Credentials{}, err
	}
	if opts.saveCreds {
		if err := file.Save(resolved); err != nil {
			return creds.Credentials{}, err
		}
	}
	return resolved, nil
}

func promptQuery() (string, error) {
	fmt.Fprint(os.Stderr, "Enter search query: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read query: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func run(ctx context.Context, opts *options, logger *slog.Logger) error {
	credentials, err := resolveCredentials(opts)
	if err != nil {
		return err
	}

	if opts.query == "" {
		if opts.query, err = promptQuery(); err != nil {
			return err
		}
	}

	query := harvest.SearchQuery{
		Text:        opts.query,
		StartPage:   opts.startPage,
		PagesPerRun: opts.pages,
		RunCount:    opts.runs,
	}
	if err := query.Validate(); err != nil {
		return err
	}

	provider, err := serp.NewOxylabs(serp.OxylabsConfig{
		Username: credentials.OxylabsUsername,
		Password: credentials.OxylabsPassword,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	var proxyPool *proxy.Pool
	if opts.proxyFile != "" {
		proxyPool = proxy.NewPool(proxy.Config{})
		if err := proxyPool.LoadFile(opts.proxyFile); err != nil {
			return err
		}
	}

	session, err := linkedin.NewClient(linkedin.Config{
		ProxyPool: proxyPool,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	// Login failures abort before any SERP spend.
	logger.Info("authenticating with linkedin", "user", credentials.LinkedInUsername)
	if err := session.Login(ctx, credentials.LinkedInUsername, credentials.LinkedInPassword); err != nil {
		return err
	}
	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := session.Logout(logoutCtx); err != nil {
			logger.Warn("logout failed", "error", err)
		}
	}()

	backend, err := openBackend(ctx, opts.storeDSN)
	if err != nil {
		return err
	}
	if backend != nil {
		defer backend.Close()
	}

	var limiter *ratelimit.Limiter
	if opts.rate > 0 {
		limiter = ratelimit.NewLimiter(opts.rate, 0.2)
		defer limiter.Stop()
	}

	p := &pipeline.Pipeline{
		Provider:   provider,
		ProfileAPI: session,
		Backend:    backend,
		Limiter:    limiter,
		Logger:     logger,
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)

	if opts.metricsPort > 0 {
		srv := metrics.NewServer(opts.metricsPort)
		g.Go(func() error {
			return srv.Serve(gctx)
		})
	}

	var result *pipeline.Result
	g.Go(func() error {
		defer stop()
		var err error
		result, err = p.Run(gctx, query)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	switch opts.format {
	case "json":
		err = report.WriteJSON(os.Stdout, result.Contacts)
	case "csv":
		err = report.WriteCSV(os.Stdout, result.Contacts)
	default:
		err = report.WriteText(os.Stdout, result.Contacts)
	}
	if err != nil {
		return err
	}

	summary := report.GenerateSummary(opts.query, opts.runs, len(result.Profiles), result.Contacts, result.Duration)
	return report.WriteSummary(os.Stderr, summary)
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(opts.verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, logger); err != nil {
		// An interrupt stops the harvest but is not a failure.
		if errors.Is(err, context.Canceled) {
			logger.Info("interrupted, shutting down")
			return
		}
		logger.Error("pipeline failed", "error", err)
		os.Exit(1)
	}
}
