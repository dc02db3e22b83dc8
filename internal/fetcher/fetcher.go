package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"finnews-scraper/internal/config"
	"finnews-scraper/internal/observability"
)

var (
	// ErrUnexpectedStatus is returned for any non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrDisallowed is returned when robots.txt forbids the URL.
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// Renderer produces the final HTML of a page, e.g. from a headless browser.
type Renderer interface {
	Render(ctx context.Context, urlStr string) (string, error)
	Close() error
}

// Fetcher performs one GET per call and then waits a fixed delay before
// returning, whatever the outcome. It never retries.
type Fetcher struct {
	client      *http.Client
	cfg         *config.Config
	logger      *observability.Logger
	robotsCache *RobotsCache
	rateLimiter *RateLimiter
	renderer    Renderer
	delay       time.Duration
}

type Option func(*Fetcher)

// WithRenderer routes page loads through r instead of a plain GET.
func WithRenderer(r Renderer) Option {
	return func(f *Fetcher) {
		f.renderer = r
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

func NewFetcher(cfg *config.Config, logger *observability.Logger, opts ...Option) *Fetcher {
	client := &http.Client{
		Timeout: cfg.GetTotalTimeout(),
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.HTTP.MaxIdleConnections,
			MaxIdleConnsPerHost: cfg.HTTP.MaxIdleConnectionsPerHost,
			IdleConnTimeout:     cfg.GetIdleConnectionTimeout(),
		},
	}

	f := &Fetcher{
		client:      client,
		cfg:         cfg,
		logger:      logger,
		rateLimiter: NewRateLimiter(cfg.RateLimit.RPM),
		delay:       cfg.GetDelay(),
	}
	if cfg.Robots.Enabled {
		f.robotsCache = NewRobotsCache(cfg.GetRobotsCacheTTL())
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Client returns the shared HTTP client so other readers reuse its connections.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Fetch downloads urlStr and parses it. Any failure is logged and returned;
// callers treat it as an empty page. A cancelled ctx aborts the delay.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*goquery.Document, error) {
	f.logger.Info("Fetching", "url", urlStr)

	doc, err := f.fetchOnce(ctx, urlStr)
	if err != nil {
		f.logger.Error("Error fetching", "url", urlStr, "error", err.Error())
	}

	if waitErr := f.wait(ctx); waitErr != nil {
		return nil, waitErr
	}

	return doc, err
}

func (f *Fetcher) fetchOnce(ctx context.Context, urlStr string) (*goquery.Document, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q is not absolute", urlStr)
	}

	if f.robotsCache != nil {
		allowed := f.robotsCache.IsAllowed(ctx, parsedURL, f.cfg.HTTP.UserAgent, f.client)
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, urlStr)
		}
	}

	if err := f.rateLimiter.Wait(ctx, parsedURL.Host); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	if f.renderer != nil {
		html, err := f.renderer.Render(ctx, urlStr)
		if err != nil {
			return nil, fmt.Errorf("render failed: %w", err)
		}
		return parseHTML(strings.NewReader(html))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.cfg.HTTP.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.Debug("Failed to close response body", "error", err.Error())
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	f.logger.Debug("Response received",
		"url", urlStr,
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
	)

	return parseHTML(resp.Body)
}

// wait sleeps for the configured delay unless ctx ends first.
func (f *Fetcher) wait(ctx context.Context) error {
	if f.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(f.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
