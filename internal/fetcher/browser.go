package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"finnews-scraper/internal/config"
)

// BrowserRenderer loads pages in headless Chrome so script-built listings
// are visible to the extractors.
type BrowserRenderer struct {
	browser       *rod.Browser
	launcher      *launcher.Launcher
	pageTimeout   time.Duration
	lazyLoadDelay time.Duration
}

func NewBrowserRenderer(cfg *config.Config) (*BrowserRenderer, error) {
	l := launcher.New().Headless(true)
	if cfg.Rod.ChromePath != "" {
		l = l.Bin(cfg.Rod.ChromePath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &BrowserRenderer{
		browser:       browser,
		launcher:      l,
		pageTimeout:   cfg.GetRodPageTimeout(),
		lazyLoadDelay: cfg.GetRodLazyLoadDelay(),
	}, nil
}

func (r *BrowserRenderer) Render(ctx context.Context, urlStr string) (string, error) {
	page, err := r.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: urlStr})
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	page = page.Timeout(r.pageTimeout)
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("page did not load: %w", err)
	}

	if r.lazyLoadDelay > 0 {
		select {
		case <-time.After(r.lazyLoadDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}

func (r *BrowserRenderer) Close() error {
	err := r.browser.Close()
	r.launcher.Kill()
	return err
}
