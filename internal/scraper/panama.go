package scraper

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"finnews-scraper/internal/normalize"
	"finnews-scraper/internal/observability"
)

// PanamaExtractor scrapes the Panama Banking News home page and the listing
// pages linked from its pagination block.
type PanamaExtractor struct {
	sel      PanamaSelectors
	fetcher  Fetcher
	logger   *observability.Logger
	matchers []Matcher
}

func NewPanamaExtractor(sel PanamaSelectors, f Fetcher, logger *observability.Logger) *PanamaExtractor {
	return &PanamaExtractor{
		sel:      sel,
		fetcher:  f,
		logger:   logger.With("source", SourcePanama),
		matchers: cssMatchers(sel.Headlines),
	}
}

func (e *PanamaExtractor) Name() string {
	return SourcePanama
}

// Extract returns the unique headlines of the home page and its paginated
// listings. Failed pages are skipped; only cancellation is returned as an
// error, together with what was collected so far.
func (e *PanamaExtractor) Extract(ctx context.Context) ([]Headline, error) {
	acc := NewAccumulator()

	doc, err := e.fetcher.Fetch(ctx, e.sel.BaseURL)
	if err != nil {
		return acc.Headlines(), ctx.Err()
	}

	found := e.extractPage(doc, acc)
	if !found && !e.sel.PaginateWithoutContainer {
		e.logger.Warn("Main container missing, skipping pagination", "container", e.sel.Container)
		return acc.Headlines(), nil
	}

	for _, pageURL := range e.pageLinks(doc) {
		if ctx.Err() != nil {
			return acc.Headlines(), ctx.Err()
		}

		e.logger.Info("Scraping additional page", "url", pageURL)
		page, err := e.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return acc.Headlines(), ctx.Err()
			}
			continue
		}
		e.extractPage(page, acc)
	}

	e.logger.Info("Scraped headlines", "count", acc.Len())
	return acc.Headlines(), nil
}

// extractPage adds the headlines inside the page container to acc and
// reports whether the container was present.
func (e *PanamaExtractor) extractPage(doc *goquery.Document, acc *Accumulator) bool {
	container := doc.Find(e.sel.Container).First()
	if container.Length() == 0 {
		e.logger.Warn("Container not found", "container", e.sel.Container)
		return false
	}

	for _, m := range e.matchers {
		m.Match(container).Each(func(_ int, s *goquery.Selection) {
			title := normalize.Text(s.Text())
			if title == "" {
				return
			}
			href, _ := s.Attr("href")

			h := Headline{
				Title:       title,
				URL:         normalize.ResolveURL(e.sel.BaseURL, href),
				Source:      SourcePanama,
				PostingDate: e.postingDate(s),
			}
			if acc.Add(h) {
				e.logger.Info("Found headline", "title", headlineTitle(title))
			}
		})
	}

	return true
}

// postingDate looks for the date marker under the grandparent of the
// matched anchor.
func (e *PanamaExtractor) postingDate(s *goquery.Selection) string {
	if e.sel.Date == "" {
		return DateNA
	}
	date := normalize.Text(s.Parent().Parent().Find(e.sel.Date).First().Text())
	if date == "" {
		return DateNA
	}
	return date
}

// pageLinks returns the absolute URLs of the first MaxPages anchors in the
// pagination block, without the base URL and without repeats.
func (e *PanamaExtractor) pageLinks(doc *goquery.Document) []string {
	if e.sel.Pagination == "" || e.sel.MaxPages <= 0 {
		return nil
	}

	nav := doc.Find(e.sel.Pagination).First()
	if nav.Length() == 0 {
		return nil
	}

	anchors := nav.Find("a")
	if anchors.Length() > e.sel.MaxPages {
		anchors = anchors.Slice(0, e.sel.MaxPages)
	}

	var links []string
	seen := map[string]bool{}
	anchors.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" || href == e.sel.BaseURL {
			return
		}
		pageURL := normalize.ResolveURL(e.sel.BaseURL, href)
		key := normalize.NormalizeURL(pageURL)
		if pageURL == "" || pageURL == e.sel.BaseURL || seen[key] {
			return
		}
		seen[key] = true
		links = append(links, pageURL)
	})

	return links
}
