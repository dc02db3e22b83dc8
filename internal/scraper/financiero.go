package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"finnews-scraper/internal/normalize"
	"finnews-scraper/internal/observability"
)

// FinancieroExtractor scrapes the fixed section pages of El Financiero CR.
type FinancieroExtractor struct {
	sel      FinancieroSelectors
	fetcher  Fetcher
	logger   *observability.Logger
	matchers []Matcher
}

func NewFinancieroExtractor(sel FinancieroSelectors, f Fetcher, logger *observability.Logger) *FinancieroExtractor {
	return &FinancieroExtractor{
		sel:      sel,
		fetcher:  f,
		logger:   logger.With("source", SourceFinanciero),
		matchers: classMatchers(sel.HeadlineClasses),
	}
}

func (e *FinancieroExtractor) Name() string {
	return SourceFinanciero
}

// SectionURLs returns the pages visited, in order.
func (e *FinancieroExtractor) SectionURLs() []string {
	base := strings.TrimSuffix(e.sel.BaseURL, "/")
	urls := make([]string, 0, len(e.sel.Sections))
	for _, section := range e.sel.Sections {
		urls = append(urls, base+"/"+strings.TrimPrefix(section, "/"))
	}
	return urls
}

func (e *FinancieroExtractor) Extract(ctx context.Context) ([]Headline, error) {
	acc := NewAccumulator()

	for _, pageURL := range e.SectionURLs() {
		if ctx.Err() != nil {
			return acc.Headlines(), ctx.Err()
		}

		doc, err := e.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return acc.Headlines(), ctx.Err()
			}
			e.logger.Error("Failed to get content", "url", pageURL)
			continue
		}
		e.extractPage(doc, pageURL, acc)
	}

	e.logger.Info("Scraped headlines", "count", acc.Len())
	return acc.Headlines(), nil
}

func (e *FinancieroExtractor) extractPage(doc *goquery.Document, pageURL string, acc *Accumulator) {
	for _, m := range e.matchers {
		elements := m.Match(doc.Selection)
		e.logger.Info("Headline class count", "class", m.Name, "count", elements.Length(), "url", pageURL)

		elements.Each(func(_ int, s *goquery.Selection) {
			title := normalize.Text(s.Text())
			if title == "" {
				return
			}

			h := Headline{
				Title:       title,
				URL:         e.link(s),
				Source:      SourceFinanciero,
				PostingDate: ancestorTimeText(s),
			}
			if acc.Add(h) {
				e.logger.Info("Found headline", "title", headlineTitle(title))
			}
		})
	}
}

// link returns the resolved href when the headline element is itself an
// anchor. Other elements carry no link and yield "".
func (e *FinancieroExtractor) link(s *goquery.Selection) string {
	if goquery.NodeName(s) != "a" {
		return ""
	}
	href, _ := s.Attr("href")
	return normalize.ResolveURL(e.sel.BaseURL, href)
}

// ancestorTimeText walks every ancestor from the nearest outwards. Each one
// holding a <time> sets the date to that element's text and each one without
// resets it to NA, so the outermost ancestor decides. This mirrors how the
// site has always been read; whether the nearest ancestor was meant instead
// is unresolved.
func ancestorTimeText(s *goquery.Selection) string {
	date := DateNA
	s.Parents().Each(func(_ int, parent *goquery.Selection) {
		t := parent.Find("time").First()
		if t.Length() > 0 {
			date = normalize.Text(t.Text())
		} else {
			date = DateNA
		}
	})
	return date
}
