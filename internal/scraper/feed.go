package scraper

import (
	"context"
	"net/http"

	"github.com/mmcdole/gofeed"

	"finnews-scraper/internal/normalize"
	"finnews-scraper/internal/observability"
)

// FeedExtractor reads headlines from an RSS or Atom feed.
type FeedExtractor struct {
	source FeedSource
	parser *gofeed.Parser
	logger *observability.Logger
}

func NewFeedExtractor(source FeedSource, client *http.Client, userAgent string, logger *observability.Logger) *FeedExtractor {
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent

	return &FeedExtractor{
		source: source,
		parser: parser,
		logger: logger.With("source", source.Source),
	}
}

func (e *FeedExtractor) Name() string {
	return e.source.Source
}

func (e *FeedExtractor) Extract(ctx context.Context) ([]Headline, error) {
	acc := NewAccumulator()

	e.logger.Info("Fetching feed", "url", e.source.URL)
	feed, err := e.parser.ParseURLWithContext(e.source.URL, ctx)
	if err != nil {
		e.logger.Error("Error fetching feed", "url", e.source.URL, "error", err.Error())
		return acc.Headlines(), ctx.Err()
	}

	for _, item := range feed.Items {
		title := normalize.Text(item.Title)
		if title == "" {
			continue
		}

		link := ""
		if item.Link != "" {
			link = normalize.ResolveURL(e.source.URL, item.Link)
		}

		date := normalize.Text(item.Published)
		if date == "" {
			date = DateNA
		}

		acc.Add(Headline{
			Title:       title,
			URL:         link,
			Source:      e.source.Source,
			PostingDate: date,
		})
	}

	e.logger.Info("Scraped headlines", "count", acc.Len())
	return acc.Headlines(), nil
}
