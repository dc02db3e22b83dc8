package scraper

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// DateNA marks a posting date that could not be found.
const DateNA = "NA"

const (
	SourcePanama     = "Panama Banking News"
	SourceFinanciero = "El Financiero CR"
)

// Headline is one extracted news item. Two headlines with equal fields are
// the same headline. An empty URL means the site offered no link for it.
type Headline struct {
	Title       string
	URL         string
	Source      string
	PostingDate string
}

// HasURL reports whether the headline carries a link.
func (h Headline) HasURL() bool {
	return h.URL != ""
}

// Fetcher returns the parsed document for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Extractor turns one site into headlines.
type Extractor interface {
	Name() string
	Extract(ctx context.Context) ([]Headline, error)
}

type PanamaSelectors struct {
	BaseURL   string   `yaml:"base_url"`
	Container string   `yaml:"container"`
	Headlines []string `yaml:"headlines"`
	Date      string   `yaml:"date"`
	// Pagination is the block whose anchors point at further listing pages.
	Pagination               string `yaml:"pagination"`
	MaxPages                 int    `yaml:"max_pages"`
	PaginateWithoutContainer bool   `yaml:"paginate_without_container"`
}

type FinancieroSelectors struct {
	BaseURL         string   `yaml:"base_url"`
	Sections        []string `yaml:"sections"`
	HeadlineClasses []string `yaml:"headline_classes"`
}

type FeedSource struct {
	URL    string `yaml:"url"`
	Source string `yaml:"source"`
}
